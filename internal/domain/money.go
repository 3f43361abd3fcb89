package domain

import "fmt"

// Money is an exact currency amount in minor units.
type Money struct {
	Cents    int64
	Currency string
}

const CurrencyPEN = "PEN"

func NewSoles(cents int64) Money {
	return Money{Cents: cents, Currency: CurrencyPEN}
}

// Format renders the amount the way the storefront shows it, e.g. "S/2.00".
func (m Money) Format() string {
	return fmt.Sprintf("S/%d.%02d", m.Cents/100, m.Cents%100)
}
