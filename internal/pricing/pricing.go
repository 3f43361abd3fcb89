package pricing

import (
	"sort"

	"github.com/Silicom-11/synaplink-engine/internal/domain"
)

// Tariff is fixed policy: three session lengths, each with its own price.
// Anything else is rejected rather than silently billed at the hourly rate.
var tariff = map[int]int64{
	60:  200,  // 1h  S/2
	120: 500,  // 2h  S/5
	180: 1000, // 3h  S/10
}

const centsPerPoint = 20

// Quote maps a requested duration in minutes to its tier price.
func Quote(durationMinutes int) (domain.Money, error) {
	cents, ok := tariff[durationMinutes]
	if !ok {
		return domain.Money{}, domain.ErrInvalidDuration
	}
	return domain.NewSoles(cents), nil
}

// Points is the loyalty award for a confirmed reservation, proportional
// to the price paid: 10, 25 and 50 points across the three tiers.
func Points(price domain.Money) int {
	if price.Cents <= 0 {
		return 0
	}
	return int(price.Cents / centsPerPoint)
}

// Durations lists the supported durations in ascending order.
func Durations() []int {
	out := make([]int, 0, len(tariff))
	for d := range tariff {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}
