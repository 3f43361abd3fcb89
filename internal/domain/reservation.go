package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	StatusHeld      ReservationStatus = "Held"
	StatusConfirmed ReservationStatus = "Confirmed"
	StatusCompleted ReservationStatus = "Completed"
	StatusCancelled ReservationStatus = "Cancelled"
	StatusExpired   ReservationStatus = "Expired"
)

// Active reports whether the reservation still occupies its cabins.
func (s ReservationStatus) Active() bool {
	return s == StatusHeld || s == StatusConfirmed
}

func (s ReservationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusExpired
}

type Reservation struct {
	ID              uuid.UUID
	UserID          string
	VenueID         string
	CabinNumbers    []int // sorted ascending, no duplicates
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Price           Money
	Status          ReservationStatus
	PointsEarned    int
	HoldDeadline    time.Time
	CreatedAt       time.Time
}

// NewHeldReservation builds the initial Held reservation for a walk-in
// booking starting now. cabinNumbers must already be normalized.
func NewHeldReservation(userID, venueID string, cabinNumbers []int, durationMinutes int, price Money, now time.Time, holdTTL time.Duration) Reservation {
	return Reservation{
		ID:              uuid.New(),
		UserID:          userID,
		VenueID:         venueID,
		CabinNumbers:    cabinNumbers,
		StartTime:       now,
		EndTime:         now.Add(time.Duration(durationMinutes) * time.Minute),
		DurationMinutes: durationMinutes,
		Price:           price,
		Status:          StatusHeld,
		HoldDeadline:    now.Add(holdTTL),
		CreatedAt:       now,
	}
}
