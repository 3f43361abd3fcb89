package domain

import (
	"time"

	"github.com/google/uuid"
)

type CabinState string

const (
	CabinFree     CabinState = "Free"
	CabinHeld     CabinState = "Held"
	CabinReserved CabinState = "Reserved"
	CabinOccupied CabinState = "Occupied"
)

// Cabin is a single reservable seat at a venue. State is owned by the
// registry; everything here is a snapshot.
type Cabin struct {
	VenueID             string
	Number              int
	State               CabinState
	ActiveReservationID *uuid.UUID
	StateExpiresAt      *time.Time
}
