package domain

import "errors"

var (
	ErrSerializationFailure  = errors.New("serialization failure")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("cabin no longer free")
	ErrInvalidDuration       = errors.New("unsupported duration")
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotHeldByReservation  = errors.New("cabin not held by this reservation")
	ErrNotOwnedByReservation = errors.New("cabin not owned by this reservation")
	ErrNotOwnedByUser        = errors.New("reservation not owned by user")
	ErrStaleReservationState = errors.New("reservation is no longer active")
)
