package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/Silicom-11/synaplink-engine/internal/domain"
)

// ReservationStore is the durable keyed store behind the lifecycle
// manager: primary key reservationID, secondary index userID. Any
// implementation works as long as Create/Update are atomic per row.
type ReservationStore interface {
	Create(ctx context.Context, res domain.Reservation) error
	Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	Update(ctx context.Context, res domain.Reservation) error
	ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error)
	ListByStatus(ctx context.Context, status domain.ReservationStatus) ([]domain.Reservation, error)
}
