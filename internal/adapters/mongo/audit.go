package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Silicom-11/synaplink-engine/internal/domain"
	"github.com/Silicom-11/synaplink-engine/internal/observability"
)

// AuditLogger keeps an append-only trail of reservation transitions.
// Writes are best-effort; the lifecycle manager logs and continues on
// failure.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("reservation_audit"),
		logger: logger,
	}
}

type auditEntry struct {
	ID            uuid.UUID `bson:"_id"`
	Action        string    `bson:"action"`
	ReservationID uuid.UUID `bson:"reservation_id"`
	UserID        string    `bson:"user_id"`
	Timestamp     time.Time `bson:"timestamp"`
	Data          bson.M    `bson:"data"`
}

// LogReservation implements reservation.Auditor.
func (a *AuditLogger) LogReservation(ctx context.Context, action string, res domain.Reservation) error {
	entry := auditEntry{
		ID:            uuid.New(),
		Action:        action,
		ReservationID: res.ID,
		UserID:        res.UserID,
		Timestamp:     time.Now(),
		Data: bson.M{
			"venue_id": res.VenueID,
			"cabins":   res.CabinNumbers,
			"status":   string(res.Status),
			"price":    res.Price.Format(),
			"points":   res.PointsEarned,
			"start":    res.StartTime.Format(time.RFC3339),
			"end":      res.EndTime.Format(time.RFC3339),
		},
	}
	if _, err := a.coll.InsertOne(ctx, entry); err != nil {
		a.logger.WithError(err).WithField("action", action).Error("failed to insert audit entry")
		return err
	}
	return nil
}
