package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Silicom-11/synaplink-engine/internal/domain"
	"github.com/Silicom-11/synaplink-engine/internal/observability"
)

const exchange = "synaplink.cabins"

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	return p.ch.PublishWithContext(ctx, exchange, key, false, false, msg)
}

type cabinEvent struct {
	VenueID       string     `json:"venueId"`
	CabinNumber   int        `json:"cabinNumber"`
	State         string     `json:"state"`
	ReservationID *uuid.UUID `json:"reservationId,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	At            time.Time  `json:"at"`
}

// NewCabinNotifier adapts the publisher into a registry notifier:
// every cabin state change is pushed on `cabins.<venueID>` so venue
// displays subscribe instead of polling the cabin list.
func NewCabinNotifier(p *Publisher, logger observability.Logger) func(domain.Cabin) {
	return func(c domain.Cabin) {
		payload, err := json.Marshal(cabinEvent{
			VenueID:       c.VenueID,
			CabinNumber:   c.Number,
			State:         string(c.State),
			ReservationID: c.ActiveReservationID,
			ExpiresAt:     c.StateExpiresAt,
			At:            time.Now().UTC(),
		})
		if err != nil {
			logger.WithError(err).Error("cabin event marshal failed")
			return
		}
		msg := amqp.Publishing{
			MessageId:   uuid.New().String(),
			ContentType: "application/json",
			Body:        payload,
		}
		if err := p.Publish(context.Background(), "cabins."+c.VenueID, msg); err != nil {
			logger.WithError(err).WithField("venue_id", c.VenueID).Error("cabin event publish failed")
		}
	}
}
