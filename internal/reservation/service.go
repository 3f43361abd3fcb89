// Package reservation orchestrates the hold / confirm / cancel / sweep
// lifecycle. Cabin allocation itself is arbitrated by the registry;
// this package serializes transitions per reservation so a confirm and
// a sweep racing on the same reservation resolve deterministically.
package reservation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Silicom-11/synaplink-engine/internal/clock"
	"github.com/Silicom-11/synaplink-engine/internal/domain"
	"github.com/Silicom-11/synaplink-engine/internal/observability"
	"github.com/Silicom-11/synaplink-engine/internal/pricing"
	"github.com/Silicom-11/synaplink-engine/internal/registry"
	"github.com/Silicom-11/synaplink-engine/internal/store"
)

const defaultHoldTTL = 5 * time.Minute

// Auditor records lifecycle transitions out of band. Failures are
// logged, never surfaced to the caller.
type Auditor interface {
	LogReservation(ctx context.Context, action string, res domain.Reservation) error
}

type Service struct {
	registry *registry.Registry
	store    store.ReservationStore
	clock    clock.Clock
	logger   observability.Logger
	audit    Auditor
	holdTTL  time.Duration

	locks reservationLocks
}

type Option func(*Service)

// WithHoldTTL overrides how long an unconfirmed hold keeps its cabins.
func WithHoldTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithAuditor attaches an audit sink for lifecycle transitions.
func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.audit = a }
}

func NewService(reg *registry.Registry, st store.ReservationStore, clk clock.Clock, logger observability.Logger, opts ...Option) *Service {
	s := &Service{
		registry: reg,
		store:    st,
		clock:    clk,
		logger:   logger,
		holdTTL:  defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) HoldTTL() time.Duration {
	return s.holdTTL
}

// CreateHold claims every requested cabin or none of them. Cabins are
// acquired in ascending number order so two overlapping multi-cabin
// requests cannot deadlock, and already-claimed cabins are rolled back
// on the first conflict.
func (s *Service) CreateHold(ctx context.Context, userID, venueID string, cabinNumbers []int, durationMinutes int) (domain.Reservation, error) {
	price, err := pricing.Quote(durationMinutes)
	if err != nil {
		return domain.Reservation{}, err
	}
	if userID == "" || venueID == "" {
		return domain.Reservation{}, domain.ErrInvalidInput
	}
	numbers := normalizeCabins(cabinNumbers)
	if len(numbers) == 0 {
		return domain.Reservation{}, domain.ErrInvalidInput
	}

	now := s.clock.Now()
	res := domain.NewHeldReservation(userID, venueID, numbers, durationMinutes, price, now, s.holdTTL)

	var held []int
	for _, n := range numbers {
		if err := s.registry.TryMarkHeld(venueID, n, res.ID, res.HoldDeadline); err != nil {
			s.rollbackHolds(venueID, held, res.ID)
			if errors.Is(err, domain.ErrConflict) {
				observability.HoldConflicts.Inc()
			}
			return domain.Reservation{}, err
		}
		held = append(held, n)
	}

	if err := s.store.Create(ctx, res); err != nil {
		s.rollbackHolds(venueID, held, res.ID)
		return domain.Reservation{}, err
	}

	observability.HoldsCreated.Inc()
	s.auditLog(ctx, "reservation.held", res)
	s.logger.WithField("reservation_id", res.ID).WithField("venue_id", venueID).Info("hold created")
	return res, nil
}

// Confirm promotes a Held reservation after its out-of-band payment.
// Past the hold deadline the confirmation loses to the sweep, even if
// the sweep has not run yet.
func (s *Service) Confirm(ctx context.Context, reservationID uuid.UUID) (domain.Reservation, error) {
	unlock := s.locks.lock(reservationID)
	defer unlock()

	res, err := s.store.Get(ctx, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if res.Status != domain.StatusHeld {
		return domain.Reservation{}, domain.ErrStaleReservationState
	}
	now := s.clock.Now()
	if now.After(res.HoldDeadline) {
		return domain.Reservation{}, domain.ErrStaleReservationState
	}

	for _, n := range res.CabinNumbers {
		if err := s.registry.MarkConfirmed(res.VenueID, n, res.ID, now, res.StartTime, res.EndTime); err != nil {
			return domain.Reservation{}, err
		}
	}

	res.Status = domain.StatusConfirmed
	res.PointsEarned = pricing.Points(res.Price)
	if err := s.store.Update(ctx, res); err != nil {
		return domain.Reservation{}, err
	}

	observability.ReservationsConfirmed.Inc()
	s.auditLog(ctx, "reservation.confirmed", res)
	s.logger.WithField("reservation_id", res.ID).Info("reservation confirmed")
	return res, nil
}

// Cancel releases a Held or Confirmed reservation on behalf of its
// owner. Terminal reservations are reported stale and left untouched.
func (s *Service) Cancel(ctx context.Context, reservationID uuid.UUID, byUserID string) error {
	unlock := s.locks.lock(reservationID)
	defer unlock()

	res, err := s.store.Get(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.UserID != byUserID {
		return domain.ErrNotOwnedByUser
	}
	if !res.Status.Active() {
		return domain.ErrStaleReservationState
	}

	s.releaseAll(res)
	res.Status = domain.StatusCancelled
	if err := s.store.Update(ctx, res); err != nil {
		return err
	}

	observability.ReservationsCancelled.Inc()
	s.auditLog(ctx, "reservation.cancelled", res)
	s.logger.WithField("reservation_id", res.ID).Info("reservation cancelled")
	return nil
}

// Get returns a single reservation by id.
func (s *Service) Get(ctx context.Context, reservationID uuid.UUID) (domain.Reservation, error) {
	return s.store.Get(ctx, reservationID)
}

// ExpireStale reclaims Held reservations whose hold deadline has
// passed. Safe to run concurrently with Confirm and Cancel: whoever
// takes the per-reservation lock first wins, the loser re-reads the
// status and moves on. Store failures skip the item; the next tick
// retries it.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	held, err := s.store.ListByStatus(ctx, domain.StatusHeld)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, res := range held {
		if !res.HoldDeadline.Before(now) {
			continue
		}
		if s.transition(ctx, res.ID, domain.StatusHeld, domain.StatusExpired, "reservation.expired") {
			observability.HoldsExpired.Inc()
			count++
		}
	}
	return count, nil
}

// CompleteElapsed moves Confirmed reservations past their end time to
// Completed and frees their cabins.
func (s *Service) CompleteElapsed(ctx context.Context, now time.Time) (int, error) {
	confirmed, err := s.store.ListByStatus(ctx, domain.StatusConfirmed)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, res := range confirmed {
		if res.EndTime.After(now) {
			continue
		}
		if s.transition(ctx, res.ID, domain.StatusConfirmed, domain.StatusCompleted, "reservation.completed") {
			observability.ReservationsCompleted.Inc()
			count++
		}
	}
	return count, nil
}

// transition performs one sweep transition under the reservation lock,
// re-checking the expected status after acquisition. Returns whether
// the transition happened.
func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus, auditAction string) bool {
	unlock := s.locks.lock(id)
	defer unlock()

	res, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("reservation_id", id).Warn("sweep read failed")
		return false
	}
	if res.Status != from {
		// lost the race to a confirm/cancel, nothing to do
		return false
	}

	s.releaseAll(res)
	res.Status = to
	if err := s.store.Update(ctx, res); err != nil {
		s.logger.WithError(err).WithField("reservation_id", id).Warn("sweep write failed, will retry next tick")
		return false
	}
	s.auditLog(ctx, auditAction, res)
	return true
}

func (s *Service) releaseAll(res domain.Reservation) {
	for _, n := range res.CabinNumbers {
		if err := s.registry.Release(res.VenueID, n, res.ID); err != nil {
			s.logger.WithError(err).
				WithField("reservation_id", res.ID).
				WithField("cabin", n).
				Error("cabin release failed")
		}
	}
}

// rollbackHolds releases, in reverse acquisition order, the cabins a
// failed multi-cabin hold already claimed.
func (s *Service) rollbackHolds(venueID string, held []int, resID uuid.UUID) {
	for i := len(held) - 1; i >= 0; i-- {
		if err := s.registry.Release(venueID, held[i], resID); err != nil {
			s.logger.WithError(err).WithField("cabin", held[i]).Error("hold rollback failed")
		}
	}
}

func (s *Service) auditLog(ctx context.Context, action string, res domain.Reservation) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogReservation(ctx, action, res); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("audit write failed")
	}
}

func normalizeCabins(numbers []int) []int {
	seen := make(map[int]struct{}, len(numbers))
	out := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if n <= 0 {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// reservationLocks hands out one mutex per reservation id. Entries are
// kept for the life of the process; the set is bounded by the number of
// reservations ever created by this node.
type reservationLocks struct {
	mu sync.Mutex
	m  map[uuid.UUID]*sync.Mutex
}

func (l *reservationLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[uuid.UUID]*sync.Mutex)
	}
	mu, ok := l.m[id]
	if !ok {
		mu = &sync.Mutex{}
		l.m[id] = mu
	}
	l.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}
