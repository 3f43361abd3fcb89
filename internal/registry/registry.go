// Package registry holds the authoritative occupancy state of every
// cabin and is the single serialization point for cabin allocation.
// Two concurrent hold attempts on the same cabin can never both
// succeed: every transition runs under that cabin's own mutex.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Silicom-11/synaplink-engine/internal/domain"
)

type cabinKey struct {
	venueID string
	number  int
}

type cabinSlot struct {
	mu        sync.Mutex
	state     domain.CabinState
	resID     *uuid.UUID
	expiresAt *time.Time
}

// Notifier receives a snapshot after every successful state transition.
// It runs outside the cabin lock and must not block for long.
type Notifier func(domain.Cabin)

type Registry struct {
	mu       sync.RWMutex // guards the maps, never held across a slot lock
	cabins   map[cabinKey]*cabinSlot
	byVenue  map[string][]int // provisioned numbers, sorted
	notifier Notifier
}

func New() *Registry {
	return &Registry{
		cabins:  make(map[cabinKey]*cabinSlot),
		byVenue: make(map[string][]int),
	}
}

// SetNotifier installs the state-change callback. Call before serving.
func (r *Registry) SetNotifier(n Notifier) {
	r.mu.Lock()
	r.notifier = n
	r.mu.Unlock()
}

// Provision registers a venue's cabin inventory as Free. Numbers already
// provisioned keep their current state.
func (r *Registry) Provision(venueID string, numbers []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range numbers {
		k := cabinKey{venueID: venueID, number: n}
		if _, ok := r.cabins[k]; ok {
			continue
		}
		r.cabins[k] = &cabinSlot{state: domain.CabinFree}
		r.byVenue[venueID] = append(r.byVenue[venueID], n)
	}
	sort.Ints(r.byVenue[venueID])
}

func (r *Registry) slot(venueID string, number int) *cabinSlot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cabins[cabinKey{venueID: venueID, number: number}]
}

// List returns a snapshot of the venue's cabins ordered by number.
func (r *Registry) List(venueID string) []domain.Cabin {
	r.mu.RLock()
	numbers := append([]int(nil), r.byVenue[venueID]...)
	r.mu.RUnlock()

	out := make([]domain.Cabin, 0, len(numbers))
	for _, n := range numbers {
		s := r.slot(venueID, n)
		if s == nil {
			continue
		}
		s.mu.Lock()
		out = append(out, snapshot(venueID, n, s))
		s.mu.Unlock()
	}
	return out
}

// TryMarkHeld is the compare-and-set at the heart of hold creation:
// it succeeds only when the cabin is currently Free.
func (r *Registry) TryMarkHeld(venueID string, number int, reservationID uuid.UUID, expiresAt time.Time) error {
	s := r.slot(venueID, number)
	if s == nil {
		return domain.ErrNotFound
	}
	s.mu.Lock()
	if s.state != domain.CabinFree {
		s.mu.Unlock()
		return domain.ErrConflict
	}
	id := reservationID
	exp := expiresAt
	s.state = domain.CabinHeld
	s.resID = &id
	s.expiresAt = &exp
	snap := snapshot(venueID, number, s)
	s.mu.Unlock()

	r.notify(snap)
	return nil
}

// MarkConfirmed advances a Held cabin once its reservation is paid.
// The cabin shows Reserved until the session starts and Occupied after,
// and stays claimed until endTime.
func (r *Registry) MarkConfirmed(venueID string, number int, reservationID uuid.UUID, now, startTime, endTime time.Time) error {
	s := r.slot(venueID, number)
	if s == nil {
		return domain.ErrNotFound
	}
	s.mu.Lock()
	if s.state != domain.CabinHeld || s.resID == nil || *s.resID != reservationID {
		s.mu.Unlock()
		return domain.ErrNotHeldByReservation
	}
	if now.Before(startTime) {
		s.state = domain.CabinReserved
	} else {
		s.state = domain.CabinOccupied
	}
	end := endTime
	s.expiresAt = &end
	snap := snapshot(venueID, number, s)
	s.mu.Unlock()

	r.notify(snap)
	return nil
}

// Release returns the cabin to Free. Only the reservation that owns the
// cabin may release it; releasing a Free cabin is a no-op.
func (r *Registry) Release(venueID string, number int, reservationID uuid.UUID) error {
	s := r.slot(venueID, number)
	if s == nil {
		return domain.ErrNotFound
	}
	s.mu.Lock()
	if s.state == domain.CabinFree {
		s.mu.Unlock()
		return nil
	}
	if s.resID == nil || *s.resID != reservationID {
		s.mu.Unlock()
		return domain.ErrNotOwnedByReservation
	}
	s.state = domain.CabinFree
	s.resID = nil
	s.expiresAt = nil
	snap := snapshot(venueID, number, s)
	s.mu.Unlock()

	r.notify(snap)
	return nil
}

func (r *Registry) notify(c domain.Cabin) {
	r.mu.RLock()
	n := r.notifier
	r.mu.RUnlock()
	if n != nil {
		n(c)
	}
}

func snapshot(venueID string, number int, s *cabinSlot) domain.Cabin {
	c := domain.Cabin{
		VenueID: venueID,
		Number:  number,
		State:   s.state,
	}
	if s.resID != nil {
		id := *s.resID
		c.ActiveReservationID = &id
	}
	if s.expiresAt != nil {
		t := *s.expiresAt
		c.StateExpiresAt = &t
	}
	return c
}
