package registry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Silicom-11/synaplink-engine/internal/domain"
)

const venue = "silicom"

func TestProvisionAndListOrder(t *testing.T) {
	r := New()
	r.Provision(venue, []int{5, 1, 3})
	r.Provision(venue, []int{3, 2}) // 3 already provisioned

	cabins := r.List(venue)
	if len(cabins) != 4 {
		t.Fatalf("expected 4 cabins, got %d", len(cabins))
	}
	want := []int{1, 2, 3, 5}
	for i, c := range cabins {
		if c.Number != want[i] {
			t.Errorf("cabin %d: number = %d, want %d", i, c.Number, want[i])
		}
		if c.State != domain.CabinFree {
			t.Errorf("cabin %d: state = %s, want Free", c.Number, c.State)
		}
	}
}

func TestTryMarkHeldConflict(t *testing.T) {
	r := New()
	r.Provision(venue, []int{1})
	exp := time.Now().Add(5 * time.Minute)

	first := uuid.New()
	if err := r.TryMarkHeld(venue, 1, first, exp); err != nil {
		t.Fatalf("first hold: %v", err)
	}
	err := r.TryMarkHeld(venue, 1, uuid.New(), exp)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second hold = %v, want ErrConflict", err)
	}

	cabins := r.List(venue)
	if cabins[0].State != domain.CabinHeld {
		t.Errorf("state = %s, want Held", cabins[0].State)
	}
	if cabins[0].ActiveReservationID == nil || *cabins[0].ActiveReservationID != first {
		t.Error("active reservation should be the first holder")
	}
}

func TestTryMarkHeldUnknownCabin(t *testing.T) {
	r := New()
	r.Provision(venue, []int{1})
	err := r.TryMarkHeld(venue, 99, uuid.New(), time.Now())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestConcurrentHoldsExactlyOneWinner(t *testing.T) {
	r := New()
	r.Provision(venue, []int{7})
	exp := time.Now().Add(5 * time.Minute)

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- r.TryMarkHeld(venue, 7, uuid.New(), exp)
		}()
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != attempts-1 {
		t.Fatalf("wins = %d, conflicts = %d, want 1 and %d", wins, conflicts, attempts-1)
	}
}

func TestMarkConfirmedStates(t *testing.T) {
	r := New()
	r.Provision(venue, []int{1, 2})
	now := time.Now()
	resA, resB := uuid.New(), uuid.New()

	if err := r.TryMarkHeld(venue, 1, resA, now.Add(5*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := r.TryMarkHeld(venue, 2, resB, now.Add(5*time.Minute)); err != nil {
		t.Fatal(err)
	}

	// session already started: Occupied
	if err := r.MarkConfirmed(venue, 1, resA, now, now.Add(-time.Minute), now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	// session starts later: Reserved
	if err := r.MarkConfirmed(venue, 2, resB, now, now.Add(30*time.Minute), now.Add(90*time.Minute)); err != nil {
		t.Fatal(err)
	}

	cabins := r.List(venue)
	if cabins[0].State != domain.CabinOccupied {
		t.Errorf("cabin 1 state = %s, want Occupied", cabins[0].State)
	}
	if cabins[1].State != domain.CabinReserved {
		t.Errorf("cabin 2 state = %s, want Reserved", cabins[1].State)
	}
	if cabins[0].StateExpiresAt == nil || !cabins[0].StateExpiresAt.Equal(now.Add(time.Hour)) {
		t.Error("cabin 1 should expose the session end time")
	}
}

func TestMarkConfirmedWrongOwner(t *testing.T) {
	r := New()
	r.Provision(venue, []int{1})
	now := time.Now()
	if err := r.TryMarkHeld(venue, 1, uuid.New(), now.Add(5*time.Minute)); err != nil {
		t.Fatal(err)
	}
	err := r.MarkConfirmed(venue, 1, uuid.New(), now, now, now.Add(time.Hour))
	if !errors.Is(err, domain.ErrNotHeldByReservation) {
		t.Fatalf("got %v, want ErrNotHeldByReservation", err)
	}
}

func TestReleaseOwnership(t *testing.T) {
	r := New()
	r.Provision(venue, []int{1})
	owner := uuid.New()
	if err := r.TryMarkHeld(venue, 1, owner, time.Now().Add(5*time.Minute)); err != nil {
		t.Fatal(err)
	}

	if err := r.Release(venue, 1, uuid.New()); !errors.Is(err, domain.ErrNotOwnedByReservation) {
		t.Fatalf("foreign release = %v, want ErrNotOwnedByReservation", err)
	}
	if err := r.Release(venue, 1, owner); err != nil {
		t.Fatalf("owner release: %v", err)
	}
	if got := r.List(venue)[0].State; got != domain.CabinFree {
		t.Errorf("state after release = %s, want Free", got)
	}
	// releasing a Free cabin is a no-op, not an error
	if err := r.Release(venue, 1, owner); err != nil {
		t.Fatalf("double release: %v", err)
	}
}

func TestNotifierReceivesTransitions(t *testing.T) {
	r := New()
	r.Provision(venue, []int{1})

	var mu sync.Mutex
	var seen []domain.CabinState
	r.SetNotifier(func(c domain.Cabin) {
		mu.Lock()
		seen = append(seen, c.State)
		mu.Unlock()
	})

	res := uuid.New()
	now := time.Now()
	if err := r.TryMarkHeld(venue, 1, res, now.Add(5*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := r.MarkConfirmed(venue, 1, res, now, now, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := r.Release(venue, 1, res); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []domain.CabinState{domain.CabinHeld, domain.CabinOccupied, domain.CabinFree}
	if len(seen) != len(want) {
		t.Fatalf("notifications = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("notifications = %v, want %v", seen, want)
		}
	}
}
