package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Silicom-11/synaplink-engine/internal/domain"
	"github.com/Silicom-11/synaplink-engine/internal/store/postgres"
)

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16",
			Env:          map[string]string{"POSTGRES_USER": "synaplink", "POSTGRES_PASSWORD": "synaplink", "POSTGRES_DB": "synaplink"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForListeningPort("5432/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}

	dsn := "postgresql://synaplink:synaplink@" + host + ":" + port.Port() + "/synaplink?sslmode=disable"
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	st := postgres.NewStore(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	return st
}

func sample(userID string, status domain.ReservationStatus, cabins []int) domain.Reservation {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.Reservation{
		ID:              uuid.New(),
		UserID:          userID,
		VenueID:         "silicom",
		CabinNumbers:    cabins,
		StartTime:       now,
		EndTime:         now.Add(time.Hour),
		DurationMinutes: 60,
		Price:           domain.NewSoles(200),
		Status:          status,
		HoldDeadline:    now.Add(5 * time.Minute),
		CreatedAt:       now,
	}
}

func TestStoreRoundtrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	res := sample("u-1001", domain.StatusHeld, []int{5, 6})
	if err := st.Create(ctx, res); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := st.Get(ctx, res.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusHeld || got.Price.Cents != 200 || got.Price.Currency != domain.CurrencyPEN {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
	if len(got.CabinNumbers) != 2 || got.CabinNumbers[0] != 5 || got.CabinNumbers[1] != 6 {
		t.Errorf("cabins = %v, want [5 6]", got.CabinNumbers)
	}

	got.Status = domain.StatusConfirmed
	got.PointsEarned = 10
	if err := st.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, err := st.Get(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Status != domain.StatusConfirmed || again.PointsEarned != 10 {
		t.Errorf("after update: %+v", again)
	}
}

func TestStoreNotFound(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.Get(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
	if err := st.Update(ctx, sample("u-1001", domain.StatusHeld, []int{1})); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update missing = %v, want ErrNotFound", err)
	}
}

func TestStoreIndexes(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, res := range []domain.Reservation{
		sample("u-1001", domain.StatusHeld, []int{1}),
		sample("u-1001", domain.StatusConfirmed, []int{2, 3}),
		sample("u-2002", domain.StatusHeld, []int{4}),
	} {
		if err := st.Create(ctx, res); err != nil {
			t.Fatal(err)
		}
	}

	mine, err := st.ListByUser(ctx, "u-1001")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Errorf("ListByUser = %d reservations, want 2", len(mine))
	}

	held, err := st.ListByStatus(ctx, domain.StatusHeld)
	if err != nil {
		t.Fatal(err)
	}
	if len(held) != 2 {
		t.Errorf("ListByStatus(Held) = %d, want 2", len(held))
	}
	for _, res := range held {
		if res.Status != domain.StatusHeld {
			t.Errorf("unexpected status %s in Held listing", res.Status)
		}
	}
}
