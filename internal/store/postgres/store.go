// Package postgres is the durable ReservationStore. The registry
// remains the arbiter of cabin allocation; this store keeps the
// reservation rows and the user index behind history queries.
package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Silicom-11/synaplink-engine/internal/domain"
)

const serializationFailureCode = "40001"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the tables and indexes on first run.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS reservations (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			venue_id TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			duration_minutes INT NOT NULL,
			price_cents BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('Held', 'Confirmed', 'Completed', 'Cancelled', 'Expired')),
			points_earned INT NOT NULL DEFAULT 0,
			hold_deadline TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS reservation_cabins (
			reservation_id UUID NOT NULL REFERENCES reservations (id),
			cabin_number INT NOT NULL,
			PRIMARY KEY (reservation_id, cabin_number)
		);
		CREATE INDEX IF NOT EXISTS reservations_user_idx ON reservations (user_id);
		CREATE INDEX IF NOT EXISTS reservations_status_idx ON reservations (status);
	`)
	return errors.Wrap(err, "ensure schema")
}

// WithTx runs fn in a serializable transaction, mapping retryable
// serialization failures to the domain sentinel.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
		return err
	}

	if err = fn(tx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) Create(ctx context.Context, res domain.Reservation) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO reservations (id, user_id, venue_id, start_time, end_time, duration_minutes,
				price_cents, currency, status, points_earned, hold_deadline, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, res.ID, res.UserID, res.VenueID, res.StartTime, res.EndTime, res.DurationMinutes,
			res.Price.Cents, res.Price.Currency, res.Status, res.PointsEarned, res.HoldDeadline, res.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "insert reservation")
		}
		for _, n := range res.CabinNumbers {
			if _, err := tx.Exec(ctx, `
				INSERT INTO reservation_cabins (reservation_id, cabin_number)
				VALUES ($1, $2)
			`, res.ID, n); err != nil {
				return errors.Wrap(err, "insert reservation cabin")
			}
		}
		return nil
	})
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	var res domain.Reservation
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, venue_id, start_time, end_time, duration_minutes,
			price_cents, currency, status, points_earned, hold_deadline, created_at
		FROM reservations WHERE id = $1
	`, id).Scan(&res.ID, &res.UserID, &res.VenueID, &res.StartTime, &res.EndTime, &res.DurationMinutes,
		&res.Price.Cents, &res.Price.Currency, &res.Status, &res.PointsEarned, &res.HoldDeadline, &res.CreatedAt)
	if err == pgx.ErrNoRows {
		return domain.Reservation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Reservation{}, errors.Wrap(err, "get reservation")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT cabin_number FROM reservation_cabins
		WHERE reservation_id = $1 ORDER BY cabin_number
	`, id)
	if err != nil {
		return domain.Reservation{}, errors.Wrap(err, "get reservation cabins")
	}
	defer rows.Close()

	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return domain.Reservation{}, err
		}
		res.CabinNumbers = append(res.CabinNumbers, n)
	}
	return res, rows.Err()
}

// Update persists a status transition. Everything except status and
// points is immutable after creation, so only those columns move.
func (s *Store) Update(ctx context.Context, res domain.Reservation) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE reservations SET status = $2, points_earned = $3 WHERE id = $1
	`, res.ID, res.Status, res.PointsEarned)
	if err != nil {
		return errors.Wrap(err, "update reservation")
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	return s.list(ctx, `WHERE r.user_id = $1`, userID)
}

func (s *Store) ListByStatus(ctx context.Context, status domain.ReservationStatus) ([]domain.Reservation, error) {
	return s.list(ctx, `WHERE r.status = $1`, string(status))
}

// list joins the cabin rows and regroups them per reservation while
// scanning, so each reservation comes back with its full cabin set.
func (s *Store) list(ctx context.Context, where string, arg any) ([]domain.Reservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.user_id, r.venue_id, r.start_time, r.end_time, r.duration_minutes,
			r.price_cents, r.currency, r.status, r.points_earned, r.hold_deadline, r.created_at,
			c.cabin_number
		FROM reservations r
		JOIN reservation_cabins c ON c.reservation_id = r.id
		`+where+`
		ORDER BY r.id, c.cabin_number
	`, arg)
	if err != nil {
		return nil, errors.Wrap(err, "list reservations")
	}
	defer rows.Close()

	var out []domain.Reservation
	var current *domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		var cabin int
		if err := rows.Scan(&res.ID, &res.UserID, &res.VenueID, &res.StartTime, &res.EndTime, &res.DurationMinutes,
			&res.Price.Cents, &res.Price.Currency, &res.Status, &res.PointsEarned, &res.HoldDeadline, &res.CreatedAt,
			&cabin); err != nil {
			return nil, err
		}
		if current == nil || current.ID != res.ID {
			if current != nil {
				out = append(out, *current)
			}
			res.CabinNumbers = []int{cabin}
			current = &res
			continue
		}
		current.CabinNumbers = append(current.CabinNumbers, cabin)
	}
	if current != nil {
		out = append(out, *current)
	}
	return out, rows.Err()
}
