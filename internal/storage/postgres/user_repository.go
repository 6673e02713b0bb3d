package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	q querier
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{q: querier{pool: pool}}
}

func (r *UserRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.q.pool, fn)
}

// Upsert creates the user with default role on first contact; for an
// existing user only the handle is refreshed, role and allow flag stay.
func (r *UserRepository) Upsert(ctx context.Context, id int64, handle string) (domain.User, error) {
	const stmt = `
INSERT INTO users (id, handle)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET handle = EXCLUDED.handle
RETURNING id, handle, is_allowed, role, created_at`

	var u domain.User
	err := r.q.queryRow(ctx, stmt, id, handle).
		Scan(&u.ID, &u.Handle, &u.Allowed, &u.Role, &u.CreatedAt)
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Get(ctx context.Context, id int64) (domain.User, error) {
	const query = `
SELECT id, handle, is_allowed, role, created_at
FROM users
WHERE id = $1`

	var u domain.User
	err := r.q.queryRow(ctx, query, id).
		Scan(&u.ID, &u.Handle, &u.Allowed, &u.Role, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	const query = `
SELECT id, handle, is_allowed, role, created_at
FROM users
ORDER BY created_at ASC`

	rows, err := r.q.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Handle, &u.Allowed, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate users: %w", rows.Err())
	}
	return users, nil
}

// SetRole creates the user if absent, so admins can promote users that
// have not registered yet.
func (r *UserRepository) SetRole(ctx context.Context, id int64, role domain.Role) error {
	const stmt = `
INSERT INTO users (id, handle, role)
VALUES ($1, '', $2)
ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role`

	if _, err := r.q.exec(ctx, stmt, id, role); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

// Remove deletes the user and first releases everything they hold: active
// bookings are soft-cancelled and held slots freed, all in one transaction.
// Returns the number of slots freed.
func (r *UserRepository) Remove(ctx context.Context, id int64, now time.Time) (int, error) {
	freed := 0
	err := r.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := r.q.exec(txCtx, `
UPDATE bookings SET cancelled_at = $2
WHERE user_id = $1 AND cancelled_at IS NULL`, id, now); err != nil {
			return fmt.Errorf("cancel user bookings: %w", err)
		}

		tag, err := r.q.exec(txCtx, `
UPDATE slots SET is_booked = FALSE, holder_id = NULL
WHERE holder_id = $1`, id)
		if err != nil {
			return fmt.Errorf("free user slots: %w", err)
		}
		freed = int(tag.RowsAffected())

		tag, err = r.q.exec(txCtx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return freed, nil
}

// Stats aggregates the administrator snapshot. Slot counts consider future
// slots only; the booking count covers all active bookings.
func (r *UserRepository) Stats(ctx context.Context, now time.Time) (domain.Stats, error) {
	const query = `
SELECT
	(SELECT COUNT(*) FROM users),
	(SELECT COUNT(*) FROM slots WHERE starts_at > $1),
	(SELECT COUNT(*) FROM bookings WHERE cancelled_at IS NULL),
	(SELECT COUNT(*) FROM slots WHERE starts_at > $1 AND is_booked = FALSE)`

	var s domain.Stats
	err := r.q.queryRow(ctx, query, now).
		Scan(&s.TotalUsers, &s.TotalSlots, &s.TotalBookings, &s.AvailableSlots)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("stats: %w", err)
	}
	if s.TotalSlots > 0 {
		s.OccupancyRate = float64(s.TotalBookings) / float64(s.TotalSlots) * 100
	}
	return s, nil
}
