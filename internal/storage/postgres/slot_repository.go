package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SlotRepository struct {
	q querier
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{q: querier{pool: pool}}
}

func (r *SlotRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.q.pool, fn)
}

// Create inserts a free slot. An exact start-timestamp collision maps to
// ErrDuplicateSlot via the unique constraint.
func (r *SlotRepository) Create(ctx context.Context, startsAt time.Time, description string, now time.Time) (domain.Slot, error) {
	const stmt = `
INSERT INTO slots (starts_at, description, created_at)
VALUES ($1, $2, $3)
RETURNING id, starts_at, description, is_booked, holder_id, created_at`

	var s domain.Slot
	err := r.q.queryRow(ctx, stmt, startsAt, description, now).
		Scan(&s.ID, &s.StartsAt, &s.Description, &s.Booked, &s.HolderID, &s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Slot{}, domain.ErrDuplicateSlot
		}
		return domain.Slot{}, fmt.Errorf("create slot: %w", err)
	}
	return s, nil
}

func (r *SlotRepository) Get(ctx context.Context, id int64) (domain.Slot, error) {
	const query = `
SELECT id, starts_at, description, is_booked, holder_id, created_at
FROM slots
WHERE id = $1`

	var s domain.Slot
	err := r.q.queryRow(ctx, query, id).
		Scan(&s.ID, &s.StartsAt, &s.Description, &s.Booked, &s.HolderID, &s.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Slot{}, domain.ErrSlotNotFound
		}
		return domain.Slot{}, fmt.Errorf("get slot: %w", err)
	}
	return s, nil
}

// Delete removes a slot that has no active bookings.
func (r *SlotRepository) Delete(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(txCtx context.Context) error {
		var active int
		if err := r.q.queryRow(txCtx, `
SELECT COUNT(*) FROM bookings
WHERE slot_id = $1 AND cancelled_at IS NULL`, id).Scan(&active); err != nil {
			return fmt.Errorf("count active bookings: %w", err)
		}
		if active > 0 {
			return domain.ErrHasActiveBookings
		}

		tag, err := r.q.exec(txCtx, `DELETE FROM slots WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrSlotNotFound
		}
		return nil
	})
}

// ForceDelete cancels every active booking on the slot, deletes it, and
// returns the slot snapshot plus the displaced holders.
func (r *SlotRepository) ForceDelete(ctx context.Context, id int64, now time.Time) (domain.Slot, []domain.AffectedUser, error) {
	var slot domain.Slot
	var affected []domain.AffectedUser

	err := r.WithTx(ctx, func(txCtx context.Context) error {
		const slotQuery = `
SELECT id, starts_at, description, is_booked, holder_id, created_at
FROM slots
WHERE id = $1
FOR UPDATE`
		err := r.q.queryRow(txCtx, slotQuery, id).
			Scan(&slot.ID, &slot.StartsAt, &slot.Description, &slot.Booked, &slot.HolderID, &slot.CreatedAt)
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrSlotNotFound
			}
			return fmt.Errorf("get slot: %w", err)
		}

		const affectedQuery = `
SELECT b.user_id, COALESCE(u.handle, '')
FROM bookings b
LEFT JOIN users u ON u.id = b.user_id
WHERE b.slot_id = $1 AND b.cancelled_at IS NULL`
		rows, err := r.q.query(txCtx, affectedQuery, id)
		if err != nil {
			return fmt.Errorf("list affected users: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var u domain.AffectedUser
			if err := rows.Scan(&u.UserID, &u.Handle); err != nil {
				return fmt.Errorf("scan affected user: %w", err)
			}
			affected = append(affected, u)
		}
		if rows.Err() != nil {
			return fmt.Errorf("iterate affected users: %w", rows.Err())
		}

		if _, err := r.q.exec(txCtx, `
UPDATE bookings SET cancelled_at = $2
WHERE slot_id = $1 AND cancelled_at IS NULL`, id, now); err != nil {
			return fmt.Errorf("cancel slot bookings: %w", err)
		}
		if _, err := r.q.exec(txCtx, `DELETE FROM slots WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Slot{}, nil, err
	}
	return slot, affected, nil
}

// ListAvailable returns free slots starting strictly after the cutoff
// (now + lead time), soonest first.
func (r *SlotRepository) ListAvailable(ctx context.Context, cutoff time.Time) ([]domain.Slot, error) {
	const query = `
SELECT id, starts_at, description, is_booked, holder_id, created_at
FROM slots
WHERE starts_at > $1 AND is_booked = FALSE
ORDER BY starts_at ASC`

	return r.listSlots(ctx, query, cutoff)
}

// ListAvailableInMonth is ListAvailable narrowed to one calendar month.
func (r *SlotRepository) ListAvailableInMonth(ctx context.Context, year int, month time.Month, cutoff time.Time) ([]domain.Slot, error) {
	const query = `
SELECT id, starts_at, description, is_booked, holder_id, created_at
FROM slots
WHERE starts_at > $1
  AND starts_at >= $2 AND starts_at < $3
  AND is_booked = FALSE
ORDER BY starts_at ASC`

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return r.listSlots(ctx, query, cutoff, from, from.AddDate(0, 1, 0))
}

func (r *SlotRepository) listSlots(ctx context.Context, query string, args ...any) ([]domain.Slot, error) {
	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		var s domain.Slot
		if err := rows.Scan(&s.ID, &s.StartsAt, &s.Description, &s.Booked, &s.HolderID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate slots: %w", rows.Err())
	}
	return slots, nil
}
