package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository struct {
	q querier
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{q: querier{pool: pool}}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.q.pool, fn)
}

// GetSlotForUpdate row-locks the slot so the book check-and-set is atomic.
func (r *BookingRepository) GetSlotForUpdate(ctx context.Context, slotID int64) (domain.Slot, error) {
	const query = `
SELECT id, starts_at, description, is_booked, holder_id, created_at
FROM slots
WHERE id = $1
FOR UPDATE`

	var s domain.Slot
	err := r.q.queryRow(ctx, query, slotID).
		Scan(&s.ID, &s.StartsAt, &s.Description, &s.Booked, &s.HolderID, &s.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Slot{}, domain.ErrSlotNotFound
		}
		return domain.Slot{}, fmt.Errorf("get slot: %w", err)
	}
	return s, nil
}

func (r *BookingRepository) MarkSlotBooked(ctx context.Context, slotID, userID int64) error {
	const stmt = `
UPDATE slots SET is_booked = TRUE, holder_id = $2
WHERE id = $1`

	tag, err := r.q.exec(ctx, stmt, slotID, userID)
	if err != nil {
		return fmt.Errorf("mark slot booked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSlotNotFound
	}
	return nil
}

// CreateBooking appends the history row. The partial unique index on
// active bookings is the backstop against two concurrent winners; a
// violation surfaces as ErrSlotAlreadyBooked.
func (r *BookingRepository) CreateBooking(ctx context.Context, slotID, userID int64, now time.Time) (int64, error) {
	const stmt = `
INSERT INTO bookings (slot_id, user_id, created_at)
VALUES ($1, $2, $3)
RETURNING id`

	var id int64
	if err := r.q.queryRow(ctx, stmt, slotID, userID, now).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrSlotAlreadyBooked
		}
		return 0, fmt.Errorf("create booking: %w", err)
	}
	return id, nil
}

// GetBookingForUpdate locks the booking and its slot, returning the slot
// start for the cancellation window check. Bookings whose slot was
// force-deleted were cancelled in that same transaction, so an inner join
// cannot lose an active row.
func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, bookingID int64) (domain.Booking, time.Time, error) {
	const query = `
SELECT b.id, b.slot_id, b.user_id, b.created_at, b.cancelled_at, s.starts_at
FROM bookings b
JOIN slots s ON s.id = b.slot_id
WHERE b.id = $1
FOR UPDATE`

	var b domain.Booking
	var startsAt time.Time
	err := r.q.queryRow(ctx, query, bookingID).
		Scan(&b.ID, &b.SlotID, &b.UserID, &b.CreatedAt, &b.CancelledAt, &startsAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Booking{}, time.Time{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, time.Time{}, fmt.Errorf("get booking: %w", err)
	}
	return b, startsAt, nil
}

func (r *BookingRepository) FreeSlot(ctx context.Context, slotID int64) error {
	const stmt = `
UPDATE slots SET is_booked = FALSE, holder_id = NULL
WHERE id = $1`

	if _, err := r.q.exec(ctx, stmt, slotID); err != nil {
		return fmt.Errorf("free slot: %w", err)
	}
	return nil
}

func (r *BookingRepository) CancelBooking(ctx context.Context, bookingID int64, now time.Time) error {
	const stmt = `
UPDATE bookings SET cancelled_at = $2
WHERE id = $1 AND cancelled_at IS NULL`

	tag, err := r.q.exec(ctx, stmt, bookingID, now)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingAlreadyCancelled
	}
	return nil
}

// ListActiveByUser returns the user's active bookings for slots starting
// after now, chronological.
func (r *BookingRepository) ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]domain.BookingDetail, error) {
	const query = `
SELECT b.id, b.slot_id, b.user_id, s.starts_at, s.description
FROM bookings b
JOIN slots s ON s.id = b.slot_id
WHERE b.user_id = $1 AND b.cancelled_at IS NULL AND s.starts_at > $2
ORDER BY s.starts_at ASC`

	return r.listDetails(ctx, query, false, userID, now)
}

// ListActiveByUserInMonth narrows ListActiveByUser to one calendar month.
func (r *BookingRepository) ListActiveByUserInMonth(ctx context.Context, userID int64, year int, month time.Month) ([]domain.BookingDetail, error) {
	const query = `
SELECT b.id, b.slot_id, b.user_id, s.starts_at, s.description
FROM bookings b
JOIN slots s ON s.id = b.slot_id
WHERE b.user_id = $1 AND b.cancelled_at IS NULL
  AND s.starts_at >= $2 AND s.starts_at < $3
ORDER BY s.starts_at ASC`

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return r.listDetails(ctx, query, false, userID, from, from.AddDate(0, 1, 0))
}

// ListAllActive returns every active booking with the holder's handle.
func (r *BookingRepository) ListAllActive(ctx context.Context) ([]domain.BookingDetail, error) {
	const query = `
SELECT b.id, b.slot_id, b.user_id, COALESCE(u.handle, ''), s.starts_at, s.description
FROM bookings b
JOIN slots s ON s.id = b.slot_id
LEFT JOIN users u ON u.id = b.user_id
WHERE b.cancelled_at IS NULL
ORDER BY s.starts_at ASC`

	return r.listDetails(ctx, query, true)
}

func (r *BookingRepository) listDetails(ctx context.Context, query string, withHandle bool, args ...any) ([]domain.BookingDetail, error) {
	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var details []domain.BookingDetail
	for rows.Next() {
		var d domain.BookingDetail
		var scanErr error
		if withHandle {
			scanErr = rows.Scan(&d.BookingID, &d.SlotID, &d.UserID, &d.UserHandle, &d.StartsAt, &d.Description)
		} else {
			scanErr = rows.Scan(&d.BookingID, &d.SlotID, &d.UserID, &d.StartsAt, &d.Description)
		}
		if scanErr != nil {
			return nil, fmt.Errorf("scan booking: %w", scanErr)
		}
		details = append(details, d)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate bookings: %w", rows.Err())
	}
	return details, nil
}
