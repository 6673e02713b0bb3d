package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/domain"
	"github.com/Igor-hub-it/schedule-bot/internal/testutil"
)

func TestBookingRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewBookingRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("GetSlotForUpdate returns the slot inside a tx", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()
		slotID := testutil.InsertSlot(t, ctx, pool, now.Add(48*time.Hour), "court")

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			slot, err := repo.GetSlotForUpdate(txCtx, slotID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if slot.ID != slotID || slot.Booked {
				t.Fatalf("unexpected slot: %+v", slot)
			}

			if _, err := repo.GetSlotForUpdate(txCtx, 9999); err != domain.ErrSlotNotFound {
				t.Fatalf("expected ErrSlotNotFound, got %v", err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}
	})

	t.Run("second active booking for a slot is rejected", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		testutil.InsertUser(t, ctx, pool, 100, "alice", true, "user")
		testutil.InsertUser(t, ctx, pool, 200, "bob", true, "user")
		slotID := testutil.InsertSlot(t, ctx, pool, now.Add(48*time.Hour), "court")

		if _, err := repo.CreateBooking(ctx, slotID, 100, now); err != nil {
			t.Fatalf("first booking: %v", err)
		}
		if _, err := repo.CreateBooking(ctx, slotID, 200, now); err != domain.ErrSlotAlreadyBooked {
			t.Fatalf("expected ErrSlotAlreadyBooked, got %v", err)
		}
	})

	t.Run("cancel frees the slot for a new booking", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		testutil.InsertUser(t, ctx, pool, 100, "alice", true, "user")
		slotID := testutil.InsertSlot(t, ctx, pool, now.Add(48*time.Hour), "court")
		bookingID := testutil.InsertBooking(t, ctx, pool, slotID, 100)

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			booking, startsAt, err := repo.GetBookingForUpdate(txCtx, bookingID)
			if err != nil {
				t.Fatalf("get booking: %v", err)
			}
			if !booking.Active() {
				t.Fatalf("expected active booking")
			}
			if startsAt.IsZero() {
				t.Fatalf("expected slot start returned")
			}
			if err := repo.FreeSlot(txCtx, slotID); err != nil {
				t.Fatalf("free slot: %v", err)
			}
			return repo.CancelBooking(txCtx, bookingID, now)
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		if err := repo.CancelBooking(ctx, bookingID, now); err != domain.ErrBookingAlreadyCancelled {
			t.Fatalf("expected ErrBookingAlreadyCancelled, got %v", err)
		}

		if _, err := repo.CreateBooking(ctx, slotID, 100, now); err != nil {
			t.Fatalf("expected rebooking to succeed, got %v", err)
		}
	})

	t.Run("GetBookingForUpdate unknown id", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if _, _, err := repo.GetBookingForUpdate(ctx, 42); err != domain.ErrBookingNotFound {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
	})

	t.Run("ListActiveByUser skips cancelled and past bookings", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		testutil.InsertUser(t, ctx, pool, 100, "alice", true, "user")
		pastID := testutil.InsertSlot(t, ctx, pool, now.Add(-24*time.Hour), "yesterday")
		futureID := testutil.InsertSlot(t, ctx, pool, now.Add(48*time.Hour), "future court")
		cancelledSlotID := testutil.InsertSlot(t, ctx, pool, now.Add(72*time.Hour), "cancelled court")

		testutil.InsertBooking(t, ctx, pool, pastID, 100)
		futureBooking := testutil.InsertBooking(t, ctx, pool, futureID, 100)
		cancelledBooking := testutil.InsertBooking(t, ctx, pool, cancelledSlotID, 100)
		if _, err := pool.Exec(ctx, `UPDATE bookings SET cancelled_at = NOW() WHERE id = $1`, cancelledBooking); err != nil {
			t.Fatalf("cancel booking: %v", err)
		}

		details, err := repo.ListActiveByUser(ctx, 100, now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(details) != 1 || details[0].BookingID != futureBooking {
			t.Fatalf("expected only the future active booking, got %+v", details)
		}
		if details[0].Description != "future court" {
			t.Fatalf("expected slot description joined, got %q", details[0].Description)
		}
	})

	t.Run("ListAllActive keeps bookings of removed users", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		testutil.InsertUser(t, ctx, pool, 100, "alice", true, "user")
		slotID := testutil.InsertSlot(t, ctx, pool, now.Add(48*time.Hour), "court")
		testutil.InsertBooking(t, ctx, pool, slotID, 100)

		details, err := repo.ListAllActive(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(details) != 1 || details[0].UserHandle != "alice" {
			t.Fatalf("expected alice's booking with handle, got %+v", details)
		}

		// Deleting the user must not break the projection.
		if _, err := pool.Exec(ctx, `UPDATE slots SET is_booked = FALSE, holder_id = NULL WHERE id = $1`, slotID); err != nil {
			t.Fatalf("free slot: %v", err)
		}
		if _, err := pool.Exec(ctx, `DELETE FROM users WHERE id = 100`); err != nil {
			t.Fatalf("delete user: %v", err)
		}
		details, err = repo.ListAllActive(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(details) != 1 || details[0].UserHandle != "" {
			t.Fatalf("expected booking kept with empty handle, got %+v", details)
		}
	})
}
