package app

import (
	"context"
	"log"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/clock"
	"github.com/Igor-hub-it/schedule-bot/internal/domain"
	"github.com/Igor-hub-it/schedule-bot/internal/notify"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetSlotForUpdate(ctx context.Context, slotID int64) (domain.Slot, error)
	MarkSlotBooked(ctx context.Context, slotID, userID int64) error
	CreateBooking(ctx context.Context, slotID, userID int64, now time.Time) (int64, error)
	GetBookingForUpdate(ctx context.Context, bookingID int64) (domain.Booking, time.Time, error)
	FreeSlot(ctx context.Context, slotID int64) error
	CancelBooking(ctx context.Context, bookingID int64, now time.Time) error
	ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]domain.BookingDetail, error)
	ListActiveByUserInMonth(ctx context.Context, userID int64, year int, month time.Month) ([]domain.BookingDetail, error)
	ListAllActive(ctx context.Context) ([]domain.BookingDetail, error)
}

type SlotLister interface {
	ListAvailable(ctx context.Context, cutoff time.Time) ([]domain.Slot, error)
	ListAvailableInMonth(ctx context.Context, year int, month time.Month, cutoff time.Time) ([]domain.Slot, error)
}

// BookingService is the slot occupancy state machine: book, cancel, and the
// read projections that apply the same filters booking does.
type BookingService struct {
	repo        BookingRepository
	slots       SlotLister
	clock       clock.Clock
	minLeadTime time.Duration
	cancelFloor time.Duration
	notifier    notify.Notifier
	logger      *log.Logger
}

const defaultMinLeadTime = 24 * time.Hour

func NewBookingService(repo BookingRepository, slots SlotLister, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		repo:        repo,
		slots:       slots,
		clock:       clk,
		minLeadTime: defaultMinLeadTime,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

// WithMinLeadTime overrides the default 24h minimum interval between "now"
// and a slot's start for booking.
func WithMinLeadTime(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d >= 0 {
			s.minLeadTime = d
		}
	}
}

// WithCancelFloor sets a minimum interval before slot start under which
// cancellation is refused. Zero (the default) allows cancellation
// arbitrarily close to start.
func WithCancelFloor(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.cancelFloor = d
		}
	}
}

// WithNotifier turns on best-effort event publishing for cancellations.
func WithNotifier(n notify.Notifier, logger *log.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.notifier = n
		if logger == nil {
			logger = log.Default()
		}
		s.logger = logger
	}
}

type BookResult struct {
	BookingID int64
	Slot      domain.Slot
}

// Book transitions a free slot to booked for the user. The slot lock, the
// occupancy flip and the history append are one atomic unit: of two
// concurrent calls on the same slot exactly one wins, the other sees
// ErrSlotAlreadyBooked.
func (s *BookingService) Book(ctx context.Context, slotID, userID int64) (BookResult, error) {
	now := s.clock.Now()
	var result BookResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		slot, err := s.repo.GetSlotForUpdate(txCtx, slotID)
		if err != nil {
			return err
		}
		if slot.Booked {
			return domain.ErrSlotAlreadyBooked
		}
		if slot.StartsAt.Sub(now) < s.minLeadTime {
			return domain.ErrLeadTimeViolation
		}

		if err := s.repo.MarkSlotBooked(txCtx, slot.ID, userID); err != nil {
			return err
		}
		bookingID, err := s.repo.CreateBooking(txCtx, slot.ID, userID, now)
		if err != nil {
			return err
		}

		slot.Booked = true
		holder := userID
		slot.HolderID = &holder
		result = BookResult{BookingID: bookingID, Slot: slot}
		return nil
	})
	if err != nil {
		return BookResult{}, err
	}
	return result, nil
}

// Cancel frees the slot and soft-cancels the booking. Only the booking's
// owner may cancel; repeating the call yields ErrBookingAlreadyCancelled.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID int64) error {
	now := s.clock.Now()

	var slotID int64
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		booking, startsAt, err := s.repo.GetBookingForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}
		if !booking.Active() {
			return domain.ErrBookingAlreadyCancelled
		}
		if booking.UserID != userID {
			return domain.ErrNotBookingOwner
		}
		if s.cancelFloor > 0 && startsAt.Sub(now) < s.cancelFloor {
			return domain.ErrCancelWindowClosed
		}

		if err := s.repo.FreeSlot(txCtx, booking.SlotID); err != nil {
			return err
		}
		slotID = booking.SlotID
		return s.repo.CancelBooking(txCtx, bookingID, now)
	})
	if err != nil {
		return err
	}

	if s.notifier != nil {
		event := notify.Event{
			Kind:      notify.EventBookingCancelled,
			UserID:    userID,
			SlotID:    slotID,
			BookingID: bookingID,
			At:        now,
		}
		if err := s.notifier.Publish(ctx, event); err != nil {
			s.logger.Printf("WARN: publish %s for booking %d: %v", event.Kind, bookingID, err)
		}
	}
	return nil
}

// AvailableSlots lists free slots far enough in the future to be bookable
// right now, so a slot shown as available is always actually bookable
// (modulo a race with a concurrent booker).
func (s *BookingService) AvailableSlots(ctx context.Context) ([]domain.Slot, error) {
	return s.slots.ListAvailable(ctx, s.clock.Now().Add(s.minLeadTime))
}

// AvailableSlotsInMonth is AvailableSlots narrowed to one calendar month.
func (s *BookingService) AvailableSlotsInMonth(ctx context.Context, year int, month time.Month) ([]domain.Slot, error) {
	return s.slots.ListAvailableInMonth(ctx, year, month, s.clock.Now().Add(s.minLeadTime))
}

// UserBookings lists the user's active future bookings, chronological.
func (s *BookingService) UserBookings(ctx context.Context, userID int64) ([]domain.BookingDetail, error) {
	return s.repo.ListActiveByUser(ctx, userID, s.clock.Now())
}

// UserBookingsInMonth lists the user's active bookings in a calendar month.
func (s *BookingService) UserBookingsInMonth(ctx context.Context, userID int64, year int, month time.Month) ([]domain.BookingDetail, error) {
	return s.repo.ListActiveByUserInMonth(ctx, userID, year, month)
}

// AllBookings lists every active booking with holder handles.
func (s *BookingService) AllBookings(ctx context.Context) ([]domain.BookingDetail, error) {
	return s.repo.ListAllActive(ctx)
}
