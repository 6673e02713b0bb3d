package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/clock"
	"github.com/Igor-hub-it/schedule-bot/internal/domain"
	"github.com/Igor-hub-it/schedule-bot/internal/notify"
)

type SlotRepository interface {
	Create(ctx context.Context, startsAt time.Time, description string, now time.Time) (domain.Slot, error)
	Delete(ctx context.Context, id int64) error
	ForceDelete(ctx context.Context, id int64, now time.Time) (domain.Slot, []domain.AffectedUser, error)
}

// SlotService manages the slot inventory.
type SlotService struct {
	repo     SlotRepository
	clock    clock.Clock
	notifier notify.Notifier
	logger   *log.Logger
}

func NewSlotService(repo SlotRepository, clk clock.Clock, notifier notify.Notifier, logger *log.Logger) *SlotService {
	if logger == nil {
		logger = log.Default()
	}
	return &SlotService{
		repo:     repo,
		clock:    clk,
		notifier: notifier,
		logger:   logger,
	}
}

type CreateSlotInput struct {
	StartsAt    time.Time
	Description string
}

// CreateSlot adds a free slot. The start must be strictly in the future;
// an exact-timestamp collision with an existing slot is rejected.
func (s *SlotService) CreateSlot(ctx context.Context, in CreateSlotInput) (domain.Slot, error) {
	if in.Description == "" {
		return domain.Slot{}, domain.ErrDescriptionRequired
	}
	now := s.clock.Now()
	if !in.StartsAt.After(now) {
		return domain.Slot{}, domain.ErrPastStartTime
	}
	return s.repo.Create(ctx, in.StartsAt.UTC(), in.Description, now)
}

// DeleteSlot removes a slot, refusing while active bookings reference it.
func (s *SlotService) DeleteSlot(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ForceDeleteSlot overrides the active-booking guard: it cancels all active
// bookings, deletes the slot, and notifies each displaced holder. Delivery
// is best-effort; a failed notification never aborts the deletion.
func (s *SlotService) ForceDeleteSlot(ctx context.Context, id int64) ([]domain.AffectedUser, error) {
	slot, affected, err := s.repo.ForceDelete(ctx, id, s.clock.Now())
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Your booking for %s (%s) was cancelled: the slot has been removed.",
		slot.StartsAt.Format("02.01.2006 15:04"), slot.Description)
	for _, u := range affected {
		if err := s.notifier.Notify(ctx, u.UserID, msg); err != nil {
			s.logger.Printf("WARN: notify user %d about slot %d deletion: %v", u.UserID, id, err)
		}
	}

	event := notify.Event{
		Kind:     notify.EventSlotForceDeleted,
		SlotID:   id,
		StartsAt: slot.StartsAt,
		At:       s.clock.Now(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Printf("WARN: publish %s for slot %d: %v", event.Kind, id, err)
	}
	return affected, nil
}
