package notify

import (
	"context"
	"log"
	"time"
)

// Event kinds emitted alongside user-facing messages.
const (
	EventBookingCancelled = "booking.cancelled"
	EventSlotForceDeleted = "slot.force_deleted"
)

// Event is a structured record of a state change other systems may react
// to. Unset id fields are omitted from the payload.
type Event struct {
	Kind      string    `json:"kind"`
	UserID    int64     `json:"user_id,omitempty"`
	SlotID    int64     `json:"slot_id,omitempty"`
	BookingID int64     `json:"booking_id,omitempty"`
	StartsAt  time.Time `json:"starts_at,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier delivers user messages and structured events, best effort.
// Implementations must never block longer than the context allows.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string) error
	Publish(ctx context.Context, event Event) error
}

// LogNotifier writes notifications to the process log. It is the fallback
// when no message broker is configured.
type LogNotifier struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, userID int64, message string) error {
	n.logger.Printf("[notify] user=%d %s", userID, message)
	return nil
}

func (n *LogNotifier) Publish(_ context.Context, event Event) error {
	n.logger.Printf("[event] kind=%s user=%d slot=%d booking=%d", event.Kind, event.UserID, event.SlotID, event.BookingID)
	return nil
}
