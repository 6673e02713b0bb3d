package domain

import "time"

// Slot is a bookable unit of time. HolderID is set iff Booked is true; the
// start timestamp is immutable once the slot exists (slots are recreated,
// never edited).
type Slot struct {
	ID          int64
	StartsAt    time.Time
	Description string
	Booked      bool
	HolderID    *int64
	CreatedAt   time.Time
}

// AffectedUser identifies a booking holder displaced by a forced slot
// deletion, for downstream notification.
type AffectedUser struct {
	UserID int64
	Handle string
}
