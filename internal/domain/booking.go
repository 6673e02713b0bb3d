package domain

import "time"

// Booking links one user to one slot occupancy. Cancellation is soft: the
// row is retained and CancelledAt stamped, so a slot accumulates history.
type Booking struct {
	ID          int64
	SlotID      int64
	UserID      int64
	CreatedAt   time.Time
	CancelledAt *time.Time
}

func (b Booking) Active() bool {
	return b.CancelledAt == nil
}

// BookingDetail is a booking joined with its slot for listings. UserHandle
// is filled only by the all-bookings projection.
type BookingDetail struct {
	BookingID   int64
	SlotID      int64
	UserID      int64
	UserHandle  string
	StartsAt    time.Time
	Description string
}

// Stats is the aggregate snapshot shown to administrators. TotalSlots and
// AvailableSlots count future slots only; TotalBookings counts active
// bookings across all time.
type Stats struct {
	TotalUsers     int
	TotalSlots     int
	TotalBookings  int
	AvailableSlots int
	OccupancyRate  float64
}
