package domain

import "errors"

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrNotEligible             = errors.New("user not eligible")
	ErrInvalidRole             = errors.New("invalid role")
	ErrSlotNotFound            = errors.New("slot not found")
	ErrSlotAlreadyBooked       = errors.New("slot already booked")
	ErrLeadTimeViolation       = errors.New("booking lead time not met")
	ErrPastStartTime           = errors.New("slot start is not in the future")
	ErrDuplicateSlot           = errors.New("slot already exists at this time")
	ErrHasActiveBookings       = errors.New("slot has active bookings")
	ErrDescriptionRequired     = errors.New("slot description required")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrNotBookingOwner         = errors.New("booking belongs to another user")
	ErrBookingAlreadyCancelled = errors.New("booking already cancelled")
	ErrCancelWindowClosed      = errors.New("cancellation window closed")
	ErrInvalidID               = errors.New("invalid id")
)
