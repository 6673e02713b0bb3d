package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/app"
	"github.com/Igor-hub-it/schedule-bot/internal/domain"
)

// BookingOperator is the minimal interface needed for booking endpoints.
type BookingOperator interface {
	Book(ctx context.Context, slotID, userID int64) (app.BookResult, error)
	Cancel(ctx context.Context, bookingID, userID int64) error
	UserBookings(ctx context.Context, userID int64) ([]domain.BookingDetail, error)
	UserBookingsInMonth(ctx context.Context, userID int64, year int, month time.Month) ([]domain.BookingDetail, error)
}

// HandleBookings returns an HTTP handler for creating and listing the
// caller's bookings.
func HandleBookings(gate EligibilityGate, svc BookingOperator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, codeMissingActor, "X-Actor-ID header is required")
			return
		}
		if !allowActor(w, r.Context(), gate, actor) {
			return
		}

		switch r.Method {
		case http.MethodGet:
			year, month, scoped, err := monthQuery(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidMonth, err.Error())
				return
			}

			var bookings []domain.BookingDetail
			if scoped {
				bookings, err = svc.UserBookingsInMonth(r.Context(), actor, year, month)
			} else {
				bookings, err = svc.UserBookings(r.Context(), actor)
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			writeJSON(w, http.StatusOK, bookingDetailResponses(bookings))
			return
		case http.MethodPost:
			var req createBookingRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.SlotID <= 0 {
				writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
				return
			}

			result, err := svc.Book(r.Context(), req.SlotID, actor)
			if err != nil {
				switch err {
				case domain.ErrSlotNotFound:
					writeError(w, http.StatusNotFound, codeSlotNotFound, err.Error())
				case domain.ErrSlotAlreadyBooked:
					writeError(w, http.StatusConflict, codeSlotAlreadyBooked, err.Error())
				case domain.ErrLeadTimeViolation:
					writeError(w, http.StatusConflict, codeLeadTimeViolation, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}

			writeJSON(w, http.StatusCreated, createBookingResponse{
				BookingID:   result.BookingID,
				SlotID:      result.Slot.ID,
				StartsAt:    result.Slot.StartsAt,
				Description: result.Slot.Description,
			})
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleCancelBooking returns an HTTP handler for POST /bookings/{id}/cancel.
func HandleCancelBooking(gate EligibilityGate, svc BookingOperator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, ok := parseCancelPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		actor, ok := actorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, codeMissingActor, "X-Actor-ID header is required")
			return
		}
		if !allowActor(w, r.Context(), gate, actor) {
			return
		}

		if err := svc.Cancel(r.Context(), bookingID, actor); err != nil {
			switch err {
			case domain.ErrBookingNotFound:
				writeError(w, http.StatusNotFound, codeBookingNotFound, err.Error())
			case domain.ErrNotBookingOwner:
				writeError(w, http.StatusForbidden, codeNotBookingOwner, err.Error())
			case domain.ErrBookingAlreadyCancelled:
				writeError(w, http.StatusConflict, codeBookingAlreadyCancelled, err.Error())
			case domain.ErrCancelWindowClosed:
				writeError(w, http.StatusConflict, codeCancelWindowClosed, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type createBookingRequest struct {
	SlotID int64 `json:"slot_id"`
}

type createBookingResponse struct {
	BookingID   int64     `json:"booking_id"`
	SlotID      int64     `json:"slot_id"`
	StartsAt    time.Time `json:"starts_at"`
	Description string    `json:"description"`
}

type bookingDetailResponse struct {
	BookingID   int64     `json:"booking_id"`
	SlotID      int64     `json:"slot_id"`
	UserID      int64     `json:"user_id"`
	UserHandle  string    `json:"user_handle,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	Description string    `json:"description"`
}

func bookingDetailResponses(bookings []domain.BookingDetail) []bookingDetailResponse {
	resp := make([]bookingDetailResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, bookingDetailResponse{
			BookingID:   b.BookingID,
			SlotID:      b.SlotID,
			UserID:      b.UserID,
			UserHandle:  b.UserHandle,
			StartsAt:    b.StartsAt,
			Description: b.Description,
		})
	}
	return resp
}

func parseCancelPath(path string) (int64, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return 0, false
	}
	if parts[0] != "bookings" || parts[2] != "cancel" {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
