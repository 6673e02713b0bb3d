package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/domain"
)

// SlotBrowser is the minimal interface needed to list bookable slots.
type SlotBrowser interface {
	AvailableSlots(ctx context.Context) ([]domain.Slot, error)
	AvailableSlotsInMonth(ctx context.Context, year int, month time.Month) ([]domain.Slot, error)
}

// EligibilityGate verifies that a user may interact with the schedule.
type EligibilityGate interface {
	Check(ctx context.Context, userID int64) error
}

// HandleSlots returns an HTTP handler for listing available slots.
func HandleSlots(gate EligibilityGate, svc SlotBrowser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
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

		year, month, scoped, err := monthQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidMonth, err.Error())
			return
		}

		var slots []domain.Slot
		if scoped {
			slots, err = svc.AvailableSlotsInMonth(r.Context(), year, month)
		} else {
			slots, err = svc.AvailableSlots(r.Context())
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		resp := make([]slotResponse, 0, len(slots))
		for _, slot := range slots {
			resp = append(resp, slotResponse{
				ID:          slot.ID,
				StartsAt:    slot.StartsAt,
				Description: slot.Description,
				Booked:      slot.Booked,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// allowActor runs the eligibility gate and writes the failure response
// itself. Callers return immediately when it reports false.
func allowActor(w http.ResponseWriter, ctx context.Context, gate EligibilityGate, actor int64) bool {
	err := gate.Check(ctx, actor)
	switch err {
	case nil:
		return true
	case domain.ErrNotEligible:
		writeError(w, http.StatusForbidden, codeNotEligible, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
	return false
}

type slotResponse struct {
	ID          int64     `json:"id"`
	StartsAt    time.Time `json:"starts_at"`
	Description string    `json:"description"`
	Booked      bool      `json:"booked"`
}
