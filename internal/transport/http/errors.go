package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed        = "method_not_allowed"
	codeNotFound                = "not_found"
	codeInvalidRequestBody      = "invalid_request_body"
	codeInvalidID               = "invalid_id"
	codeInvalidStartsAt         = "invalid_starts_at"
	codeInvalidMonth            = "invalid_month"
	codeMissingActor            = "missing_actor"
	codeForbidden               = "forbidden"
	codeNotEligible             = "not_eligible"
	codeAdminOnly               = "admin_only"
	codeUserNotFound            = "user_not_found"
	codeInvalidRole             = "invalid_role"
	codeSlotNotFound            = "slot_not_found"
	codeSlotAlreadyBooked       = "slot_already_booked"
	codeLeadTimeViolation       = "lead_time_violation"
	codePastStartTime           = "past_start_time"
	codeDuplicateSlot           = "duplicate_slot"
	codeHasActiveBookings       = "has_active_bookings"
	codeDescriptionRequired     = "description_required"
	codeBookingNotFound         = "booking_not_found"
	codeNotBookingOwner         = "not_booking_owner"
	codeBookingAlreadyCancelled = "booking_already_cancelled"
	codeCancelWindowClosed      = "cancel_window_closed"
	codeInternalError           = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
