package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/domain"
)

// Registrar is the minimal interface needed to register users.
type Registrar interface {
	Register(ctx context.Context, id int64, handle string) (domain.User, error)
}

// HandleRegister returns an HTTP handler for user self-registration.
func HandleRegister(svc Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		actor, ok := actorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, codeMissingActor, "X-Actor-ID header is required")
			return
		}

		var req registerRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		user, err := svc.Register(r.Context(), actor, req.Handle)
		if err != nil {
			switch err {
			case domain.ErrNotEligible:
				writeError(w, http.StatusForbidden, codeNotEligible, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, userResponse{
			ID:        user.ID,
			Handle:    user.Handle,
			Allowed:   user.Allowed,
			Role:      string(user.Role),
			CreatedAt: user.CreatedAt,
		})
	}
}

type registerRequest struct {
	Handle string `json:"handle"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Handle    string    `json:"handle"`
	Allowed   bool      `json:"allowed"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
