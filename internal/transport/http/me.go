package http

import (
	"context"
	"net/http"

	"github.com/Igor-hub-it/schedule-bot/internal/domain"
)

// UserGetter looks up a single user record.
type UserGetter interface {
	Get(ctx context.Context, id int64) (domain.User, error)
}

// HandleMe returns the calling user's own record, role included.
func HandleMe(svc UserGetter) http.HandlerFunc {
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

		user, err := svc.Get(r.Context(), actor)
		if err != nil {
			switch err {
			case domain.ErrUserNotFound:
				writeError(w, http.StatusNotFound, codeUserNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, userResponse{
			ID:        user.ID,
			Handle:    user.Handle,
			Allowed:   user.Allowed,
			Role:      string(user.Role),
			CreatedAt: user.CreatedAt,
		})
	}
}
