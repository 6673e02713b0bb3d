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

// AdminGate answers whether the actor holds the admin role.
type AdminGate interface {
	IsAdmin(ctx context.Context, id int64) (bool, error)
}

// AdminSlotService is the minimal interface needed for admin slot endpoints.
type AdminSlotService interface {
	CreateSlot(ctx context.Context, in app.CreateSlotInput) (domain.Slot, error)
	DeleteSlot(ctx context.Context, id int64) error
	ForceDeleteSlot(ctx context.Context, id int64) ([]domain.AffectedUser, error)
}

// AdminUserService is the minimal interface needed for admin user endpoints.
type AdminUserService interface {
	Add(ctx context.Context, id int64, handle string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	SetRole(ctx context.Context, id int64, role string) error
	Remove(ctx context.Context, id int64) (int, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// BookingLister lists every active booking with its holder's handle.
type BookingLister interface {
	AllBookings(ctx context.Context) ([]domain.BookingDetail, error)
}

// GroupSetter reconfigures the required group at runtime.
type GroupSetter interface {
	SetGroupID(id int64)
}

// requireAdmin extracts the actor and verifies the admin role, writing
// the failure response itself.
func requireAdmin(w http.ResponseWriter, r *http.Request, gate AdminGate) (int64, bool) {
	actor, ok := actorID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, codeMissingActor, "X-Actor-ID header is required")
		return 0, false
	}
	admin, err := gate.IsAdmin(r.Context(), actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return 0, false
	}
	if !admin {
		writeError(w, http.StatusForbidden, codeAdminOnly, "admin role required")
		return 0, false
	}
	return actor, true
}

// HandleAdminSlots returns an HTTP handler for POST /admin/slots.
func HandleAdminSlots(gate AdminGate, svc AdminSlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := requireAdmin(w, r, gate); !ok {
			return
		}

		var req createSlotRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
			return
		}

		slot, err := svc.CreateSlot(r.Context(), app.CreateSlotInput{
			StartsAt:    startsAt,
			Description: req.Description,
		})
		if err != nil {
			switch err {
			case domain.ErrDescriptionRequired:
				writeError(w, http.StatusBadRequest, codeDescriptionRequired, err.Error())
			case domain.ErrPastStartTime:
				writeError(w, http.StatusBadRequest, codePastStartTime, err.Error())
			case domain.ErrDuplicateSlot:
				writeError(w, http.StatusConflict, codeDuplicateSlot, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, slotResponse{
			ID:          slot.ID,
			StartsAt:    slot.StartsAt,
			Description: slot.Description,
			Booked:      slot.Booked,
		})
	}
}

// HandleAdminSlot returns an HTTP handler for DELETE /admin/slots/{id}.
// With force=true, active bookings are cancelled and affected users
// reported back.
func HandleAdminSlot(gate AdminGate, svc AdminSlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, ok := parseAdminIDPath(r.URL.Path, "slots")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := requireAdmin(w, r, gate); !ok {
			return
		}

		if r.URL.Query().Get("force") == "true" {
			affected, err := svc.ForceDeleteSlot(r.Context(), slotID)
			if err != nil {
				switch err {
				case domain.ErrSlotNotFound:
					writeError(w, http.StatusNotFound, codeSlotNotFound, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}
			resp := forceDeleteResponse{AffectedUsers: make([]affectedUserResponse, 0, len(affected))}
			for _, u := range affected {
				resp.AffectedUsers = append(resp.AffectedUsers, affectedUserResponse{
					UserID: u.UserID,
					Handle: u.Handle,
				})
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}

		if err := svc.DeleteSlot(r.Context(), slotID); err != nil {
			switch err {
			case domain.ErrSlotNotFound:
				writeError(w, http.StatusNotFound, codeSlotNotFound, err.Error())
			case domain.ErrHasActiveBookings:
				writeError(w, http.StatusConflict, codeHasActiveBookings, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleAdminUsers returns an HTTP handler for listing and adding users.
func HandleAdminUsers(gate AdminGate, svc AdminUserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAdmin(w, r, gate); !ok {
			return
		}

		switch r.Method {
		case http.MethodGet:
			users, err := svc.List(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]userResponse, 0, len(users))
			for _, user := range users {
				resp = append(resp, userResponse{
					ID:        user.ID,
					Handle:    user.Handle,
					Allowed:   user.Allowed,
					Role:      string(user.Role),
					CreatedAt: user.CreatedAt,
				})
			}
			writeJSON(w, http.StatusOK, resp)
			return
		case http.MethodPost:
			var req addUserRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.ID <= 0 {
				writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
				return
			}

			user, err := svc.Add(r.Context(), req.ID, req.Handle)
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			writeJSON(w, http.StatusCreated, userResponse{
				ID:        user.ID,
				Handle:    user.Handle,
				Allowed:   user.Allowed,
				Role:      string(user.Role),
				CreatedAt: user.CreatedAt,
			})
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleAdminUser returns an HTTP handler for DELETE /admin/users/{id}
// and PUT /admin/users/{id}/role.
func HandleAdminUser(gate AdminGate, svc AdminUserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := parseAdminUserRolePath(r.URL.Path); ok {
			if r.Method != http.MethodPut {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			if _, ok := requireAdmin(w, r, gate); !ok {
				return
			}

			var req setRoleRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			if err := svc.SetRole(r.Context(), userID, req.Role); err != nil {
				switch err {
				case domain.ErrInvalidRole:
					writeError(w, http.StatusBadRequest, codeInvalidRole, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		userID, ok := parseAdminIDPath(r.URL.Path, "users")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := requireAdmin(w, r, gate); !ok {
			return
		}

		freed, err := svc.Remove(r.Context(), userID)
		if err != nil {
			switch err {
			case domain.ErrUserNotFound:
				writeError(w, http.StatusNotFound, codeUserNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}
		writeJSON(w, http.StatusOK, removeUserResponse{FreedSlots: freed})
	}
}

// HandleAdminStats returns an HTTP handler for GET /admin/stats.
func HandleAdminStats(gate AdminGate, svc AdminUserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := requireAdmin(w, r, gate); !ok {
			return
		}

		stats, err := svc.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, statsResponse{
			TotalUsers:     stats.TotalUsers,
			TotalSlots:     stats.TotalSlots,
			TotalBookings:  stats.TotalBookings,
			AvailableSlots: stats.AvailableSlots,
			OccupancyRate:  stats.OccupancyRate,
		})
	}
}

// HandleAdminBookings returns an HTTP handler for GET /admin/bookings.
func HandleAdminBookings(gate AdminGate, svc BookingLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := requireAdmin(w, r, gate); !ok {
			return
		}

		bookings, err := svc.AllBookings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, bookingDetailResponses(bookings))
	}
}

// HandleAdminGroup returns an HTTP handler for PUT /admin/group. A zero
// group id removes the membership requirement.
func HandleAdminGroup(gate AdminGate, runtime GroupSetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := requireAdmin(w, r, gate); !ok {
			return
		}

		var req setGroupRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		runtime.SetGroupID(req.GroupID)
		w.WriteHeader(http.StatusNoContent)
	}
}

type createSlotRequest struct {
	StartsAt    string `json:"starts_at"`
	Description string `json:"description"`
}

type forceDeleteResponse struct {
	AffectedUsers []affectedUserResponse `json:"affected_users"`
}

type affectedUserResponse struct {
	UserID int64  `json:"user_id"`
	Handle string `json:"handle,omitempty"`
}

type addUserRequest struct {
	ID     int64  `json:"id"`
	Handle string `json:"handle"`
}

type removeUserResponse struct {
	FreedSlots int `json:"freed_slots"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type setGroupRequest struct {
	GroupID int64 `json:"group_id"`
}

type statsResponse struct {
	TotalUsers     int     `json:"total_users"`
	TotalSlots     int     `json:"total_slots"`
	TotalBookings  int     `json:"total_bookings"`
	AvailableSlots int     `json:"available_slots"`
	OccupancyRate  float64 `json:"occupancy_rate"`
}

func parseAdminIDPath(path, resource string) (int64, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return 0, false
	}
	if parts[0] != "admin" || parts[1] != resource {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseAdminUserRolePath(path string) (int64, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 {
		return 0, false
	}
	if parts[0] != "admin" || parts[1] != "users" || parts[3] != "role" {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
