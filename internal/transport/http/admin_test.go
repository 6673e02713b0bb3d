package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/app"
	"github.com/Igor-hub-it/schedule-bot/internal/domain"
)

func TestHandleAdminSlots(t *testing.T) {
	t.Parallel()

	created := domain.Slot{
		ID:          1,
		StartsAt:    time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
		Description: "evening court",
	}

	tests := []struct {
		name           string
		actor          string
		admin          bool
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			actor:          "1",
			admin:          true,
			body:           `{"starts_at":"2025-03-10T18:00:00Z","description":"evening court"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"description":"evening court"`,
		},
		{
			name:           "non-admin actor",
			actor:          "2",
			admin:          false,
			body:           `{"starts_at":"2025-03-10T18:00:00Z","description":"court"}`,
			expectedStatus: http.StatusForbidden,
			expectedSubstr: codeAdminOnly,
		},
		{
			name:           "missing actor",
			admin:          true,
			body:           `{"starts_at":"2025-03-10T18:00:00Z","description":"court"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad starts_at",
			actor:          "1",
			admin:          true,
			body:           `{"starts_at":"10.03.2025","description":"court"}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidStartsAt,
		},
		{
			name:           "empty description",
			actor:          "1",
			admin:          true,
			body:           `{"starts_at":"2025-03-10T18:00:00Z","description":""}`,
			serviceErr:     domain.ErrDescriptionRequired,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "start in the past",
			actor:          "1",
			admin:          true,
			body:           `{"starts_at":"2020-03-10T18:00:00Z","description":"court"}`,
			serviceErr:     domain.ErrPastStartTime,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codePastStartTime,
		},
		{
			name:           "duplicate slot",
			actor:          "1",
			admin:          true,
			body:           `{"starts_at":"2025-03-10T18:00:00Z","description":"court"}`,
			serviceErr:     domain.ErrDuplicateSlot,
			expectedStatus: http.StatusConflict,
			expectedSubstr: codeDuplicateSlot,
		},
		{
			name:           "internal error",
			actor:          "1",
			admin:          true,
			body:           `{"starts_at":"2025-03-10T18:00:00Z","description":"court"}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gate := &stubAdminGate{admin: tt.admin}
			svc := &stubAdminSlotService{slot: created, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, "/admin/slots", bytes.NewBufferString(tt.body))
			if tt.actor != "" {
				req.Header.Set(actorHeader, tt.actor)
			}
			rec := httptest.NewRecorder()

			HandleAdminSlots(gate, svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleAdminSlot_Delete(t *testing.T) {
	t.Parallel()

	t.Run("plain delete", func(t *testing.T) {
		svc := &stubAdminSlotService{}
		req := httptest.NewRequest(http.MethodDelete, "/admin/slots/1", nil)
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminSlot(&stubAdminGate{admin: true}, svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
		if svc.forced {
			t.Fatalf("expected plain delete, got force")
		}
	})

	t.Run("active bookings block the delete", func(t *testing.T) {
		svc := &stubAdminSlotService{err: domain.ErrHasActiveBookings}
		req := httptest.NewRequest(http.MethodDelete, "/admin/slots/1", nil)
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminSlot(&stubAdminGate{admin: true}, svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), codeHasActiveBookings) {
			t.Fatalf("expected code in body, got %q", rec.Body.String())
		}
	})

	t.Run("force delete reports affected users", func(t *testing.T) {
		svc := &stubAdminSlotService{affected: []domain.AffectedUser{{UserID: 100, Handle: "alice"}}}
		req := httptest.NewRequest(http.MethodDelete, "/admin/slots/1?force=true", nil)
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminSlot(&stubAdminGate{admin: true}, svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !svc.forced {
			t.Fatalf("expected force delete")
		}
		if !strings.Contains(rec.Body.String(), `"handle":"alice"`) {
			t.Fatalf("expected affected user in body, got %q", rec.Body.String())
		}
	})

	t.Run("unknown slot", func(t *testing.T) {
		svc := &stubAdminSlotService{err: domain.ErrSlotNotFound}
		req := httptest.NewRequest(http.MethodDelete, "/admin/slots/42", nil)
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminSlot(&stubAdminGate{admin: true}, svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("garbage path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/admin/slots/abc", nil)
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminSlot(&stubAdminGate{admin: true}, &stubAdminSlotService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandleAdminUsers(t *testing.T) {
	t.Parallel()

	t.Run("lists users", func(t *testing.T) {
		svc := &stubAdminUserService{users: []domain.User{{ID: 100, Handle: "alice", Allowed: true, Role: domain.RoleUser}}}
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminUsers(&stubAdminGate{admin: true}, svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"handle":"alice"`) {
			t.Fatalf("expected user in body, got %q", rec.Body.String())
		}
	})

	t.Run("adds a user", func(t *testing.T) {
		svc := &stubAdminUserService{}
		req := httptest.NewRequest(http.MethodPost, "/admin/users", bytes.NewBufferString(`{"id":100,"handle":"alice"}`))
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminUsers(&stubAdminGate{admin: true}, svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", rec.Code)
		}
		if svc.addedID != 100 {
			t.Fatalf("expected user 100 added, got %d", svc.addedID)
		}
	})

	t.Run("rejects a non-positive id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/users", bytes.NewBufferString(`{"id":0,"handle":"alice"}`))
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminUsers(&stubAdminGate{admin: true}, &stubAdminUserService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("non-admin is refused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.Header.Set(actorHeader, "2")
		rec := httptest.NewRecorder()

		HandleAdminUsers(&stubAdminGate{admin: false}, &stubAdminUserService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected status 403, got %d", rec.Code)
		}
	})
}

func TestHandleAdminUser(t *testing.T) {
	t.Parallel()

	t.Run("removes a user and reports freed slots", func(t *testing.T) {
		svc := &stubAdminUserService{freed: 2}
		req := httptest.NewRequest(http.MethodDelete, "/admin/users/100", nil)
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminUser(&stubAdminGate{admin: true}, svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"freed_slots":2`) {
			t.Fatalf("expected freed slot count, got %q", rec.Body.String())
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := &stubAdminUserService{err: domain.ErrUserNotFound}
		req := httptest.NewRequest(http.MethodDelete, "/admin/users/42", nil)
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminUser(&stubAdminGate{admin: true}, svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("sets a role", func(t *testing.T) {
		svc := &stubAdminUserService{}
		req := httptest.NewRequest(http.MethodPut, "/admin/users/100/role", bytes.NewBufferString(`{"role":"admin"}`))
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminUser(&stubAdminGate{admin: true}, svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
		if svc.roleUserID != 100 || svc.role != "admin" {
			t.Fatalf("expected role admin for user 100, got %q for %d", svc.role, svc.roleUserID)
		}
	})

	t.Run("rejects an unknown role", func(t *testing.T) {
		svc := &stubAdminUserService{err: domain.ErrInvalidRole}
		req := httptest.NewRequest(http.MethodPut, "/admin/users/100/role", bytes.NewBufferString(`{"role":"owner"}`))
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminUser(&stubAdminGate{admin: true}, svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), codeInvalidRole) {
			t.Fatalf("expected code in body, got %q", rec.Body.String())
		}
	})
}

func TestHandleAdminStats(t *testing.T) {
	t.Parallel()

	svc := &stubAdminUserService{stats: domain.Stats{
		TotalUsers:     3,
		TotalSlots:     4,
		TotalBookings:  2,
		AvailableSlots: 2,
		OccupancyRate:  50,
	}}
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set(actorHeader, "1")
	rec := httptest.NewRecorder()

	HandleAdminStats(&stubAdminGate{admin: true}, svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"occupancy_rate":50`) {
		t.Fatalf("expected occupancy rate, got %q", rec.Body.String())
	}
}

func TestHandleAdminBookings(t *testing.T) {
	t.Parallel()

	svc := &stubBookingLister{details: []domain.BookingDetail{
		{BookingID: 7, SlotID: 1, UserID: 100, UserHandle: "alice", StartsAt: time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC), Description: "court"},
	}}
	req := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
	req.Header.Set(actorHeader, "1")
	rec := httptest.NewRecorder()

	HandleAdminBookings(&stubAdminGate{admin: true}, svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"user_handle":"alice"`) {
		t.Fatalf("expected handle in body, got %q", rec.Body.String())
	}
}

func TestHandleAdminGroup(t *testing.T) {
	t.Parallel()

	t.Run("sets the group id", func(t *testing.T) {
		setter := &stubGroupSetter{}
		req := httptest.NewRequest(http.MethodPut, "/admin/group", bytes.NewBufferString(`{"group_id":-5000}`))
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminGroup(&stubAdminGate{admin: true}, setter).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
		if setter.groupID != -5000 {
			t.Fatalf("expected group -5000, got %d", setter.groupID)
		}
	})

	t.Run("zero clears the requirement", func(t *testing.T) {
		setter := &stubGroupSetter{groupID: -5000}
		req := httptest.NewRequest(http.MethodPut, "/admin/group", bytes.NewBufferString(`{"group_id":0}`))
		req.Header.Set(actorHeader, "1")
		rec := httptest.NewRecorder()

		HandleAdminGroup(&stubAdminGate{admin: true}, setter).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
		if setter.groupID != 0 {
			t.Fatalf("expected group cleared, got %d", setter.groupID)
		}
	})
}

type stubAdminGate struct {
	admin bool
	err   error
}

func (s *stubAdminGate) IsAdmin(_ context.Context, _ int64) (bool, error) {
	return s.admin, s.err
}

type stubAdminSlotService struct {
	slot     domain.Slot
	affected []domain.AffectedUser
	err      error
	forced   bool
}

func (s *stubAdminSlotService) CreateSlot(_ context.Context, _ app.CreateSlotInput) (domain.Slot, error) {
	if s.err != nil {
		return domain.Slot{}, s.err
	}
	return s.slot, nil
}

func (s *stubAdminSlotService) DeleteSlot(_ context.Context, _ int64) error {
	return s.err
}

func (s *stubAdminSlotService) ForceDeleteSlot(_ context.Context, _ int64) ([]domain.AffectedUser, error) {
	s.forced = true
	if s.err != nil {
		return nil, s.err
	}
	return s.affected, nil
}

type stubAdminUserService struct {
	users      []domain.User
	stats      domain.Stats
	freed      int
	err        error
	addedID    int64
	roleUserID int64
	role       string
}

func (s *stubAdminUserService) Add(_ context.Context, id int64, handle string) (domain.User, error) {
	s.addedID = id
	if s.err != nil {
		return domain.User{}, s.err
	}
	return domain.User{ID: id, Handle: handle, Allowed: true, Role: domain.RoleUser}, nil
}

func (s *stubAdminUserService) List(_ context.Context) ([]domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users, nil
}

func (s *stubAdminUserService) SetRole(_ context.Context, id int64, role string) error {
	s.roleUserID = id
	s.role = role
	return s.err
}

func (s *stubAdminUserService) Remove(_ context.Context, _ int64) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.freed, nil
}

func (s *stubAdminUserService) Stats(_ context.Context) (domain.Stats, error) {
	if s.err != nil {
		return domain.Stats{}, s.err
	}
	return s.stats, nil
}

type stubBookingLister struct {
	details []domain.BookingDetail
	err     error
}

func (s *stubBookingLister) AllBookings(_ context.Context) ([]domain.BookingDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.details, nil
}

type stubGroupSetter struct {
	groupID int64
}

func (s *stubGroupSetter) SetGroupID(id int64) { s.groupID = id }
