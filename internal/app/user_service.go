package app

import (
	"context"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/clock"
	"github.com/Igor-hub-it/schedule-bot/internal/domain"
)

type UserRepository interface {
	Upsert(ctx context.Context, id int64, handle string) (domain.User, error)
	Get(ctx context.Context, id int64) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	SetRole(ctx context.Context, id int64, role domain.Role) error
	Remove(ctx context.Context, id int64, now time.Time) (int, error)
	Stats(ctx context.Context, now time.Time) (domain.Stats, error)
}

// MembershipGate answers whether a user may join. Implemented by the
// eligibility service; always true when no group requirement is configured.
type MembershipGate interface {
	MemberOK(ctx context.Context, userID int64) bool
}

// UserService manages membership records and roles.
type UserService struct {
	repo  UserRepository
	gate  MembershipGate
	clock clock.Clock
}

func NewUserService(repo UserRepository, gate MembershipGate, clk clock.Clock) *UserService {
	return &UserService{
		repo:  repo,
		gate:  gate,
		clock: clk,
	}
}

// Register creates the user on first eligible contact, or refreshes the
// handle of an existing one. Registration is refused when a group
// requirement is configured and the user fails the membership probe.
func (s *UserService) Register(ctx context.Context, id int64, handle string) (domain.User, error) {
	if !s.gate.MemberOK(ctx, id) {
		return domain.User{}, domain.ErrNotEligible
	}
	return s.repo.Upsert(ctx, id, handle)
}

// Add creates or refreshes a user record without the membership gate.
// This is the admin path; self-registration goes through Register.
func (s *UserService) Add(ctx context.Context, id int64, handle string) (domain.User, error) {
	return s.repo.Upsert(ctx, id, handle)
}

func (s *UserService) Get(ctx context.Context, id int64) (domain.User, error) {
	return s.repo.Get(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

// SetRole validates the role against the closed enumeration before any
// write, creating the user record when it does not exist yet.
func (s *UserService) SetRole(ctx context.Context, id int64, role string) error {
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return err
	}
	return s.repo.SetRole(ctx, id, parsed)
}

// Remove deletes a user; any slot they hold is freed first. Returns the
// number of slots freed.
func (s *UserService) Remove(ctx context.Context, id int64) (int, error) {
	return s.repo.Remove(ctx, id, s.clock.Now())
}

// IsAdmin reports whether the actor holds the admin role. Unknown users
// are not admins.
func (s *UserService) IsAdmin(ctx context.Context, id int64) (bool, error) {
	user, err := s.repo.Get(ctx, id)
	if err == domain.ErrUserNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

func (s *UserService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.repo.Stats(ctx, s.clock.Now())
}
