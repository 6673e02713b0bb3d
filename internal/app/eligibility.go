package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/clock"
	"github.com/Igor-hub-it/schedule-bot/internal/config"
	"github.com/Igor-hub-it/schedule-bot/internal/domain"
)

// MemberChecker probes the external group roster. Implementations must
// respect the context deadline.
type MemberChecker interface {
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

type EligibilityRepository interface {
	Get(ctx context.Context, id int64) (domain.User, error)
	Remove(ctx context.Context, id int64, now time.Time) (int, error)
}

// EligibilityService is the single source of truth for "may this user
// act": the local allow flag combined with an optional external group
// membership requirement. Probe failures are treated as "not a member"
// (fail closed), logged, never silently granted.
type EligibilityService struct {
	repo         EligibilityRepository
	member       MemberChecker
	runtime      *config.Runtime
	clock        clock.Clock
	probeTimeout time.Duration
	logger       *log.Logger
}

const defaultProbeTimeout = 3 * time.Second

func NewEligibilityService(repo EligibilityRepository, member MemberChecker, runtime *config.Runtime, clk clock.Clock, probeTimeout time.Duration, logger *log.Logger) *EligibilityService {
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &EligibilityService{
		repo:         repo,
		member:       member,
		runtime:      runtime,
		clock:        clk,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// Check gates a request by an existing user. A user who fails a configured
// group requirement is evicted synchronously — all held slots freed, the
// record deleted — before ErrNotEligible is reported.
func (s *EligibilityService) Check(ctx context.Context, userID int64) error {
	user, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrNotEligible
	}
	if err != nil {
		return err
	}
	if !user.Allowed {
		return domain.ErrNotEligible
	}

	groupID := s.runtime.GroupID()
	if groupID == 0 {
		return nil
	}
	if s.probe(ctx, groupID, userID) {
		return nil
	}

	freed, err := s.repo.Remove(ctx, userID, s.clock.Now())
	if errors.Is(err, domain.ErrUserNotFound) {
		// A concurrent eviction already removed the user.
		return domain.ErrNotEligible
	}
	if err != nil {
		return err
	}
	s.logger.Printf("evicted user %d (%s): lost group membership, freed %d slots", userID, user.Handle, freed)
	return domain.ErrNotEligible
}

// MemberOK answers the registration-time question only: does the user pass
// the group requirement, with no local record involved. Always true when
// no group is configured.
func (s *EligibilityService) MemberOK(ctx context.Context, userID int64) bool {
	groupID := s.runtime.GroupID()
	if groupID == 0 {
		return true
	}
	return s.probe(ctx, groupID, userID)
}

func (s *EligibilityService) probe(ctx context.Context, groupID, userID int64) bool {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	ok, err := s.member.IsMember(probeCtx, groupID, userID)
	if err != nil {
		s.logger.Printf("WARN: membership probe for user %d in group %d failed: %v", userID, groupID, err)
		return false
	}
	return ok
}
