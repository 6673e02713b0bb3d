package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Igor-hub-it/schedule-bot/internal/domain"
)

type UserLister interface {
	List(ctx context.Context) ([]domain.User, error)
}

type EligibilityChecker interface {
	Check(ctx context.Context, userID int64) error
}

// Reconciler periodically re-validates every known user against the
// membership source of truth and evicts those who lost eligibility. It is
// not real-time: an evicted user may retain access for up to one interval.
type Reconciler struct {
	users    UserLister
	checker  EligibilityChecker
	interval time.Duration
	logger   *log.Logger
}

const defaultReconcileInterval = 5 * time.Minute

func NewReconciler(users UserLister, checker EligibilityChecker, interval time.Duration, logger *log.Logger) *Reconciler {
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		users:    users,
		checker:  checker,
		interval: interval,
		logger:   logger,
	}
}

// Run ticks until the context is cancelled. Nothing inside a tick can stop
// the loop.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Printf("reconciler started, interval=%s", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Printf("reconciler stopped")
			return
		case <-ticker.C:
			r.ReconcileAll(ctx)
		}
	}
}

// ReconcileAll checks every user once. Each user's eviction is its own
// atomic unit; one user's failure never skips the rest.
func (r *Reconciler) ReconcileAll(ctx context.Context) {
	users, err := r.users.List(ctx)
	if err != nil {
		r.logger.Printf("WARN: reconcile: list users: %v", err)
		return
	}

	for _, u := range users {
		if ctx.Err() != nil {
			return
		}
		err := r.checker.Check(ctx, u.ID)
		switch {
		case err == nil, errors.Is(err, domain.ErrNotEligible):
			// Eviction, if any, was performed and logged by the checker.
		default:
			r.logger.Printf("WARN: reconcile user %d: %v", u.ID, err)
		}
	}
}
