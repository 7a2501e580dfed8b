package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.pilab.hu/sessiond/domain"
	"go.pilab.hu/sessiond/internal/metrics"
)

// DefaultSweepInterval is how often the reconciler re-evaluates stored
// activity records against the clock.
const DefaultSweepInterval = 24 * time.Hour

// Reconciler is the background sweep that flips records to inactive once the
// inactivity threshold has been crossed, independent of live traffic, and
// repairs the expiry bookkeeping invariant. It never touches already-issued
// tokens; it only keeps stored state consistent for future issuance.
type Reconciler struct {
	repo      domain.ActivityRepository
	interval  time.Duration
	bootDelay time.Duration

	now func() time.Time
}

// NewReconciler creates a Reconciler. A non-positive interval falls back to
// DefaultSweepInterval.
func NewReconciler(repo domain.ActivityRepository, interval, bootDelay time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Reconciler{
		repo:      repo,
		interval:  interval,
		bootDelay: bootDelay,
		now:       time.Now,
	}
}

// Scheduler is the handle returned by Start. Stop halts the schedule and
// waits for an in-flight run to finish.
type Scheduler struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the schedule and blocks until the loop has exited.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.done
}

// Start launches the reconciliation schedule: one run shortly after startup,
// then one per interval. A failed run logs and waits for the next tick; a
// missed sweep only delays reclassification, it cannot corrupt state.
func (r *Reconciler) Start(ctx context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	sched := &Scheduler{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sched.done)

		boot := time.NewTimer(r.bootDelay)
		defer boot.Stop()
		select {
		case <-boot.C:
			if err := r.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("boot-time activity sweep failed")
			}
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.RunOnce(ctx); err != nil {
					log.Error().Err(err).Msg("scheduled activity sweep failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return sched
}

// RunOnce performs a single reconciliation cycle: the set-based inactivity
// sweep followed by the invariant repair pass. Idempotent: a second run with
// no time passing and no new activity changes nothing.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	now := r.now()

	flipped, err := r.repo.MarkInactiveBefore(ctx, now.Add(-domain.InactivityThreshold))
	if err != nil {
		metrics.SweepFailuresTotal.Inc()
		return err
	}
	metrics.SweepMarkedInactiveTotal.Add(float64(flipped))

	repaired, err := r.repo.ReconcileExpiry(ctx)
	if err != nil {
		metrics.SweepFailuresTotal.Inc()
		return err
	}
	metrics.SweepReconciledTotal.Add(float64(repaired.ExpirySet + repaired.ExpiryCleared))

	if active, countErr := r.repo.CountActive(ctx); countErr != nil {
		log.Warn().Err(countErr).Msg("failed to count active users")
	} else {
		metrics.ActiveUsersGauge.Set(float64(active))
	}

	log.Info().
		Int64("marked_inactive", flipped).
		Int64("expiry_set", repaired.ExpirySet).
		Int64("expiry_cleared", repaired.ExpiryCleared).
		Msg("activity sweep completed")

	return nil
}
