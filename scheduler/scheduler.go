// Package scheduler is the JobScheduler (C6): a durable, at-least-once,
// leased-worker queue over the jobs table. Grounded in
// original_source/src/jobs.rs's JobWorker.run/process_jobs/mark_job_failed
// loop, but the three handlers the Rust source left as TODO stubs
// (process_reminder/process_transfer_timeout/process_retry_dm) are wired
// here to real handler functions supplied by the caller (app bootstrap),
// keeping this package free of a dependency on reservation/reminder/notify.
package scheduler

import (
	"context"
	"time"

	"lsbgear/db"
	"lsbgear/logging"
	"lsbgear/models"
)

// Handler processes one leased job. Handlers must be idempotent: the
// at-least-once delivery guarantee means the same job can be dispatched
// more than once (after a lease expiry, or a retry after partial failure).
type Handler func(ctx context.Context, job models.Job) error

// batchSize mirrors the §4.6 "LIMIT K" step; the Rust source used 10.
const batchSize = 10

// Scheduler is the C6 worker loop.
type Scheduler struct {
	Store    *db.Store
	Handlers map[models.JobType]Handler

	tick time.Duration
	now  func() time.Time
}

// New builds a Scheduler with the production tick interval (30s, matching
// original_source/src/jobs.rs's sleep(Duration::from_secs(30))).
func New(store *db.Store) *Scheduler {
	return &Scheduler{
		Store:    store,
		Handlers: map[models.JobType]Handler{},
		tick:     30 * time.Second,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register wires a handler for a job type. Call before Run.
func (s *Scheduler) Register(jobType models.JobType, h Handler) {
	s.Handlers[jobType] = h
}

// WithTick overrides the poll interval — used by tests to avoid a 30s wait.
func (s *Scheduler) WithTick(d time.Duration) *Scheduler {
	s.tick = d
	return s
}

// WithNow overrides the time source — used by tests that need a
// deterministic clock.Test rather than the wall clock.
func (s *Scheduler) WithNow(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run drives the loop until ctx is cancelled. In-flight Running jobs at
// shutdown are left for the reaper rather than force-marked Pending — the
// lease already expresses "up for re-lease" once it passes.
func (s *Scheduler) Run(ctx context.Context) {
	logging.Infof("scheduler: starting")
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		if err := s.Tick(ctx); err != nil {
			logging.Errorf("scheduler: tick error: %v", err)
		}
		select {
		case <-ctx.Done():
			logging.Infof("scheduler: stopping")
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one pass: reap expired leases, lease due jobs, dispatch each.
// Exported so tests and `lsbctl worker --once` can drive it synchronously.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()
	if _, err := s.Store.ReapExpiredLeases(ctx, now); err != nil {
		return err
	}
	jobs, err := s.Store.LeaseDueJobs(ctx, now, batchSize)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		s.dispatch(ctx, job)
	}
	return nil
}

func (s *Scheduler) dispatch(ctx context.Context, job models.Job) {
	h, ok := s.Handlers[job.JobType]
	if !ok {
		logging.Warnf("scheduler: no handler registered for job type %s (job %d)", job.JobType, job.ID)
		if err := s.Store.MarkJobFailedOrRetry(ctx, job, s.now()); err != nil {
			logging.Errorf("scheduler: failed to mark unhandled job %d: %v", job.ID, err)
		}
		return
	}
	if err := h(ctx, job); err != nil {
		logging.Warnf("scheduler: job %d (%s) failed on attempt %d: %v", job.ID, job.JobType, job.Attempts, err)
		if err := s.Store.MarkJobFailedOrRetry(ctx, job, s.now()); err != nil {
			logging.Errorf("scheduler: failed to reschedule job %d: %v", job.ID, err)
		}
		return
	}
	if err := s.Store.MarkJobCompleted(ctx, job.ID); err != nil {
		logging.Errorf("scheduler: failed to complete job %d: %v", job.ID, err)
	}
}
