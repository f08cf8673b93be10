// Package scheduler runs periodic background jobs on cron schedules: the
// safety-net sync pass (for work enqueued while the connectivity monitor
// still reported online) and housekeeping such as idempotency purges.
//
// Overlapping runs of the same job are skipped, not queued.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/recur-sync/internal/repo"
	"github.com/tbourn/recur-sync/internal/services"
)

// ErrEmptySchedule is returned by Add for a blank spec.
var ErrEmptySchedule = errors.New("empty schedule")

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner whose jobs share a context that is cancelled
// on Stop.
type Scheduler struct {
	cron   *cron.Cron
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a stopped scheduler.
func New(log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(&log)),
			cron.SkipIfStillRunning(cron.PrintfLogger(&log)),
		)),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under name with a standard cron spec or a descriptor
// such as "@every 5m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return ErrEmptySchedule
	}
	_, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return err
	}
	s.log.Info().Str("job", name).Str("schedule", spec).Msg("job scheduled")
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels the shared job context and stops scheduling. The returned
// context is done once running jobs have returned.
func (s *Scheduler) Stop() context.Context {
	s.cancel()
	ctx := s.cron.Stop()
	s.log.Info().Msg("scheduler stopped")
	return ctx
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) run(name string, job Job) {
	start := time.Now()
	err := job(s.ctx)
	ev := s.log.Debug()
	if err != nil {
		ev = s.log.Error().Err(err)
	}
	ev.Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
}

// Syncer is the part of SyncQueue the sync job needs.
type Syncer interface {
	SyncPendingActions(ctx context.Context) (services.SyncReport, error)
}

// SyncJob runs one sync pass. Skipped passes are not errors.
func SyncJob(q Syncer) Job {
	return func(ctx context.Context) error {
		_, err := q.SyncPendingActions(ctx)
		return err
	}
}

// PurgeIdempotencyJob deletes expired idempotency records.
func PurgeIdempotencyJob(db *gorm.DB) Job {
	return func(ctx context.Context) error {
		_, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now().UTC())
		return err
	}
}
