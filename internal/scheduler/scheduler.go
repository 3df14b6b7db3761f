// Package scheduler runs the background jobs: nightly advisory refresh,
// price alerts, database maintenance, and backups.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	runs *RunRepository
	log  zerolog.Logger
}

// New creates a new scheduler. The run repository may be nil; executions are
// then only logged, not recorded.
func New(runs *RunRepository, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		runs: runs,
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job with a cron schedule (six-field, with seconds).
// Schedule examples:
//   - "0 0 6 * * *"   - daily at 06:00
//   - "0 */5 * * * *" - every 5 minutes
//   - "@every 30s"    - every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.execute(job)
	})
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.Name(), err)
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.execute(job)
}

// execute runs one job with panic recovery, timing, and run recording.
func (s *Scheduler) execute(job Job) (err error) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}

		duration := time.Since(started)
		if err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Dur("duration", duration).
				Msg("Job failed")
		} else {
			s.log.Debug().
				Str("job", job.Name()).
				Dur("duration", duration).
				Msg("Job completed")
		}

		if s.runs != nil {
			if recErr := s.runs.Record(job.Name(), started, duration, err); recErr != nil {
				s.log.Warn().Err(recErr).Str("job", job.Name()).Msg("Failed to record job run")
			}
		}
	}()

	s.log.Debug().Str("job", job.Name()).Msg("Running job")
	err = job.Run()
	return err
}
