package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	auditapp "staycal/internal/app/handlers/audit"
)

// Scheduler runs periodic jobs in UTC. A job still running when its next tick
// fires is skipped for that tick.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	return &Scheduler{cron: c, logger: logger}
}

// Add registers job under a standard five field spec or a descriptor like "@daily".
func (s *Scheduler) Add(ctx context.Context, spec, name string, job func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		started := time.Now()
		err := job(ctx)
		if s.logger == nil {
			return
		}
		if err != nil {
			s.logger.Error("scheduled job failed", "job", name, "duration", time.Since(started), "error", err)
			return
		}
		s.logger.Info("scheduled job finished", "job", name, "duration", time.Since(started))
	})
	if err != nil {
		return fmt.Errorf("schedule: %s: %w", name, err)
	}
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return ctx.Err()
}

// NightlyRunID names a sweep by its UTC day, so a restart the same day resumes it.
func NightlyRunID(now time.Time) string {
	return "nightly-" + now.UTC().Format("20060102")
}

// AuditSweepJob dispatches a full audit sweep for the day.
func AuditSweepJob(bus commands.Bus, now func() time.Time) func(ctx context.Context) error {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		cmd := auditapp.SweepAuditsCommand{RunID: NightlyRunID(now())}
		res, err := commands.Dispatch[auditapp.SweepAuditsCommand, *dto.SweepResult](ctx, bus, cmd)
		if err != nil {
			return err
		}
		if len(res.Failed) > 0 {
			return fmt.Errorf("schedule: %d of %d properties failed in %s", len(res.Failed), len(res.Failed)+len(res.Audited)+len(res.Resumed), res.RunID)
		}
		return nil
	}
}
