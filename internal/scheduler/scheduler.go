// Package scheduler drives periodic harvest cycles.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"hotsearch/internal/config"
)

// Scheduler runs the harvest on a cron spec, with one extra run shortly
// after startup so a freshly deployed instance has data before the first
// scheduled tick. Overlapping runs are skipped, not queued.
type Scheduler struct {
	cron   *cron.Cron
	chain  cron.Chain
	job    cron.Job
	cfg    *config.SchedulerConfig
	run    func(context.Context)
	logger *slog.Logger
}

// New creates a Scheduler around the given run function.
func New(cfg *config.SchedulerConfig, run func(context.Context), logger *slog.Logger) *Scheduler {
	logger = logger.With("component", "scheduler")
	cl := cronLogger{logger}
	return &Scheduler{
		cron:   cron.New(),
		chain:  cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		cfg:    cfg,
		run:    run,
		logger: logger,
	}
}

// Start registers the cron entry and kicks off the startup run. It returns
// immediately; runs happen on the scheduler's goroutines until ctx is done.
// The startup run goes through the same chained job as the cron ticks, so
// a slow startup harvest and the first tick never overlap.
func (s *Scheduler) Start(ctx context.Context) error {
	s.job = s.chain.Then(cron.FuncJob(func() { s.run(ctx) }))
	if _, err := s.cron.AddJob(s.cfg.Spec, s.job); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.cfg.Spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.cfg.Spec, "startup_delay", s.cfg.StartupDelay)

	go func() {
		t := time.NewTimer(s.cfg.StartupDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.logger.Info("running startup harvest")
			s.job.Run()
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for any in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts slog to the cron logging interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
