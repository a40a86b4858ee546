package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"hotsearch/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerRejectsInvalidSpec(t *testing.T) {
	cfg := &config.SchedulerConfig{Spec: "not a spec"}
	s := New(cfg, func(context.Context) {}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestSchedulerStartupRun(t *testing.T) {
	ran := make(chan struct{}, 1)
	cfg := &config.SchedulerConfig{Spec: "0 * * * *", StartupDelay: time.Millisecond}
	s := New(cfg, func(context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("startup run never fired")
	}
}

// The startup run and the cron entry share one chained job, so a slow
// startup harvest makes an overlapping invocation a no-op.
func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	runs := make(chan struct{}, 4)

	cfg := &config.SchedulerConfig{Spec: "0 * * * *", StartupDelay: time.Millisecond}
	s := New(cfg, func(context.Context) {
		runs <- struct{}{}
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("startup run never fired")
	}

	// Fire the same chained job while the startup run is still blocked.
	done := make(chan struct{})
	go func() {
		s.job.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("overlapping invocation was queued instead of skipped")
	}

	close(release)
	if got := len(runs); got != 1 {
		t.Fatalf("expected exactly 1 execution, got %d", got)
	}
}
