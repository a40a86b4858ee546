package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hotsearch/internal/config"
	"hotsearch/internal/trending"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.StorageConfig{OutputDir: dir}
	return NewFileStore(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))), dir
}

func TestFileStoreSummaryRoundTrip(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()
	day := time.Date(2025, 10, 21, 0, 0, 0, 0, time.Local)

	items := []*trending.Item{
		{Title: "话题A", Hot: 52000, URL: "https://s.weibo.com/a"},
		{Title: "话题B", Hot: 4200},
	}
	if err := store.SaveSummary(ctx, day, items); err != nil {
		t.Fatalf("save summary: %v", err)
	}

	got, err := store.LoadSummary(ctx, day)
	if err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if len(got) != 2 || got[0].Title != "话题A" || got[0].Hot != 52000 {
		t.Errorf("round trip lost data: %+v", got)
	}
}

func TestFileStoreLoadSummaryMissingAndCorrupt(t *testing.T) {
	store, dir := newTestFileStore(t)
	ctx := context.Background()
	day := time.Date(2025, 10, 21, 0, 0, 0, 0, time.Local)

	got, err := store.LoadSummary(ctx, day)
	if err != nil || got != nil {
		t.Fatalf("missing summary should be (nil, nil), got (%v, %v)", got, err)
	}

	dayDir := filepath.Join(dir, "2025-10-21")
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dayDir, "summary.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err = store.LoadSummary(ctx, day)
	if err != nil || got != nil {
		t.Fatalf("corrupt summary should be (nil, nil), got (%v, %v)", got, err)
	}
}

func TestFileStoreLatestSnapshot(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	if _, err := store.LatestSnapshot(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}

	now := time.Now()
	early := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, time.Local)
	late := time.Date(now.Year(), now.Month(), now.Day(), 11, 0, 0, 0, time.Local)

	if err := store.SaveHourly(ctx, early, []*trending.Item{{Title: "早"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveHourly(ctx, late, []*trending.Item{{Title: "晚"}}); err != nil {
		t.Fatal(err)
	}

	snap, err := store.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("latest snapshot: %v", err)
	}
	if len(snap.Items) != 1 || snap.Items[0].Title != "晚" {
		t.Errorf("expected the later snapshot, got %+v", snap.Items)
	}
	if snap.UpdateTime.Hour() != 11 {
		t.Errorf("unexpected update time: %v", snap.UpdateTime)
	}
}

func TestFileStoreLatestSnapshotFallsBackToYesterday(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	yesterday := time.Now().AddDate(0, 0, -1)
	ts := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 23, 0, 0, 0, time.Local)
	if err := store.SaveHourly(ctx, ts, []*trending.Item{{Title: "昨日"}}); err != nil {
		t.Fatal(err)
	}

	snap, err := store.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("latest snapshot: %v", err)
	}
	if len(snap.Items) != 1 || snap.Items[0].Title != "昨日" {
		t.Errorf("yesterday's snapshot not found: %+v", snap.Items)
	}
}
