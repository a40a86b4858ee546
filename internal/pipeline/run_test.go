package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"hotsearch/internal/config"
	"hotsearch/internal/storage"
	"hotsearch/internal/trending"
)

type stubSnapshots struct {
	topics []trending.RawTopic
	err    error
}

func (s *stubSnapshots) Fetch(context.Context) ([]trending.RawTopic, error) {
	return s.topics, s.err
}

type stubEnricher struct {
	details map[string]trending.Detail
}

func (s *stubEnricher) Enrich(_ context.Context, title string) trending.Detail {
	return s.details[title]
}

type stubCollector struct {
	posts map[string][]trending.Post
}

func (s *stubCollector) Collect(_ context.Context, title string) []trending.Post {
	return s.posts[title]
}

// memStore records saves in memory and feeds back a configurable prior.
type memStore struct {
	mu      sync.Mutex
	prior   []*trending.Item
	hourly  []*trending.Item
	summary []*trending.Item
}

func (m *memStore) SaveHourly(_ context.Context, _ time.Time, items []*trending.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hourly = items
	return nil
}

func (m *memStore) SaveSummary(_ context.Context, _ time.Time, items []*trending.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary = items
	return nil
}

func (m *memStore) LoadSummary(context.Context, time.Time) ([]*trending.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prior, nil
}

func (m *memStore) LatestSnapshot(context.Context) (*storage.Snapshot, error) {
	return nil, storage.ErrNoSnapshot
}

func (m *memStore) Close(context.Context) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(snaps *stubSnapshots, details *stubEnricher, posts *stubCollector, store *memStore) *Runner {
	return NewRunner(snaps, details, posts, store, nil, config.DefaultConfig(), discardLogger())
}

func i64(v int64) *int64 { return &v }

func TestRunnerFiltersAndEnriches(t *testing.T) {
	snaps := &stubSnapshots{topics: []trending.RawTopic{
		{Title: "话题A", Hot: 52000, URL: "https://s.weibo.com/a"},
		{Title: "广告B", Hot: 120000, Promotion: true},
		{Title: "零热度C", Hot: 0},
	}}
	details := &stubEnricher{details: map[string]trending.Detail{
		"话题A": {Category: "社会", ReadCount: i64(470000000)},
	}}
	posts := &stubCollector{posts: map[string][]trending.Post{
		"话题A": {{Author: "博主甲", Content: "正文"}},
	}}
	store := &memStore{}

	runner := newTestRunner(snaps, details, posts, store)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(store.hourly) != 1 {
		t.Fatalf("expected 1 hourly item, got %d", len(store.hourly))
	}
	item := store.hourly[0]
	if item.Title != "话题A" || item.Hot != 52000 {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Category != "社会" {
		t.Errorf("detail category not applied: %q", item.Category)
	}
	if item.ReadCount == nil || *item.ReadCount != 470000000 {
		t.Errorf("detail counts not applied: %v", item.ReadCount)
	}
	if len(item.Posts) != 1 || item.Posts[0].Author != "博主甲" {
		t.Errorf("posts not attached: %+v", item.Posts)
	}

	stats := runner.Stats()
	if stats.Runs != 1 || stats.TopicsSeen != 3 || stats.TopicsKept != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.DetailsFilled != 1 || stats.PostsCollected != 1 {
		t.Errorf("unexpected enrichment stats: %+v", stats)
	}
}

func TestRunnerMergesWithPriorAggregate(t *testing.T) {
	snaps := &stubSnapshots{topics: []trending.RawTopic{
		{Title: "涨热度", Hot: 30000},
	}}
	store := &memStore{prior: []*trending.Item{
		{Title: "涨热度", Hot: 50000},
		{Title: "已掉榜", Hot: 40000},
	}}

	runner := newTestRunner(snaps, &stubEnricher{}, &stubCollector{}, store)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(store.summary) != 2 {
		t.Fatalf("expected 2 aggregate items, got %d", len(store.summary))
	}
	if store.summary[0].Title != "涨热度" || store.summary[0].Hot != 50000 {
		t.Errorf("prior peak lost: %+v", store.summary[0])
	}
	if store.summary[1].Title != "已掉榜" {
		t.Errorf("dropped topic not carried: %+v", store.summary[1])
	}
}

func TestRunnerEmptySnapshotIsNotAnError(t *testing.T) {
	store := &memStore{}
	runner := newTestRunner(&stubSnapshots{}, &stubEnricher{}, &stubCollector{}, store)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("empty cycle should not fail: %v", err)
	}
	if store.hourly != nil || store.summary != nil {
		t.Error("empty cycle must not persist anything")
	}
}

// An exhausted snapshot fetch must leave the prior aggregate untouched
// rather than failing or persisting an empty day.
func TestRunnerSnapshotErrorLeavesAggregateAlone(t *testing.T) {
	store := &memStore{prior: []*trending.Item{{Title: "历史话题", Hot: 1}}}
	snaps := &stubSnapshots{err: errors.New("exhausted")}
	runner := newTestRunner(snaps, &stubEnricher{}, &stubCollector{}, store)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("snapshot failure should be absorbed: %v", err)
	}
	if store.hourly != nil || store.summary != nil {
		t.Error("failed cycle must not persist anything")
	}
}

func TestRunnerSnapshotKeepsSnapshotFieldsOverDetail(t *testing.T) {
	snaps := &stubSnapshots{topics: []trending.RawTopic{
		{Title: "话题A", Hot: 100, Category: "原有分类"},
	}}
	details := &stubEnricher{details: map[string]trending.Detail{
		"话题A": {Category: "详情分类", Description: "详情导语"},
	}}
	store := &memStore{}

	runner := newTestRunner(snaps, details, &stubCollector{}, store)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	item := store.hourly[0]
	if item.Category != "原有分类" {
		t.Errorf("snapshot category overwritten: %q", item.Category)
	}
	if item.Description != "详情导语" {
		t.Errorf("empty description not filled from detail: %q", item.Description)
	}
}
