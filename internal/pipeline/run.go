// Package pipeline orchestrates one harvest cycle: snapshot, per-topic
// enrichment and post collection, merge into the daily aggregate, and
// persistence.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"hotsearch/internal/config"
	"hotsearch/internal/storage"
	"hotsearch/internal/trending"
)

// SnapshotSource yields the current raw trending list.
type SnapshotSource interface {
	Fetch(ctx context.Context) ([]trending.RawTopic, error)
}

// Enricher fetches per-topic secondary attributes, best-effort.
type Enricher interface {
	Enrich(ctx context.Context, title string) trending.Detail
}

// Collector samples hot posts for a topic, best-effort.
type Collector interface {
	Collect(ctx context.Context, title string) []trending.Post
}

// Runner executes harvest cycles against a Store. Per-topic work runs
// concurrently; the enricher and collector carry their own rate limits, so
// the runner only caps how many topics are in flight.
type Runner struct {
	snapshots SnapshotSource
	details   Enricher
	posts     Collector
	store     storage.Store
	archiver  *storage.Archiver
	cfg       *config.Config
	logger    *slog.Logger
	stats     *Stats
}

// NewRunner wires a Runner. archiver may be nil when no human-readable
// mirror is wanted.
func NewRunner(
	snapshots SnapshotSource,
	details Enricher,
	posts Collector,
	store storage.Store,
	archiver *storage.Archiver,
	cfg *config.Config,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		snapshots: snapshots,
		details:   details,
		posts:     posts,
		store:     store,
		archiver:  archiver,
		cfg:       cfg,
		logger:    logger.With("component", "pipeline"),
		stats:     &Stats{},
	}
}

// Stats exposes the runner's counters.
func (r *Runner) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}

// Run executes one harvest cycle. A cycle that produced no topics is not an
// error: the previous aggregate stands and the next cycle tries again.
func (r *Runner) Run(ctx context.Context) error {
	started := time.Now()

	raw, err := r.snapshots.Fetch(ctx)
	if err != nil {
		// The prior aggregate stands; the next cycle tries again.
		r.logger.Error("snapshot unavailable", "error", err)
		raw = nil
	}
	topics := trending.FilterTopics(raw)
	r.stats.recordRun(len(raw), len(topics), started)

	if len(topics) == 0 {
		r.logger.Warn("no usable topics this cycle", "raw", len(raw))
		return nil
	}
	r.logger.Info("harvest cycle started", "topics", len(topics), "filtered", len(raw)-len(topics))

	items := r.buildItems(ctx, topics)

	now := time.Now()
	if err := r.store.SaveHourly(ctx, now, items); err != nil {
		return err
	}

	prior, err := r.store.LoadSummary(ctx, now)
	if err != nil {
		return err
	}
	merged := trending.Merge(items, prior)
	if err := r.store.SaveSummary(ctx, now, merged); err != nil {
		return err
	}

	if r.archiver != nil {
		if err := r.archiver.WriteDaily(now, merged); err != nil {
			r.logger.Warn("archive write failed", "error", err)
		}
		if err := r.archiver.UpdateReadme(now, merged); err != nil {
			r.logger.Warn("readme update failed", "error", err)
		}
	}

	r.logger.Info("harvest cycle finished",
		"topics", len(items),
		"aggregate", len(merged),
		"duration", time.Since(started),
	)
	return nil
}

// buildItems enriches every topic concurrently. Each topic runs its detail
// fetch and post collection in parallel; both are best-effort, so a topic
// always yields at least its snapshot-level fields.
func (r *Runner) buildItems(ctx context.Context, topics []trending.RawTopic) []*trending.Item {
	limit := r.cfg.Posts.Concurrency
	if limit < 1 {
		limit = 1
	}

	items := make([]*trending.Item, len(topics))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, topic := range topics {
		g.Go(func() error {
			items[i] = r.buildItem(gctx, topic)
			return nil
		})
	}
	_ = g.Wait()

	return trending.Dedupe(items)
}

func (r *Runner) buildItem(ctx context.Context, topic trending.RawTopic) *trending.Item {
	item := &trending.Item{
		Title:       topic.Title,
		Category:    topic.Category,
		Description: topic.Description,
		URL:         topic.URL,
		Hot:         topic.Hot,
	}

	var (
		detail trending.Detail
		posts  []trending.Post
	)
	inner, ictx := errgroup.WithContext(ctx)
	inner.Go(func() error {
		detail = r.details.Enrich(ictx, topic.Title)
		return nil
	})
	inner.Go(func() error {
		posts = r.posts.Collect(ictx, topic.Title)
		return nil
	})
	_ = inner.Wait()

	if detail != (trending.Detail{}) {
		r.stats.addDetail()
	}
	if item.Category == "" {
		item.Category = detail.Category
	}
	if item.Description == "" {
		item.Description = detail.Description
	}
	item.ReadCount = detail.ReadCount
	item.DiscussCount = detail.DiscussCount
	item.OriginCount = detail.OriginCount

	item.Posts = posts
	r.stats.addPosts(len(posts))

	return item
}
