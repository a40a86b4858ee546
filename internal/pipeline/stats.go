package pipeline

import (
	"sync/atomic"
	"time"
)

// Stats tracks pipeline activity with atomic counters safe for concurrent
// updates from per-topic workers.
type Stats struct {
	runs           atomic.Int64
	topicsSeen     atomic.Int64
	topicsKept     atomic.Int64
	detailsFilled  atomic.Int64
	postsCollected atomic.Int64

	lastRunUnix  atomic.Int64
	lastDuration atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Runs           int64         `json:"runs"`
	TopicsSeen     int64         `json:"topics_seen"`
	TopicsKept     int64         `json:"topics_kept"`
	DetailsFilled  int64         `json:"details_filled"`
	PostsCollected int64         `json:"posts_collected"`
	LastRun        time.Time     `json:"last_run"`
	LastDuration   time.Duration `json:"last_duration"`
}

func (s *Stats) recordRun(seen, kept int, started time.Time) {
	s.runs.Add(1)
	s.topicsSeen.Add(int64(seen))
	s.topicsKept.Add(int64(kept))
	s.lastRunUnix.Store(started.Unix())
	s.lastDuration.Store(int64(time.Since(started)))
}

func (s *Stats) addDetail()     { s.detailsFilled.Add(1) }
func (s *Stats) addPosts(n int) { s.postsCollected.Add(int64(n)) }

// Snapshot returns a consistent-enough copy for logging and the health
// endpoint.
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Runs:           s.runs.Load(),
		TopicsSeen:     s.topicsSeen.Load(),
		TopicsKept:     s.topicsKept.Load(),
		DetailsFilled:  s.detailsFilled.Load(),
		PostsCollected: s.postsCollected.Load(),
		LastDuration:   time.Duration(s.lastDuration.Load()),
	}
	if unix := s.lastRunUnix.Load(); unix > 0 {
		snap.LastRun = time.Unix(unix, 0)
	}
	return snap
}
