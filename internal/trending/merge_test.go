package trending

import (
	"reflect"
	"testing"
)

func i64(v int64) *int64 { return &v }

func TestMergeMetricsOnlyGrow(t *testing.T) {
	previous := []*Item{
		{Title: "A", Hot: 50000, ReadCount: i64(900), Posts: []Post{{Author: "old"}}},
	}
	current := []*Item{
		{Title: "A", Hot: 42000, ReadCount: i64(1200), DiscussCount: i64(30), Posts: []Post{{Author: "new"}}},
	}

	got := Merge(current, previous)
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}

	a := got[0]
	if a.Hot != 50000 {
		t.Errorf("hot regressed: got %d, want 50000", a.Hot)
	}
	if a.ReadCount == nil || *a.ReadCount != 1200 {
		t.Errorf("read count did not grow: %v", a.ReadCount)
	}
	if a.DiscussCount == nil || *a.DiscussCount != 30 {
		t.Errorf("known discuss count lost against unknown: %v", a.DiscussCount)
	}
	if len(a.Posts) != 1 || a.Posts[0].Author != "new" {
		t.Errorf("posts not replaced wholesale: %+v", a.Posts)
	}
}

func TestMergeCarriesDroppedTopics(t *testing.T) {
	previous := []*Item{
		{Title: "gone", Hot: 90000, Posts: []Post{{Author: "x"}}},
		{Title: "both", Hot: 10000},
	}
	current := []*Item{
		{Title: "both", Hot: 20000},
		{Title: "fresh", Hot: 30000},
	}

	got := Merge(current, previous)
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	if got[0].Title != "gone" || got[1].Title != "fresh" || got[2].Title != "both" {
		t.Errorf("unexpected order: %s, %s, %s", got[0].Title, got[1].Title, got[2].Title)
	}
	if len(got[0].Posts) != 1 {
		t.Error("carried topic lost its posts")
	}
	if got[2].Hot != 20000 {
		t.Errorf("expected both=20000, got %d", got[2].Hot)
	}
}

// Merging the same snapshot twice must be a no-op the second time.
func TestMergeIdempotent(t *testing.T) {
	previous := []*Item{
		{Title: "A", Hot: 50000, ReadCount: i64(100)},
		{Title: "B", Hot: 40000},
	}
	current := []*Item{
		{Title: "A", Hot: 60000, DiscussCount: i64(5), Posts: []Post{{Author: "a"}}},
	}

	once := Merge(current, previous)
	twice := Merge(current, once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	current := []*Item{
		{Title: "A", Hot: 10, Posts: []Post{{Author: "a", ImageLinks: []string{"x"}}}},
	}
	got := Merge(current, nil)

	got[0].Posts[0].Author = "mutated"
	got[0].Posts[0].ImageLinks[0] = "mutated"
	if current[0].Posts[0].Author != "a" || current[0].Posts[0].ImageLinks[0] != "x" {
		t.Error("merged result aliases input slices")
	}
}

func TestDedupe(t *testing.T) {
	items := []*Item{
		{Title: "A", Hot: 10},
		{Title: "B", Hot: 30},
		{Title: "A", Hot: 99},
	}
	got := Dedupe(items)
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].Title != "B" || got[1].Title != "A" || got[1].Hot != 10 {
		t.Errorf("dedupe should keep first occurrence and sort: %+v, %+v", got[0], got[1])
	}
}

// A topic first seen from a degraded snapshot may lack its link; a later
// run that resolves it must fill the gap, and an already-known link wins.
func TestMergeBackfillsEmptyURL(t *testing.T) {
	previous := []*Item{
		{Title: "话题A", Hot: 100},
		{Title: "话题B", Hot: 50, URL: "https://s.weibo.com/weibo?q=%23B%23"},
	}
	current := []*Item{
		{Title: "话题A", Hot: 120, URL: "https://s.weibo.com/weibo?q=%23A%23"},
		{Title: "话题B", Hot: 60, URL: "https://s.weibo.com/weibo?q=%23B-other%23"},
	}

	merged := Merge(current, previous)
	byTitle := make(map[string]*Item, len(merged))
	for _, it := range merged {
		byTitle[it.Title] = it
	}

	if got := byTitle["话题A"].URL; got != "https://s.weibo.com/weibo?q=%23A%23" {
		t.Errorf("missing link not backfilled: %q", got)
	}
	if got := byTitle["话题B"].URL; got != "https://s.weibo.com/weibo?q=%23B%23" {
		t.Errorf("known link must be kept: %q", got)
	}
}
