// Package trending implements the harvest pipeline's domain: snapshot
// acquisition, per-topic enrichment, post collection, and multi-snapshot
// merge semantics.
package trending

import (
	"fmt"
	"sort"
	"strings"

	"hotsearch/internal/normalize"
)

// Post is one sampled post under a topic. Instances are built per run,
// enriched in place by the detail visit, and treated as immutable once
// handed to the aggregator.
type Post struct {
	Author        string   `json:"author"`
	Content       string   `json:"content"`
	Timestamp     string   `json:"timestamp"`
	Source        string   `json:"source"`
	ForwardsCount int64    `json:"forwards_count"`
	CommentsCount int64    `json:"comments_count"`
	LikesCount    int64    `json:"likes_count"`
	ImageLinks    []string `json:"image_links"`
	VideoLink     string   `json:"video_link"`

	// DetailURL uniquely identifies a post within one collection run.
	// It is the dedup key only and is not persisted externally.
	DetailURL string `json:"-"`
}

// Item is one ranked topic observed in a snapshot. Title is the unique key
// within a snapshot and across daily merges.
type Item struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Hot         int64  `json:"hot"`
	IsAd        bool   `json:"ads"`

	// Secondary counts are pointers so "unknown" stays distinguishable
	// from zero across merges.
	ReadCount    *int64 `json:"read_count"`
	DiscussCount *int64 `json:"discuss_count"`
	OriginCount  *int64 `json:"origin"`

	Posts []Post `json:"posts"`
}

// NewItem validates the required identity fields of a topic record.
func NewItem(title, pageURL string) (*Item, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("trending item requires a title")
	}
	return &Item{Title: title, URL: pageURL}, nil
}

// RawTopic is one entry of the rendered trending payload before enrichment.
type RawTopic struct {
	Title       string
	Category    string
	Description string
	URL         string
	HotText     string
	Hot         int64
	Promotion   bool
}

// Detail carries the secondary per-topic attributes fetched from the topic
// detail page. The zero value means "nothing known"; absent fields must not
// be read as zero counts.
type Detail struct {
	Category     string
	Description  string
	ReadCount    *int64
	DiscussCount *int64
	OriginCount  *int64
}

// HotValue derives a topic's heat from the free-text heat label. Labels
// with a magnitude suffix are scaled ("5.2万" is 52000); otherwise all
// embedded digits are concatenated, which handles compact encodings such
// as "剧集 4951060".
func HotValue(text string) int64 {
	if strings.Contains(text, "万") || strings.Contains(text, "亿") {
		return normalize.ParseMagnitude(text)
	}
	return normalize.ExtractDigits(text)
}

// Dedupe keeps the first occurrence of each title and re-sorts the result
// by descending hot. Titles are the snapshot-level uniqueness invariant.
func Dedupe(items []*Item) []*Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if _, ok := seen[it.Title]; ok {
			continue
		}
		seen[it.Title] = struct{}{}
		out = append(out, it)
	}
	SortByHot(out)
	return out
}

// SortByHot orders items by descending hot, breaking ties by title so the
// output is deterministic.
func SortByHot(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Hot != items[j].Hot {
			return items[i].Hot > items[j].Hot
		}
		return items[i].Title < items[j].Title
	})
}
