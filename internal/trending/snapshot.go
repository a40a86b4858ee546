package trending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-rod/rod/lib/proto"

	"hotsearch/internal/browser"
	"hotsearch/internal/config"
	"hotsearch/internal/fetcher"
)

// SnapshotFetcher pulls the rendered trending payload through the shared
// browser context. The endpoint serves the mobile container JSON, so the
// page body is the payload itself.
type SnapshotFetcher struct {
	b      *browser.Browser
	cfg    *config.SnapshotConfig
	logger *slog.Logger
	retry  fetcher.RetryPolicy
}

// NewSnapshotFetcher creates a snapshot fetcher bound to the shared browser.
func NewSnapshotFetcher(b *browser.Browser, cfg *config.SnapshotConfig, logger *slog.Logger) *SnapshotFetcher {
	return &SnapshotFetcher{
		b:      b,
		cfg:    cfg,
		logger: logger.With("component", "snapshot"),
		retry: fetcher.RetryPolicy{
			MaxAttempts: cfg.MaxRetries,
			Delay:       cfg.RetryDelay,
			Cooldown:    cfg.CooldownDelay,
		},
	}
}

// Fetch returns the current trending topics. It retries transient failures
// with a fixed delay and, once those are exhausted, waits out a long
// cooldown for one last attempt. Exhaustion is reported as
// fetcher.ErrSnapshotExhausted.
func (f *SnapshotFetcher) Fetch(ctx context.Context) ([]RawTopic, error) {
	var topics []RawTopic

	err := f.retry.Do(ctx, func(ctx context.Context) error {
		body, err := f.fetchOnce(ctx)
		if err != nil {
			f.logger.Warn("snapshot attempt failed", "error", err)
			return err
		}
		parsed, err := parseSnapshotPayload(body)
		if err != nil {
			f.logger.Warn("snapshot payload rejected", "error", err)
			return err
		}
		topics = parsed
		return nil
	})
	if err != nil {
		if errors.Is(err, fetcher.ErrMaxRetries) {
			return nil, errors.Join(fetcher.ErrSnapshotExhausted, err)
		}
		return nil, err
	}

	f.logger.Info("snapshot fetched", "topics", len(topics))
	return topics, nil
}

func (f *SnapshotFetcher) fetchOnce(ctx context.Context) ([]byte, error) {
	page, err := f.b.Page()
	if err != nil {
		return nil, err
	}
	defer page.Close()
	page = page.Context(ctx)

	if f.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.cfg.UserAgent}); err != nil {
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}

	if err := page.Timeout(f.cfg.NavTimeout).Navigate(f.cfg.URL); err != nil {
		return nil, fmt.Errorf("navigate trending endpoint: %w", err)
	}
	if err := page.Timeout(f.cfg.NavTimeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait trending endpoint: %w", err)
	}

	body, err := page.Timeout(f.cfg.NavTimeout).Element("body")
	if err != nil {
		return nil, fmt.Errorf("locate payload body: %w", err)
	}
	text, err := body.Text()
	if err != nil {
		return nil, fmt.Errorf("read payload body: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fetcher.ErrEmptyResponse
	}
	return []byte(text), nil
}

type snapshotPayload struct {
	OK   int `json:"ok"`
	Data struct {
		Cards []struct {
			CardGroup []snapshotCard `json:"card_group"`
		} `json:"cards"`
	} `json:"data"`
}

type snapshotCard struct {
	Desc        string          `json:"desc"`
	DescExtr    json.RawMessage `json:"desc_extr"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Scheme      string          `json:"scheme"`
	Promotion   json.RawMessage `json:"promotion"`
}

// parseSnapshotPayload decodes the container payload into raw topics. The
// heat field arrives either as a bare number or as free text, and entries
// carrying a promotion block are advertisements.
func parseSnapshotPayload(body []byte) ([]RawTopic, error) {
	var payload snapshotPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode trending payload: %w", err)
	}
	if payload.OK != 1 {
		return nil, fmt.Errorf("trending payload not ok (ok=%d)", payload.OK)
	}
	if len(payload.Data.Cards) == 0 {
		return nil, fmt.Errorf("trending payload has no cards")
	}

	var topics []RawTopic
	for _, card := range payload.Data.Cards {
		for _, entry := range card.CardGroup {
			title := strings.TrimSpace(entry.Desc)
			if title == "" {
				continue
			}
			hotText := decodeHeatText(entry.DescExtr)
			topics = append(topics, RawTopic{
				Title:       title,
				Category:    strings.TrimSpace(entry.Category),
				Description: strings.TrimSpace(entry.Description),
				URL:         entry.Scheme,
				HotText:     hotText,
				Hot:         HotValue(hotText),
				Promotion:   isPromotion(entry.Promotion),
			})
		}
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("trending payload has no topics")
	}
	return topics, nil
}

// decodeHeatText accepts the heat field as either a JSON string or number.
func decodeHeatText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// isPromotion reports whether the entry carries a non-empty promotion block.
func isPromotion(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", "false", "0", `""`, "{}", "[]":
		return false
	}
	return true
}

// FilterTopics drops advertisement entries and topics without a positive
// derived heat, preserving snapshot order.
func FilterTopics(topics []RawTopic) []RawTopic {
	out := make([]RawTopic, 0, len(topics))
	for _, t := range topics {
		if t.Promotion || t.Hot <= 0 {
			continue
		}
		out = append(out, t)
	}
	return out
}
