package trending

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"

	"hotsearch/internal/config"
	"hotsearch/internal/fetcher"
	"hotsearch/internal/normalize"
)

// XPath expressions for the topic detail page. The counts block lists
// read, discuss, and origin totals in that order; the topic band carries
// the category label and the host-written description.
const (
	xpathDetailCounts      = `//div[contains(@class,"g-list-a") and contains(@class,"data")]//ul/li/strong`
	xpathDetailCategory    = `(//*[@id="pl_topicband"]//dl/dd)[1]`
	xpathDetailDescription = `(//*[@id="pl_topicband"]//dl[2]/dd[not(contains(@class,"host-row"))])[1]`
)

// DetailEnricher fetches per-topic secondary attributes over direct HTTP.
// A weighted semaphore bounds how many detail requests run at once across
// the whole process.
type DetailEnricher struct {
	client *fetcher.Client
	cfg    *config.DetailConfig
	sem    *semaphore.Weighted
	logger *slog.Logger
	retry  fetcher.RetryPolicy
}

// NewDetailEnricher creates a detail enricher with its own concurrency gate.
func NewDetailEnricher(client *fetcher.Client, cfg *config.DetailConfig, logger *slog.Logger) *DetailEnricher {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &DetailEnricher{
		client: client,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(concurrency)),
		logger: logger.With("component", "detail"),
		retry: fetcher.RetryPolicy{
			MaxAttempts: cfg.MaxRetries,
			Delay:       cfg.RetryDelay,
			Retryable:   retryableFetch,
		},
	}
}

func retryableFetch(err error) bool {
	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		return fe.IsRetryable()
	}
	return true
}

// Enrich fetches the detail page for a topic title. Enrichment is
// best-effort: any failure after retries yields an empty Detail and the
// topic keeps only its snapshot-level fields.
func (e *DetailEnricher) Enrich(ctx context.Context, title string) Detail {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return Detail{}
	}
	defer e.sem.Release(1)

	target := fmt.Sprintf(e.cfg.URL, url.QueryEscape(title))

	var body []byte
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		b, err := e.client.Get(ctx, target)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		e.logger.Warn("detail fetch gave up", "title", title, "error", err)
		return Detail{}
	}

	detail, err := parseTopicDetail(body)
	if err != nil {
		e.logger.Warn("detail parse failed", "title", title, "error", err)
		return Detail{}
	}
	return detail
}

// parseTopicDetail extracts the category, description, and the three
// secondary counts from a detail page body. Missing sections leave their
// fields unset rather than failing the whole parse.
func parseTopicDetail(body []byte) (Detail, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return Detail{}, fmt.Errorf("parse detail page: %w", err)
	}

	var detail Detail

	counts := htmlquery.Find(doc, xpathDetailCounts)
	for i, node := range counts {
		value := normalize.ParseMagnitude(nodeText(node))
		switch i {
		case 0:
			detail.ReadCount = &value
		case 1:
			detail.DiscussCount = &value
		case 2:
			detail.OriginCount = &value
		}
	}

	detail.Category = nodeText(htmlquery.FindOne(doc, xpathDetailCategory))
	detail.Description = nodeText(htmlquery.FindOne(doc, xpathDetailDescription))

	return detail, nil
}

func nodeText(node *html.Node) string {
	if node == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(node))
}
