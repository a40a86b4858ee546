package trending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"hotsearch/internal/browser"
	"hotsearch/internal/config"
	"hotsearch/internal/fetcher"
	"hotsearch/internal/normalize"
	"hotsearch/internal/session"
)

// searchResultMarker only renders on hot-search result pages served to an
// authenticated session; its absence means we hit a login wall.
const searchResultMarker = "div.card-wrap"

// pageVisitor loads rendered pages for the collector. searchPage reports
// fetcher.ErrAuthWall when the result marker is missing.
type pageVisitor interface {
	searchPage(ctx context.Context, target string) (string, error)
	detailPage(ctx context.Context, target string) (string, error)
}

// sessionRefresher renews the authentication context after a wall and
// re-seeds it into the shared browser.
type sessionRefresher interface {
	refresh() error
}

// PostCollector samples hot posts for a topic from the search surface via
// the shared browser. Detail-page visits are bounded by a process-wide
// weighted semaphore.
type PostCollector struct {
	pages    pageVisitor
	sessions sessionRefresher
	cfg      *config.PostsConfig
	sem      *semaphore.Weighted
	logger   *slog.Logger
}

// NewPostCollector creates a post collector bound to the shared browser and
// session manager.
func NewPostCollector(b *browser.Browser, sessions *session.Manager, cfg *config.PostsConfig, logger *slog.Logger) *PostCollector {
	logger = logger.With("component", "posts")
	return newPostCollector(
		&rodVisitor{b: b, cfg: cfg},
		&managerRefresher{m: sessions, b: b, logger: logger},
		cfg,
		logger,
	)
}

func newPostCollector(pages pageVisitor, sessions sessionRefresher, cfg *config.PostsConfig, logger *slog.Logger) *PostCollector {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &PostCollector{
		pages:    pages,
		sessions: sessions,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(concurrency)),
		logger:   logger,
	}
}

// Collect samples up to the configured number of posts for a topic. An
// auth wall triggers exactly one re-authentication cycle followed by one
// retry; any other failure is absorbed and yields an empty slice so the
// topic still ships with its snapshot-level fields.
func (c *PostCollector) Collect(ctx context.Context, title string) []Post {
	for attempt := 0; attempt < 2; attempt++ {
		posts, err := c.collectOnce(ctx, title)
		if err == nil {
			return posts
		}
		if errors.Is(err, fetcher.ErrAuthWall) && attempt == 0 {
			c.logger.Warn("auth wall on search page, re-authenticating", "title", title)
			if rerr := c.sessions.refresh(); rerr != nil {
				c.logger.Error("re-authentication failed", "error", rerr)
				return nil
			}
			continue
		}
		c.logger.Warn("post collection failed", "title", title, "error", err)
		return nil
	}
	return nil
}

func (c *PostCollector) collectOnce(ctx context.Context, title string) ([]Post, error) {
	query := url.QueryEscape("#" + strings.ReplaceAll(title, "#", "") + "#")
	base := fmt.Sprintf(c.cfg.SearchURL, query)

	seen := make(map[string]struct{})
	var cards []searchCard

	for pageNum := 1; pageNum <= c.cfg.MaxSearchPages && len(cards) < c.cfg.MaxPosts; pageNum++ {
		target := base
		if pageNum > 1 {
			target += "&page=" + strconv.Itoa(pageNum)
		}

		html, err := c.pages.searchPage(ctx, target)
		if err != nil {
			// The first page decides whether the session is usable; later
			// pages are best-effort pagination.
			if pageNum == 1 {
				return nil, err
			}
			c.logger.Debug("search page skipped", "page", pageNum, "error", err)
			break
		}

		baseURL, _ := url.Parse(target)
		for _, card := range parseSearchCards(html, baseURL) {
			if _, dup := seen[card.detailURL]; dup {
				continue
			}
			seen[card.detailURL] = struct{}{}
			cards = append(cards, card)
			if len(cards) >= c.cfg.MaxPosts {
				break
			}
		}
	}

	if len(cards) == 0 {
		return nil, nil
	}
	posts := c.enrich(ctx, cards)
	c.logger.Info("posts collected", "title", title, "count", len(posts))
	return posts, nil
}

// enrich visits each card's detail page concurrently, bounded by the shared
// semaphore. A failed visit degrades to the list-page record.
func (c *PostCollector) enrich(ctx context.Context, cards []searchCard) []Post {
	now := time.Now()
	posts := make([]Post, len(cards))
	g, gctx := errgroup.WithContext(ctx)

	for i, card := range cards {
		g.Go(func() error {
			if err := c.sem.Acquire(gctx, 1); err != nil {
				posts[i] = card.listPost(now)
				return nil
			}
			defer c.sem.Release(1)
			posts[i] = c.visitDetail(gctx, card, now)
			return nil
		})
	}
	_ = g.Wait()
	return posts
}

// visitDetail loads a post's own page for the precise timestamp and media.
func (c *PostCollector) visitDetail(ctx context.Context, card searchCard, now time.Time) Post {
	html, err := c.pages.detailPage(ctx, card.detailURL)
	if err != nil {
		c.logger.Debug("detail visit failed", "url", card.detailURL, "error", err)
		return card.listPost(now)
	}
	return parsePostDetail(html, card, now)
}

// rodVisitor is the production pageVisitor, backed by the shared browser.
type rodVisitor struct {
	b   *browser.Browser
	cfg *config.PostsConfig
}

func (v *rodVisitor) searchPage(ctx context.Context, target string) (string, error) {
	page, err := v.b.Page()
	if err != nil {
		return "", err
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.Timeout(v.cfg.NavTimeout).Navigate(target); err != nil {
		return "", fmt.Errorf("navigate search page: %w", err)
	}
	if err := page.Timeout(v.cfg.NavTimeout).WaitLoad(); err != nil {
		return "", fmt.Errorf("wait search page: %w", err)
	}

	if _, err := page.Timeout(v.cfg.MarkerTimeout).Element(searchResultMarker); err != nil {
		return "", errors.Join(fetcher.ErrAuthWall, err)
	}

	for i := 0; i < v.cfg.ScrollCount; i++ {
		if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			break
		}
		if err := sleep(ctx, v.cfg.ScrollDelay); err != nil {
			return "", err
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read search page: %w", err)
	}
	return html, nil
}

func (v *rodVisitor) detailPage(ctx context.Context, target string) (string, error) {
	page, err := v.b.Page()
	if err != nil {
		return "", err
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.Timeout(v.cfg.NavTimeout).Navigate(target); err != nil {
		return "", fmt.Errorf("navigate detail page: %w", err)
	}
	if err := page.Timeout(v.cfg.NavTimeout).WaitLoad(); err != nil {
		return "", fmt.Errorf("wait detail page: %w", err)
	}
	return page.HTML()
}

// managerRefresher adapts the session manager to the collector's seam.
type managerRefresher struct {
	m      *session.Manager
	b      *browser.Browser
	logger *slog.Logger
}

func (r *managerRefresher) refresh() error {
	status, err := r.m.Reauthenticate()
	if err != nil {
		return err
	}
	if status != session.StatusAuthenticated {
		return fmt.Errorf("session not authenticated: %s", status)
	}
	if err := r.m.Seed(r.b); err != nil {
		// The renewed state is persisted; a failed in-memory seed only
		// costs this run's remaining topics.
		r.logger.Warn("re-seeding renewed session failed", "error", err)
	}
	return nil
}

// searchCard is one post card scraped off a search result page, before the
// detail visit fills in media and the precise timestamp.
type searchCard struct {
	author    string
	content   string
	timeLabel string
	source    string
	detailURL string
	forwards  int64
	comments  int64
	likes     int64
}

// listPost builds the degraded record available without a detail visit.
func (c searchCard) listPost(now time.Time) Post {
	return Post{
		Author:        c.author,
		Content:       c.content,
		Timestamp:     normalize.TimestampAt(c.timeLabel, now),
		Source:        c.source,
		ForwardsCount: c.forwards,
		CommentsCount: c.comments,
		LikesCount:    c.likes,
		DetailURL:     c.detailURL,
	}
}

// parseSearchCards extracts post cards from a search result page. Cards
// without body text or without a permalink are skipped; the permalink is
// the dedup key.
func parseSearchCards(html string, base *url.URL) []searchCard {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var cards []searchCard
	doc.Find("div.card-wrap").Each(func(_ int, s *goquery.Selection) {
		txt := s.Find("p.txt").First()
		if txt.Length() == 0 {
			return
		}
		content := strings.TrimSpace(txt.Text())
		if content == "" {
			return
		}

		from := s.Find(".content .from").First()
		links := from.Find("a")
		detailURL := resolveRef(links.First().AttrOr("href", ""), base)
		if detailURL == "" {
			return
		}

		card := searchCard{
			author:    strings.TrimSpace(s.Find(".content .info .name").First().Text()),
			content:   content,
			timeLabel: strings.TrimSpace(links.First().Text()),
			detailURL: detailURL,
		}
		if links.Length() > 1 {
			card.source = strings.TrimSpace(links.Eq(1).Text())
		}

		acts := s.Find(".card-act ul li")
		card.forwards = normalize.ParseMagnitude(acts.Eq(0).Text())
		card.comments = normalize.ParseMagnitude(acts.Eq(1).Text())
		card.likes = normalize.ParseMagnitude(acts.Eq(2).Text())

		cards = append(cards, card)
	})
	return cards
}

// metaTimestampSelectors are checked in order when the detail page's from
// link does not carry a usable time label.
var metaTimestampSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[name="publishdate"]`,
	`meta[name="date"]`,
}

// parsePostDetail merges a post's detail page into its list-page record:
// the precise timestamp, full-size media links, and a fuller body text when
// the list page truncated it.
func parsePostDetail(html string, card searchCard, now time.Time) Post {
	post := card.listPost(now)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return post
	}
	base, _ := url.Parse(card.detailURL)

	if raw := detailTimestamp(doc, card.timeLabel); raw != "" {
		post.Timestamp = normalize.TimestampAt(raw, now)
	}

	// The detail page carries the untruncated body.
	if full := strings.TrimSpace(doc.Find(`div[class*="detail_wbtext"]`).First().Text()); len(full) > len(post.Content) {
		post.Content = full
	}

	post.ImageLinks = detailImages(doc, base)
	post.VideoLink = detailVideo(doc, base)
	if post.VideoLink != "" {
		post.Content = StripVideoCaption(post.Content, post.Author)
	}
	return post
}

// detailTimestamp walks the fallback chain for the post's publish time:
// from link, meta tags, a <time> element, then any short date-shaped text.
// An empty return means the list-page label stands.
func detailTimestamp(doc *goquery.Document, listLabel string) string {
	if text := strings.TrimSpace(doc.Find(".from a").First().Text()); text != "" && normalize.LooksLikeTimeLabel(text) {
		return text
	}
	for _, sel := range metaTimestampSelectors {
		if content := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); content != "" {
			return content
		}
	}
	if t := doc.Find("time").First(); t.Length() > 0 {
		if dt := strings.TrimSpace(t.AttrOr("datetime", "")); dt != "" {
			return dt
		}
		if text := strings.TrimSpace(t.Text()); text != "" {
			return text
		}
	}
	var found string
	doc.Find("span, a, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text != "" && text != listLabel && normalize.LooksLikeTimeLabel(text) {
			found = text
			return false
		}
		return true
	})
	return found
}

// detailImages collects canonical full-size image links, preserving
// document order and dropping duplicates and emoticon sprites.
func detailImages(doc *goquery.Document, base *url.URL) []string {
	var links []string
	seen := make(map[string]struct{})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" {
			src = s.AttrOr("data-src", "")
		}
		if src == "" {
			return
		}
		if !strings.Contains(src, "sinaimg") && !strings.Contains(src, "/wx") && !strings.Contains(src, "/mw") {
			return
		}
		if strings.Contains(src, "emoticon") || strings.Contains(src, "/face/") {
			return
		}
		canonical, ok := CanonicalImageURL(src, base)
		if !ok {
			return
		}
		if _, dup := seen[canonical]; dup {
			return
		}
		seen[canonical] = struct{}{}
		links = append(links, canonical)
	})
	return links
}

// detailVideo extracts a playable video source or, failing that, a link to
// the post's video page.
func detailVideo(doc *goquery.Document, base *url.URL) string {
	if v := doc.Find("video").First(); v.Length() > 0 {
		if src := v.AttrOr("src", ""); src != "" {
			return resolveRef(src, base)
		}
		if src := v.Find("source").First().AttrOr("src", ""); src != "" {
			return resolveRef(src, base)
		}
	}
	if href := doc.Find(`a[href*="video.weibo.com"]`).First().AttrOr("href", ""); href != "" {
		return resolveRef(href, base)
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
