// Package browser owns the shared Chromium context used by the snapshot
// fetcher, the post collector, and the login flow. Cookies and storage are
// shared across all pages by design; each logical visit opens its own page
// so tasks do not interfere with one another.
package browser

import (
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"hotsearch/internal/config"
)

// Browser wraps a single rod browser sharing one profile directory.
type Browser struct {
	browser *rod.Browser
	cfg     *config.BrowserConfig
	logger  *slog.Logger
}

// Launch starts a Chromium instance using the configured profile directory,
// so cookies and local storage persist across runs.
func Launch(cfg *config.BrowserConfig, logger *slog.Logger) (*Browser, error) {
	return launch(cfg, logger, cfg.Headless)
}

// LaunchInteractive starts a visible Chromium instance for the login flow.
func LaunchInteractive(cfg *config.BrowserConfig, logger *slog.Logger) (*Browser, error) {
	return launch(cfg, logger, false)
}

func launch(cfg *config.BrowserConfig, logger *slog.Logger, headless bool) (*Browser, error) {
	l := launcher.New().
		Headless(headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}
	if cfg.WindowSize != "" {
		l = l.Set("window-size", cfg.WindowSize)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	logger = logger.With("component", "browser")
	logger.Info("browser ready", "headless", headless, "profile", cfg.UserDataDir)

	return &Browser{browser: b, cfg: cfg, logger: logger}, nil
}

// Page opens a fresh page in the shared context, with stealth patches when
// configured.
func (b *Browser) Page() (*rod.Page, error) {
	if b.cfg.Stealth {
		page, err := stealth.Page(b.browser)
		if err != nil {
			return nil, fmt.Errorf("stealth page: %w", err)
		}
		return page, nil
	}
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	return page, nil
}

// Cookies returns every cookie in the shared context.
func (b *Browser) Cookies() ([]*proto.NetworkCookie, error) {
	return b.browser.GetCookies()
}

// SetCookies seeds cookies into the shared context.
func (b *Browser) SetCookies(cookies []*proto.NetworkCookieParam) error {
	if len(cookies) == 0 {
		return nil
	}
	return b.browser.SetCookies(cookies)
}

// Close shuts down the browser.
func (b *Browser) Close() error {
	if b.browser == nil {
		return nil
	}
	return b.browser.Close()
}
