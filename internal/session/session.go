// Package session owns the persisted authentication context. State is
// optimistically assumed valid: callers attempt their operation first and
// ask for re-authentication only when a page is missing its expected
// structural marker.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"hotsearch/internal/browser"
	"hotsearch/internal/config"
	"hotsearch/internal/fetcher"
)

// homeMarker is the text that only renders on the home page for a
// logged-in account.
const homeMarker = "首页"

// Status is the outcome of a re-authentication cycle.
type Status int

const (
	StatusAuthenticated Status = iota
	StatusAwaitingLogin
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusAwaitingLogin:
		return "awaiting_login"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the serialized authentication context: the cookie set plus an
// opaque local-storage snapshot of the home origin. It round-trips
// losslessly across runs.
type State struct {
	Cookies []*proto.NetworkCookieParam `json:"cookies"`
	Storage string                      `json:"storage,omitempty"`
	SavedAt time.Time                   `json:"saved_at"`
}

// Manager maintains one persisted authentication context across runs.
type Manager struct {
	cfg    *config.SessionConfig
	bcfg   *config.BrowserConfig
	logger *slog.Logger
	mu     sync.Mutex
}

// NewManager creates a session Manager.
func NewManager(cfg *config.SessionConfig, bcfg *config.BrowserConfig, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		bcfg:   bcfg,
		logger: logger.With("component", "session"),
	}
}

// Seed loads previously persisted cookies into the shared browser context.
// Missing or unreadable state is not an error: the session simply starts
// unauthenticated and the first auth wall triggers re-authentication.
func (m *Manager) Seed(b *browser.Browser) error {
	state, err := m.load()
	if err != nil {
		m.logger.Debug("no persisted session state", "error", err)
		return nil
	}
	if err := b.SetCookies(state.Cookies); err != nil {
		return fmt.Errorf("seed cookies: %w", err)
	}
	m.logger.Info("session state seeded", "cookies", len(state.Cookies), "saved_at", state.SavedAt)
	return nil
}

// Reauthenticate refreshes the persisted authentication context. It first
// tries a silent probe with the saved state; if that fails it opens a
// visible login surface and waits for the user to complete login. The
// renewed state is persisted on success. Only one re-authentication runs
// at a time; concurrent callers share the result of the in-flight cycle.
func (m *Manager) Reauthenticate() (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ok := m.probeSilent(); ok {
		return StatusAuthenticated, nil
	}

	m.logger.Info("saved session state invalid, starting interactive login",
		"timeout", m.cfg.LoginTimeout)

	if err := m.loginInteractive(); err != nil {
		return StatusFailed, err
	}
	return StatusAuthenticated, nil
}

// reauthConfig strips the profile directory from the browser config.
// The pipeline's shared browser holds the profile's singleton lock while a
// run is in flight, so re-auth browsers run on an ephemeral profile and
// state moves through the persisted cookie files instead.
func (m *Manager) reauthConfig() *config.BrowserConfig {
	cfg := *m.bcfg
	cfg.UserDataDir = ""
	return &cfg
}

// probeSilent tries the saved state against the home page. Success both
// validates and re-persists the state.
func (m *Manager) probeSilent() bool {
	b, err := browser.Launch(m.reauthConfig(), m.logger)
	if err != nil {
		m.logger.Warn("probe launch failed", "error", err)
		return false
	}
	defer b.Close()

	if err := m.Seed(b); err != nil {
		m.logger.Warn("probe seed failed", "error", err)
		return false
	}

	page, err := b.Page()
	if err != nil {
		return false
	}
	defer page.Close()

	if err := page.Timeout(m.cfg.ProbeTimeout).Navigate(m.cfg.HomeURL); err != nil {
		m.logger.Debug("probe navigation failed", "error", err)
		return false
	}
	if _, err := page.Timeout(m.cfg.ProbeTimeout).ElementR("a, span, div", homeMarker); err != nil {
		m.logger.Debug("probe marker not found", "error", err)
		return false
	}

	m.logger.Info("silent login succeeded with saved state")
	m.persistFrom(b, page)
	return true
}

// loginInteractive opens a visible browser on the login page and waits for
// the home marker, bounded by the login timeout.
func (m *Manager) loginInteractive() error {
	b, err := browser.LaunchInteractive(m.reauthConfig(), m.logger)
	if err != nil {
		return fmt.Errorf("launch login browser: %w", err)
	}
	defer b.Close()

	page, err := b.Page()
	if err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	defer page.Close()

	if err := page.Timeout(m.cfg.LoginTimeout).Navigate(m.cfg.LoginURL); err != nil {
		return fmt.Errorf("navigate login page: %w", err)
	}

	m.logger.Info("waiting for login in the opened browser window")
	if _, err := page.Timeout(m.cfg.LoginTimeout).ElementR("a, span, div", homeMarker); err != nil {
		return errors.Join(fetcher.ErrLoginTimeout, err)
	}

	m.logger.Info("login succeeded, persisting renewed state")
	m.persistFrom(b, page)
	return nil
}

// persistFrom captures the browser's cookies plus the current page's
// local-storage snapshot and writes both state files. Persistence failures
// are logged, never fatal: the in-memory session keeps working.
func (m *Manager) persistFrom(b *browser.Browser, page *rod.Page) {
	cookies, err := b.Cookies()
	if err != nil {
		m.logger.Warn("reading cookies failed", "error", err)
		return
	}

	state := State{
		Cookies: proto.CookiesToParams(cookies),
		SavedAt: time.Now(),
	}
	if obj, err := page.Eval(`() => JSON.stringify(window.localStorage)`); err == nil {
		state.Storage = obj.Value.Str()
	}

	if err := m.save(state); err != nil {
		m.logger.Warn("persisting session state failed", "error", err)
	}
}

// load reads the persisted state, falling back to the plain cookie list.
func (m *Manager) load() (State, error) {
	if data, err := os.ReadFile(m.cfg.AuthStatePath); err == nil {
		var state State
		if err := json.Unmarshal(data, &state); err == nil && len(state.Cookies) > 0 {
			return state, nil
		}
	}

	// Older runs may have left only the cookie list behind. Accept both a
	// bare array and a {"cookies": [...]} wrapper.
	data, err := os.ReadFile(m.cfg.CookiesPath)
	if err != nil {
		return State{}, fmt.Errorf("no session state: %w", err)
	}
	var cookies []*proto.NetworkCookieParam
	if err := json.Unmarshal(data, &cookies); err != nil {
		var wrapper struct {
			Cookies []*proto.NetworkCookieParam `json:"cookies"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil || len(wrapper.Cookies) == 0 {
			return State{}, fmt.Errorf("malformed cookie file %s", m.cfg.CookiesPath)
		}
		cookies = wrapper.Cookies
	}
	return State{Cookies: cookies}, nil
}

// save writes the full state and the plain cookie list, each atomically.
func (m *Manager) save(state State) error {
	if err := writeJSON(m.cfg.AuthStatePath, state); err != nil {
		return err
	}
	return writeJSON(m.cfg.CookiesPath, state.Cookies)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
