package session

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"hotsearch/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	scfg := &config.SessionConfig{
		AuthStatePath: filepath.Join(dir, "auth_state.json"),
		CookiesPath:   filepath.Join(dir, "cookies.json"),
	}
	bcfg := &config.BrowserConfig{
		Headless:    true,
		UserDataDir: filepath.Join(dir, "profile"),
		WindowSize:  "1920,1080",
		Stealth:     true,
	}
	return NewManager(scfg, bcfg, discardLogger())
}

// Re-auth browsers must not reuse the pipeline browser's profile directory:
// Chromium holds a singleton lock on it, so a second launch against the
// same profile fails while a run is in flight. State moves through the
// persisted cookie files instead.
func TestReauthBrowserUsesEphemeralProfile(t *testing.T) {
	m := newTestManager(t)

	cfg := m.reauthConfig()
	if cfg.UserDataDir != "" {
		t.Errorf("re-auth browser must not reuse the shared profile, got %q", cfg.UserDataDir)
	}
	if !cfg.Stealth || cfg.WindowSize != "1920,1080" {
		t.Errorf("other browser settings must carry over: %+v", cfg)
	}
	if m.bcfg.UserDataDir == "" {
		t.Error("shared browser config must stay untouched")
	}
}

func TestStateRoundTrip(t *testing.T) {
	m := newTestManager(t)

	state := State{
		Cookies: []*proto.NetworkCookieParam{
			{Name: "SUB", Value: "token", Domain: ".weibo.com"},
		},
		Storage: `{"k":"v"}`,
		SavedAt: time.Now(),
	}
	if err := m.save(state); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := m.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Cookies) != 1 || got.Cookies[0].Name != "SUB" || got.Cookies[0].Value != "token" {
		t.Errorf("cookies did not round-trip: %+v", got.Cookies)
	}
}

// Older runs may have left only the plain cookie list behind.
func TestLoadFallsBackToCookieFile(t *testing.T) {
	m := newTestManager(t)

	cookies := []*proto.NetworkCookieParam{{Name: "SUB", Value: "token"}}
	data, err := json.Marshal(cookies)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(m.cfg.CookiesPath, data, 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := m.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Cookies) != 1 || got.Cookies[0].Name != "SUB" {
		t.Errorf("bare cookie list not accepted: %+v", got.Cookies)
	}
}

func TestLoadMissingStateIsAnError(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.load(); err == nil {
		t.Fatal("expected error when no state files exist")
	}
}
