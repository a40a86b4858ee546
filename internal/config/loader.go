package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults from struct
	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("HOTSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search default locations
		v.SetConfigName("hotsearch")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".hotsearch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("snapshot.url", cfg.Snapshot.URL)
	v.SetDefault("snapshot.max_retries", cfg.Snapshot.MaxRetries)
	v.SetDefault("snapshot.retry_delay", cfg.Snapshot.RetryDelay)
	v.SetDefault("snapshot.cooldown_delay", cfg.Snapshot.CooldownDelay)
	v.SetDefault("snapshot.nav_timeout", cfg.Snapshot.NavTimeout)
	v.SetDefault("snapshot.user_agent", cfg.Snapshot.UserAgent)

	v.SetDefault("detail.url", cfg.Detail.URL)
	v.SetDefault("detail.concurrency", cfg.Detail.Concurrency)
	v.SetDefault("detail.max_retries", cfg.Detail.MaxRetries)
	v.SetDefault("detail.retry_delay", cfg.Detail.RetryDelay)
	v.SetDefault("detail.request_timeout", cfg.Detail.RequestTimeout)
	v.SetDefault("detail.max_body_size", cfg.Detail.MaxBodySize)

	v.SetDefault("posts.search_url", cfg.Posts.SearchURL)
	v.SetDefault("posts.max_posts", cfg.Posts.MaxPosts)
	v.SetDefault("posts.max_search_pages", cfg.Posts.MaxSearchPages)
	v.SetDefault("posts.scroll_count", cfg.Posts.ScrollCount)
	v.SetDefault("posts.scroll_delay", cfg.Posts.ScrollDelay)
	v.SetDefault("posts.concurrency", cfg.Posts.Concurrency)
	v.SetDefault("posts.nav_timeout", cfg.Posts.NavTimeout)
	v.SetDefault("posts.marker_timeout", cfg.Posts.MarkerTimeout)

	v.SetDefault("session.home_url", cfg.Session.HomeURL)
	v.SetDefault("session.login_url", cfg.Session.LoginURL)
	v.SetDefault("session.auth_state_path", cfg.Session.AuthStatePath)
	v.SetDefault("session.cookies_path", cfg.Session.CookiesPath)
	v.SetDefault("session.probe_timeout", cfg.Session.ProbeTimeout)
	v.SetDefault("session.login_timeout", cfg.Session.LoginTimeout)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.user_data_dir", cfg.Browser.UserDataDir)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_dir", cfg.Storage.OutputDir)
	v.SetDefault("storage.archive_dir", cfg.Storage.ArchiveDir)
	v.SetDefault("storage.readme_path", cfg.Storage.ReadmePath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_db", cfg.Storage.MongoDB)

	v.SetDefault("api.port", cfg.API.Port)

	v.SetDefault("scheduler.spec", cfg.Scheduler.Spec)
	v.SetDefault("scheduler.startup_delay", cfg.Scheduler.StartupDelay)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
