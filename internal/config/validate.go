package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := validateURL(cfg.Snapshot.URL); err != nil {
		return fmt.Errorf("snapshot.url: %w", err)
	}
	if cfg.Snapshot.MaxRetries < 1 {
		return fmt.Errorf("snapshot.max_retries must be >= 1, got %d", cfg.Snapshot.MaxRetries)
	}
	if cfg.Snapshot.RetryDelay < 0 {
		return fmt.Errorf("snapshot.retry_delay must be >= 0")
	}
	if cfg.Snapshot.NavTimeout <= 0 {
		return fmt.Errorf("snapshot.nav_timeout must be > 0")
	}

	if cfg.Detail.Concurrency < 1 {
		return fmt.Errorf("detail.concurrency must be >= 1, got %d", cfg.Detail.Concurrency)
	}
	if cfg.Detail.MaxRetries < 1 {
		return fmt.Errorf("detail.max_retries must be >= 1, got %d", cfg.Detail.MaxRetries)
	}
	if cfg.Detail.MaxBodySize <= 0 {
		return fmt.Errorf("detail.max_body_size must be > 0")
	}

	if cfg.Posts.MaxPosts < 1 {
		return fmt.Errorf("posts.max_posts must be >= 1, got %d", cfg.Posts.MaxPosts)
	}
	if cfg.Posts.MaxSearchPages < 1 {
		return fmt.Errorf("posts.max_search_pages must be >= 1, got %d", cfg.Posts.MaxSearchPages)
	}
	if cfg.Posts.ScrollCount < 0 {
		return fmt.Errorf("posts.scroll_count must be >= 0, got %d", cfg.Posts.ScrollCount)
	}
	if cfg.Posts.Concurrency < 1 {
		return fmt.Errorf("posts.concurrency must be >= 1, got %d", cfg.Posts.Concurrency)
	}

	if cfg.Session.LoginTimeout <= 0 {
		return fmt.Errorf("session.login_timeout must be > 0")
	}
	if cfg.Session.AuthStatePath == "" {
		return fmt.Errorf("session.auth_state_path must not be empty")
	}

	if cfg.Storage.Type != "file" && cfg.Storage.Type != "mongo" {
		return fmt.Errorf("storage.type must be 'file' or 'mongo', got %q", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "mongo" && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required when storage.type is 'mongo'")
	}

	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port must be 1-65535, got %d", cfg.API.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
