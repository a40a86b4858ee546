package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for hotsearch.
type Config struct {
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"  yaml:"snapshot"`
	Detail    DetailConfig    `mapstructure:"detail"    yaml:"detail"`
	Posts     PostsConfig     `mapstructure:"posts"     yaml:"posts"`
	Session   SessionConfig   `mapstructure:"session"   yaml:"session"`
	Browser   BrowserConfig   `mapstructure:"browser"   yaml:"browser"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// SnapshotConfig controls the trending-list fetch.
type SnapshotConfig struct {
	URL           string        `mapstructure:"url"            yaml:"url"`
	MaxRetries    int           `mapstructure:"max_retries"    yaml:"max_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"    yaml:"retry_delay"`
	CooldownDelay time.Duration `mapstructure:"cooldown_delay" yaml:"cooldown_delay"`
	NavTimeout    time.Duration `mapstructure:"nav_timeout"    yaml:"nav_timeout"`
	UserAgent     string        `mapstructure:"user_agent"     yaml:"user_agent"`
}

// DetailConfig controls topic-detail enrichment over direct HTTP.
type DetailConfig struct {
	URL            string        `mapstructure:"url"             yaml:"url"`
	Concurrency    int           `mapstructure:"concurrency"     yaml:"concurrency"`
	MaxRetries     int           `mapstructure:"max_retries"     yaml:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"     yaml:"retry_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxBodySize    int64         `mapstructure:"max_body_size"   yaml:"max_body_size"`
}

// PostsConfig controls per-topic post collection.
type PostsConfig struct {
	SearchURL      string        `mapstructure:"search_url"       yaml:"search_url"`
	MaxPosts       int           `mapstructure:"max_posts"        yaml:"max_posts"`
	MaxSearchPages int           `mapstructure:"max_search_pages" yaml:"max_search_pages"`
	ScrollCount    int           `mapstructure:"scroll_count"     yaml:"scroll_count"`
	ScrollDelay    time.Duration `mapstructure:"scroll_delay"     yaml:"scroll_delay"`
	Concurrency    int           `mapstructure:"concurrency"      yaml:"concurrency"`
	NavTimeout     time.Duration `mapstructure:"nav_timeout"      yaml:"nav_timeout"`
	MarkerTimeout  time.Duration `mapstructure:"marker_timeout"   yaml:"marker_timeout"`
}

// SessionConfig controls the persisted authentication context.
type SessionConfig struct {
	HomeURL       string        `mapstructure:"home_url"        yaml:"home_url"`
	LoginURL      string        `mapstructure:"login_url"       yaml:"login_url"`
	AuthStatePath string        `mapstructure:"auth_state_path" yaml:"auth_state_path"`
	CookiesPath   string        `mapstructure:"cookies_path"    yaml:"cookies_path"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"   yaml:"probe_timeout"`
	LoginTimeout  time.Duration `mapstructure:"login_timeout"   yaml:"login_timeout"`
}

// BrowserConfig controls the shared Chromium context.
type BrowserConfig struct {
	Headless    bool   `mapstructure:"headless"      yaml:"headless"`
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	WindowSize  string `mapstructure:"window_size"   yaml:"window_size"`
	Stealth     bool   `mapstructure:"stealth"       yaml:"stealth"`
}

// StorageConfig controls snapshot/aggregate persistence.
type StorageConfig struct {
	Type       string `mapstructure:"type"        yaml:"type"`
	OutputDir  string `mapstructure:"output_dir"  yaml:"output_dir"`
	ArchiveDir string `mapstructure:"archive_dir" yaml:"archive_dir"`
	ReadmePath string `mapstructure:"readme_path" yaml:"readme_path"`
	MongoURI   string `mapstructure:"mongo_uri"   yaml:"mongo_uri"`
	MongoDB    string `mapstructure:"mongo_db"    yaml:"mongo_db"`
}

// APIConfig controls the latest-snapshot HTTP server.
type APIConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// SchedulerConfig controls periodic pipeline runs.
type SchedulerConfig struct {
	Spec         string        `mapstructure:"spec"          yaml:"spec"`
	StartupDelay time.Duration `mapstructure:"startup_delay" yaml:"startup_delay"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Snapshot: SnapshotConfig{
			URL:           "https://m.weibo.cn/api/container/getIndex?containerid=106003type%3D25%26t%3D3%26disable_hot%3D1%26filter_type%3Drealtimehot",
			MaxRetries:    5,
			RetryDelay:    5 * time.Second,
			CooldownDelay: 10 * time.Minute,
			NavTimeout:    60 * time.Second,
			UserAgent:     "Mozilla/5.0 (iPhone; CPU iPhone OS 14_7_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.2 Mobile/15E148 Safari/604.1",
		},
		Detail: DetailConfig{
			URL:            "https://m.s.weibo.com/topic/detail?q=%s",
			Concurrency:    5,
			MaxRetries:     3,
			RetryDelay:     2 * time.Second,
			RequestTimeout: 30 * time.Second,
			MaxBodySize:    10 * 1024 * 1024, // 10MB
		},
		Posts: PostsConfig{
			SearchURL:      "https://s.weibo.com/weibo?q=%s&xsort=hot&suball=1&tw=hotweibo",
			MaxPosts:       20,
			MaxSearchPages: 2,
			ScrollCount:    2,
			ScrollDelay:    2 * time.Second,
			Concurrency:    4,
			NavTimeout:     60 * time.Second,
			MarkerTimeout:  10 * time.Second,
		},
		Session: SessionConfig{
			HomeURL: "https://weibo.com",
			LoginURL: "https://passport.weibo.com/sso/signin?entry=miniblog&source=miniblog&disp=popup" +
				"&url=https%3A%2F%2Fweibo.com%2Fnewlogin%3Ftabtype%3Dweibo%26gid%3D102803%26openLoginLayer%3D0" +
				"%26url%3Dhttps%253A%252F%252Fweibo.com%252F",
			AuthStatePath: "auth_state.json",
			CookiesPath:   "weibo_cookies.json",
			ProbeTimeout:  15 * time.Second,
			LoginTimeout:  120 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:    true,
			UserDataDir: ".hotsearch_browser",
			WindowSize:  "1920,1080",
			Stealth:     true,
		},
		Storage: StorageConfig{
			Type:       "file",
			OutputDir:  "./api",
			ArchiveDir: "./archives",
			ReadmePath: "./README.md",
			MongoDB:    "hotsearch",
		},
		API: APIConfig{
			Port: 5000,
		},
		Scheduler: SchedulerConfig{
			Spec:         "0 * * * *",
			StartupDelay: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
