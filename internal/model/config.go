package model

import (
	"os"
	"path/filepath"
	"time"
)

// TokenKey is the fixed storage key the bearer token is persisted under
const TokenKey = "ghi_auth_token"

// Config holds the complete client configuration
type Config struct {
	API         APIConfig         `yaml:"api" mapstructure:"api"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Session     SessionConfig     `yaml:"session" mapstructure:"session"`
	Polling     PollingConfig     `yaml:"polling" mapstructure:"polling"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// APIConfig points the client at the backend
type APIConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// HTTPConfig tunes the transport
type HTTPConfig struct {
	HTTPProxy  string `yaml:"proxy,omitempty" mapstructure:"proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	CookieJar  bool   `yaml:"cookie_jar" mapstructure:"cookie_jar"`
}

// RateLimitConfig throttles outgoing requests per host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// SessionConfig selects where the token is persisted
type SessionConfig struct {
	Store    string `yaml:"store" mapstructure:"store"` // file, sqlite, memory
	Path     string `yaml:"path" mapstructure:"path"`
	TokenKey string `yaml:"token_key" mapstructure:"token_key"`
}

// PollingConfig sets each feed's interval
type PollingConfig struct {
	Signals       time.Duration `yaml:"signals" mapstructure:"signals"`
	Notifications time.Duration `yaml:"notifications" mapstructure:"notifications"`
	ScraperStatus time.Duration `yaml:"scraper_status" mapstructure:"scraper_status"`
	MapData       time.Duration `yaml:"map_data" mapstructure:"map_data"`
}

// CacheConfig controls response caching
type CacheConfig struct {
	FiltersTTL time.Duration `yaml:"filters_ttl" mapstructure:"filters_ttl"`
}

// ConcurrencyConfig bounds batch lookups
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig controls slog output
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "http://localhost:8000",
			Timeout:      30 * time.Second,
			UserAgent:    "ghitriage/0.3",
			MaxBodyBytes: 4 << 20,
		},
		HTTP: HTTPConfig{
			CookieJar: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Session: SessionConfig{
			Store:    "file",
			Path:     DefaultSessionPath(),
			TokenKey: TokenKey,
		},
		Polling: PollingConfig{
			Signals:       30 * time.Second,
			Notifications: 30 * time.Second,
			ScraperStatus: 10 * time.Second,
			MapData:       30 * time.Second,
		},
		Cache: CacheConfig{
			FiltersTTL: 5 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultSessionPath returns ~/.ghitriage/session, or a relative path when
// the home directory is unknown
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ghitriage", "session")
	}
	return filepath.Join(home, ".ghitriage", "session")
}
