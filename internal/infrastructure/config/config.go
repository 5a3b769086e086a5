package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Proxy     ProxyConfig
	Capture   CaptureConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Sync      SyncConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"3001"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	// PublicURL is the externally reachable base of this backend. It is
	// baked into injected overlay bootstrap values; empty derives it from
	// the incoming request.
	PublicURL   string   `envconfig:"PUBLIC_URL"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// ProxyConfig holds content rewriting proxy configuration.
type ProxyConfig struct {
	Timeout      time.Duration `envconfig:"PROXY_TIMEOUT" default:"30s"`
	MaxRedirects int           `envconfig:"PROXY_MAX_REDIRECTS" default:"5"`
	MaxBodyBytes int64         `envconfig:"PROXY_MAX_BODY_BYTES" default:"52428800"`
	ProfilesFile string        `envconfig:"PROXY_PROFILES_FILE"`
	BlockedHosts []string      `envconfig:"PROXY_BLOCKED_HOSTS"`
	// The cache keeps static assets only; documents and stylesheets vary by profile.
	CacheEnabled bool `envconfig:"PROXY_CACHE_ENABLED" default:"false"`
	CacheEntries int  `envconfig:"PROXY_CACHE_ENTRIES" default:"512"`
}

// CaptureConfig holds point-of-interest capture configuration.
type CaptureConfig struct {
	RemoteURL         string        `envconfig:"CAPTURE_REMOTE_URL"`
	RemoteKey         string        `envconfig:"CAPTURE_REMOTE_KEY"`
	RemoteTimeout     time.Duration `envconfig:"CAPTURE_REMOTE_TIMEOUT" default:"20s"`
	BrowserEnabled    bool          `envconfig:"CAPTURE_BROWSER_ENABLED" default:"true"`
	BrowserBin        string        `envconfig:"CAPTURE_BROWSER_BIN"`
	PoolSize          int           `envconfig:"CAPTURE_POOL_SIZE" default:"4"`
	NavigationTimeout time.Duration `envconfig:"CAPTURE_NAVIGATION_TIMEOUT" default:"15s"`
	NavigationSettle  time.Duration `envconfig:"CAPTURE_NAVIGATION_SETTLE" default:"500ms"`
	ScrollSettle      time.Duration `envconfig:"CAPTURE_SCROLL_SETTLE" default:"200ms"`
	Quality           int           `envconfig:"CAPTURE_QUALITY" default:"85"`
	DefaultWidth      int           `envconfig:"CAPTURE_DEFAULT_WIDTH" default:"800"`
	DefaultHeight     int           `envconfig:"CAPTURE_DEFAULT_HEIGHT" default:"600"`
	MaxWidth          int           `envconfig:"CAPTURE_MAX_WIDTH" default:"1200"`
	MaxHeight         int           `envconfig:"CAPTURE_MAX_HEIGHT" default:"900"`
}

// StorageConfig holds document store and blob storage configuration.
type StorageConfig struct {
	DataDir             string        `envconfig:"STORAGE_DATA_DIR" default:"./data"`
	InMemory            bool          `envconfig:"STORAGE_IN_MEMORY" default:"false"`
	UploadsDir          string        `envconfig:"STORAGE_UPLOADS_DIR" default:"./uploads"`
	ScreenshotRetention time.Duration `envconfig:"STORAGE_SCREENSHOT_RETENTION" default:"0"`
	SweepInterval       time.Duration `envconfig:"STORAGE_SWEEP_INTERVAL" default:"1h"`
}

// AuthConfig holds bearer token verification settings. Tokens are issued by
// an external credential service sharing the secret.
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET"`
	Issuer    string `envconfig:"JWT_ISSUER"`
}

// SyncConfig holds the client polling contract.
type SyncConfig struct {
	CommentsPoll     time.Duration `envconfig:"SYNC_COMMENTS_POLL" default:"3s"`
	ParticipantsPoll time.Duration `envconfig:"SYNC_PARTICIPANTS_POLL" default:"30s"`
	SendQueue        int           `envconfig:"SYNC_SEND_QUEUE" default:"64"`
	// NotifyWebhook receives mention notifications as JSON; empty logs them.
	NotifyWebhook string `envconfig:"SYNC_NOTIFY_WEBHOOK"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	CaptureRPS        int  `envconfig:"RATE_LIMIT_CAPTURE_RPS" default:"5"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "3001",
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
		},
		Proxy: ProxyConfig{
			Timeout:      30 * time.Second,
			MaxRedirects: 5,
			MaxBodyBytes: 50 << 20,
			CacheEntries: 512,
		},
		Capture: CaptureConfig{
			RemoteTimeout:     20 * time.Second,
			BrowserEnabled:    true,
			PoolSize:          4,
			NavigationTimeout: 15 * time.Second,
			NavigationSettle:  500 * time.Millisecond,
			ScrollSettle:      200 * time.Millisecond,
			Quality:           85,
			DefaultWidth:      800,
			DefaultHeight:     600,
			MaxWidth:          1200,
			MaxHeight:         900,
		},
		Storage: StorageConfig{
			DataDir:       "./data",
			UploadsDir:    "./uploads",
			SweepInterval: time.Hour,
		},
		Sync: SyncConfig{
			CommentsPoll:     3 * time.Second,
			ParticipantsPoll: 30 * time.Second,
			SendQueue:        64,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
			CaptureRPS:        5,
		},
	}
}

var portPattern = regexp.MustCompile(`^[0-9]{1,5}$`)

// Validate checks ranges that envconfig cannot express.
func (c *Config) Validate() error {
	return validation.Errors{
		"server":    c.Server.validate(),
		"proxy":     c.Proxy.validate(),
		"capture":   c.Capture.validate(),
		"storage":   c.Storage.validate(),
		"sync":      c.Sync.validate(),
		"logging":   c.Logging.validate(),
		"rateLimit": c.RateLimit.validate(),
	}.Filter()
}

func (s ServerConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Match(portPattern)),
		validation.Field(&s.Host, validation.Required),
		validation.Field(&s.CORSOrigins, validation.Required),
	)
}

func (p ProxyConfig) validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&p.MaxRedirects, validation.Min(0), validation.Max(20)),
		validation.Field(&p.MaxBodyBytes, validation.Required, validation.Min(int64(1024))),
		validation.Field(&p.CacheEntries, validation.Min(0), validation.Max(1<<16)),
	)
}

func (c CaptureConfig) validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RemoteTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.PoolSize, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.NavigationTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Quality, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.DefaultWidth, validation.Required, validation.Min(1), validation.Max(c.MaxWidth)),
		validation.Field(&c.DefaultHeight, validation.Required, validation.Min(1), validation.Max(c.MaxHeight)),
		validation.Field(&c.MaxWidth, validation.Required, validation.Max(4096)),
		validation.Field(&c.MaxHeight, validation.Required, validation.Max(4096)),
	)
}

func (s StorageConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.DataDir, validation.When(!s.InMemory, validation.Required)),
		validation.Field(&s.UploadsDir, validation.Required),
		validation.Field(&s.ScreenshotRetention, validation.Min(time.Duration(0))),
		validation.Field(&s.SweepInterval, validation.When(s.ScreenshotRetention > 0, validation.Required, validation.Min(time.Minute))),
	)
}

func (s SyncConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.CommentsPoll, validation.Required, validation.Min(500*time.Millisecond)),
		validation.Field(&s.ParticipantsPoll, validation.Required, validation.Min(time.Second)),
		validation.Field(&s.SendQueue, validation.Required, validation.Min(1)),
		validation.Field(&s.NotifyWebhook, is.URL),
	)
}

func (l LogConfig) validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
	)
}

func (r RateLimitConfig) validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RequestsPerSecond, validation.When(r.Enabled, validation.Required, validation.Min(1))),
		validation.Field(&r.Burst, validation.When(r.Enabled, validation.Required, validation.Min(1))),
		validation.Field(&r.CaptureRPS, validation.Min(0)),
	)
}

// Address returns the host:port listen address.
func (s ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

// RemoteCaptureEnabled reports whether a remote screenshot API is configured.
func (c CaptureConfig) RemoteCaptureEnabled() bool {
	return strings.TrimSpace(c.RemoteURL) != ""
}
