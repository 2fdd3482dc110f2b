package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
	StorageRedis  = "redis"

	SinkLocal = "local"
	SinkS3    = "s3"
)

// Config holds runtime settings for the portal client.
//
// Units: RequestTimeout and RefreshTimeout are time.Duration values. The
// request timeout is fixed for the lifetime of the HTTP client.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	RefreshTimeout time.Duration

	DataDir        string
	StorageBackend string
	RedisURL       string
	// StorageKey, when set, seals stored credentials at rest.
	StorageKey string

	DownloadDir    string
	DownloadSink   string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	S3Prefix       string

	LoginPath      string
	RefreshPath    string
	ProfilePath    string
	LoginRedirect  string
	AuthCookieName string

	MetricsAddr string
	LogLevel    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:8080/api"
	c.RequestTimeout = 10 * time.Minute
	c.RefreshTimeout = 30 * time.Second
	c.DataDir = ".portal"
	c.StorageBackend = StorageSQLite
	c.DownloadDir = "downloads"
	c.DownloadSink = SinkLocal
	c.S3Region = "us-east-1"
	c.LoginPath = "/auth/login"
	c.RefreshPath = "/auth/refresh-token"
	c.ProfilePath = "/users/profile"
	c.LoginRedirect = "/login"
	c.AuthCookieName = "token"
	c.LogLevel = "info"
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", c.BaseURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.RefreshTimeout <= 0 {
		return errors.New("refresh timeout must be positive")
	}

	switch c.StorageBackend {
	case StorageSQLite, StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("redis storage requires a redis URL")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	switch c.DownloadSink {
	case SinkLocal:
	case SinkS3:
		if c.S3Bucket == "" {
			return errors.New("s3 download sink requires a bucket")
		}
	default:
		return fmt.Errorf("unknown download sink %q", c.DownloadSink)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := loadDotenv(); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
