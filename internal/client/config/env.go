package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "PORTAL_"

var lookupEnv = os.LookupEnv

// loadDotenv loads PORTAL_ENV_FILE, or .env when unset, into the process
// environment. Variables already set win. A missing file is not an error.
func loadDotenv() error {
	path := os.Getenv(envPrefix + "ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parseEnv overlays cfg with PORTAL_* variables.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"BASE_URL":         &cfg.BaseURL,
		"DATA_DIR":         &cfg.DataDir,
		"STORAGE":          &cfg.StorageBackend,
		"REDIS_URL":        &cfg.RedisURL,
		"STORAGE_KEY":      &cfg.StorageKey,
		"DOWNLOAD_DIR":     &cfg.DownloadDir,
		"DOWNLOAD_SINK":    &cfg.DownloadSink,
		"S3_BUCKET":        &cfg.S3Bucket,
		"S3_REGION":        &cfg.S3Region,
		"S3_ENDPOINT":      &cfg.S3BaseEndpoint,
		"S3_ACCESS_KEY":    &cfg.S3AccessKey,
		"S3_SECRET_KEY":    &cfg.S3SecretKey,
		"S3_PREFIX":        &cfg.S3Prefix,
		"LOGIN_PATH":       &cfg.LoginPath,
		"REFRESH_PATH":     &cfg.RefreshPath,
		"PROFILE_PATH":     &cfg.ProfilePath,
		"LOGIN_REDIRECT":   &cfg.LoginRedirect,
		"AUTH_COOKIE_NAME": &cfg.AuthCookieName,
		"METRICS_ADDR":     &cfg.MetricsAddr,
		"LOG_LEVEL":        &cfg.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"REQUEST_TIMEOUT": &cfg.RequestTimeout,
		"REFRESH_TIMEOUT": &cfg.RefreshTimeout,
	}
	for name, dst := range durations {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}
	return nil
}
