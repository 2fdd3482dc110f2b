package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/bizportal/internal/flagx"
	"github.com/dmitrijs2005/bizportal/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify timeouts either as
// strings like "30s" or as integer nanoseconds. Empty fields leave the
// current value untouched.
type JsonConfig struct {
	BaseURL        string         `json:"base_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	RefreshTimeout timex.Duration `json:"refresh_timeout"`

	DataDir        string `json:"data_dir"`
	StorageBackend string `json:"storage"`
	RedisURL       string `json:"redis_url"`
	StorageKey     string `json:"storage_key"`

	DownloadDir    string `json:"download_dir"`
	DownloadSink   string `json:"download_sink"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
	S3Prefix       string `json:"s3_prefix"`

	LoginPath      string `json:"login_path"`
	RefreshPath    string `json:"refresh_path"`
	ProfilePath    string `json:"profile_path"`
	LoginRedirect  string `json:"login_redirect"`
	AuthCookieName string `json:"auth_cookie_name"`

	MetricsAddr string `json:"metrics_addr"`
	LogLevel    string `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without either flag nothing happens.
func parseJson(cfg *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return nil
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", jsonConfigFile, err)
	}

	jc.apply(cfg)
	return nil
}

func (jc *JsonConfig) apply(cfg *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&cfg.BaseURL, jc.BaseURL)
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RefreshTimeout.Duration > 0 {
		cfg.RefreshTimeout = jc.RefreshTimeout.Duration
	}

	set(&cfg.DataDir, jc.DataDir)
	set(&cfg.StorageBackend, jc.StorageBackend)
	set(&cfg.RedisURL, jc.RedisURL)
	set(&cfg.StorageKey, jc.StorageKey)

	set(&cfg.DownloadDir, jc.DownloadDir)
	set(&cfg.DownloadSink, jc.DownloadSink)
	set(&cfg.S3Bucket, jc.S3Bucket)
	set(&cfg.S3Region, jc.S3Region)
	set(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	set(&cfg.S3AccessKey, jc.S3AccessKey)
	set(&cfg.S3SecretKey, jc.S3SecretKey)
	set(&cfg.S3Prefix, jc.S3Prefix)

	set(&cfg.LoginPath, jc.LoginPath)
	set(&cfg.RefreshPath, jc.RefreshPath)
	set(&cfg.ProfilePath, jc.ProfilePath)
	set(&cfg.LoginRedirect, jc.LoginRedirect)
	set(&cfg.AuthCookieName, jc.AuthCookieName)

	set(&cfg.MetricsAddr, jc.MetricsAddr)
	set(&cfg.LogLevel, jc.LogLevel)
}
