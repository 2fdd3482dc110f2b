// Package config loads runtime configuration for the portal client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: a .env file (or PORTAL_ENV_FILE) loaded with godotenv,
//     then PORTAL_* variables such as PORTAL_BASE_URL or PORTAL_REFRESH_TIMEOUT.
//  3. Optional JSON file selected via flags: -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the portal API
//	-t int      request timeout (seconds)
//	-d string   data directory
//	-s string   storage backend (sqlite|memory|redis)
//
// # JSON schema
//
// Timeouts use timex.Duration, so values can be either strings like "30s"
// or integer nanoseconds:
//
//	{
//	  "base_url": "https://portal.example.com/api",
//	  "request_timeout": "10m",
//	  "refresh_timeout": "30s",
//	  "storage": "sqlite",
//	  "download_sink": "s3",
//	  "s3_bucket": "portal-documents"
//	}
package config
