// Package config loads runtime configuration for the session CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults), pointing at a local
//     backend stack.
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so values are either strings like "10s" or
// integer nanoseconds:
//
//	{
//	  "auth_url": "https://project.example.co",
//	  "api_key": "anon-key",
//	  "database_dsn": "postgres://...",
//	  "cache_dsn": "session.db",
//	  "cache_secret": "per-device secret",
//	  "s3_endpoint": "https://project.example.co/storage/v1/s3",
//	  "s3_bucket": "media",
//	  "request_timeout": "10s",
//	  "session_check_interval": "5m",
//	  "log_level": "info"
//	}
package config
