package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/adullam/internal/flagx"
	"github.com/dmitrijs2005/adullam/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept "3s"
// or integer nanoseconds. Absent fields keep their current value.
type JsonConfig struct {
	AuthURL              *string         `json:"auth_url"`
	APIKey               *string         `json:"api_key"`
	DatabaseDSN          *string         `json:"database_dsn"`
	CacheDSN             *string         `json:"cache_dsn"`
	CacheSecret          *string         `json:"cache_secret"`
	S3Region             *string         `json:"s3_region"`
	S3AccessKey          *string         `json:"s3_access_key"`
	S3SecretKey          *string         `json:"s3_secret_key"`
	S3Endpoint           *string         `json:"s3_endpoint"`
	S3Bucket             *string         `json:"s3_bucket"`
	StoragePublicURL     *string         `json:"storage_public_url"`
	RequestTimeout       *timex.Duration `json:"request_timeout"`
	SessionCheckInterval *timex.Duration `json:"session_check_interval"`
	LogLevel             *string         `json:"log_level"`
}

func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	set(&cfg.AuthURL, jc.AuthURL)
	set(&cfg.APIKey, jc.APIKey)
	set(&cfg.DatabaseDSN, jc.DatabaseDSN)
	set(&cfg.CacheDSN, jc.CacheDSN)
	set(&cfg.CacheSecret, jc.CacheSecret)
	set(&cfg.S3Region, jc.S3Region)
	set(&cfg.S3AccessKey, jc.S3AccessKey)
	set(&cfg.S3SecretKey, jc.S3SecretKey)
	set(&cfg.S3Endpoint, jc.S3Endpoint)
	set(&cfg.S3Bucket, jc.S3Bucket)
	set(&cfg.StoragePublicURL, jc.StoragePublicURL)
	set(&cfg.LogLevel, jc.LogLevel)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.SessionCheckInterval != nil {
		cfg.SessionCheckInterval = jc.SessionCheckInterval.Duration
	}
	return nil
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
