package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:54321", c.AuthURL)
	assert.Equal(t, "session.db", c.CacheDSN)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, 5*time.Minute, c.SessionCheckInterval)
	assert.Equal(t, "info", c.LogLevel)
	assert.Empty(t, c.CacheSecret)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_DefaultsWithoutArgs(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:54321", cfg.AuthURL)
	assert.False(t, cfg.StorageEnabled())
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, t.TempDir(), "", map[string]any{
		"auth_url":        "https://from-json.example",
		"api_key":         "json-key",
		"request_timeout": "3s",
	})

	cfg, err := LoadConfig([]string{"-c", path, "-k", "flag-key", "login"})
	require.NoError(t, err)
	assert.Equal(t, "https://from-json.example", cfg.AuthURL)
	assert.Equal(t, "flag-key", cfg.APIKey)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig([]string{"-a", "not a url"})
	require.Error(t, err)

	_, err = LoadConfig([]string{"-t", "0"})
	require.Error(t, err)

	_, err = LoadConfig([]string{"-i", "x"})
	require.Error(t, err)

	_, err = LoadConfig([]string{"-c", "/does/not/exist.json"})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	var c Config
	c.LoadDefaults()

	c.CacheDSN = ""
	assert.Error(t, c.Validate())

	c.LoadDefaults()
	c.SessionCheckInterval = -time.Second
	assert.Error(t, c.Validate())

	c.LoadDefaults()
	c.SessionCheckInterval = 0
	assert.NoError(t, c.Validate())
}

func TestStorageEnabled(t *testing.T) {
	var c Config
	c.LoadDefaults()
	assert.False(t, c.StorageEnabled())

	c.S3AccessKey = "minio"
	assert.True(t, c.StorageEnabled())

	c.S3Bucket = ""
	assert.False(t, c.StorageEnabled())
}
