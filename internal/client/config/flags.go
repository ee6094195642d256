package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/adullam/internal/flagx"
)

var ownFlags = []string{"-a", "-k", "-d", "-l", "-t", "-i", "-log"}

// parseFlags overlays cfg with command-line flags:
//
//	-a string   backend base URL
//	-k string   anonymous API key
//	-d string   Postgres DSN of the data service
//	-l string   local cache DSN
//	-t int      request timeout (seconds)
//	-i int      session check interval (seconds, 0 disables)
//	-log string log level
//
// Secrets other than the API key are read from the JSON file only.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("adullam", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.AuthURL, "a", cfg.AuthURL, "backend base URL")
	fs.StringVar(&cfg.APIKey, "k", cfg.APIKey, "anonymous API key")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "data service Postgres DSN")
	fs.StringVar(&cfg.CacheDSN, "l", cfg.CacheDSN, "local cache DSN")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	interval := fs.Int("i", int(cfg.SessionCheckInterval.Seconds()), "session check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")

	if err := fs.Parse(flagx.Select(args, ownFlags...)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	cfg.SessionCheckInterval = time.Duration(*interval) * time.Second
	return nil
}
