package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dmitrijs2005/adullam/internal/client/backend"
	"github.com/dmitrijs2005/adullam/internal/client/cache"
	"github.com/dmitrijs2005/adullam/internal/client/cli"
	"github.com/dmitrijs2005/adullam/internal/client/config"
	"github.com/dmitrijs2005/adullam/internal/client/migrations"
	"github.com/dmitrijs2005/adullam/internal/client/profiles"
	"github.com/dmitrijs2005/adullam/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/adullam/internal/client/session"
	"github.com/dmitrijs2005/adullam/internal/filex"
	"github.com/dmitrijs2005/adullam/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.NewTextLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "client stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	if !strings.HasPrefix(cfg.CacheDSN, "file:") && cfg.CacheDSN != ":memory:" {
		if err := filex.EnsureParentDir(cfg.CacheDSN); err != nil {
			return err
		}
	}
	cacheDB, err := migrations.OpenCache(ctx, cfg.CacheDSN)
	if err != nil {
		return err
	}
	defer cacheDB.Close()

	sessionCache := cache.NewSessionCache(
		metadata.NewSQLiteRepository(cacheDB),
		cache.WithSecret(cfg.CacheSecret),
	)

	auth := backend.NewHTTPAuthClient(cfg.AuthURL, cfg.APIKey,
		backend.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	)

	pg, err := backend.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pg.Close()
	data := backend.NewPostgresDataService(pg, backend.WithTokenSource(auth))

	var storage backend.ObjectStorage
	if cfg.StorageEnabled() {
		s3, err := backend.NewS3Storage(ctx, backend.S3Config{
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Endpoint:      cfg.S3Endpoint,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.StoragePublicURL,
		})
		if err != nil {
			return err
		}
		storage = s3
	} else {
		logger.Info(ctx, "object storage not configured, avatar uploads disabled")
	}

	manager := session.NewManager(session.Deps{
		Auth:     auth,
		Profiles: profiles.NewRepository(data),
		Cache:    sessionCache,
		Storage:  storage,
		Logger:   logger,
	})
	defer manager.Close()

	if err := manager.Start(ctx); err != nil {
		return err
	}

	app := cli.NewApp(cfg, manager, data, logger, os.Stdin, os.Stdout)
	app.Run(ctx)
	return nil
}
