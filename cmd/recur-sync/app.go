package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/recur-sync/internal/config"
	"github.com/tbourn/recur-sync/internal/observability"
	"github.com/tbourn/recur-sync/internal/remote"
	"github.com/tbourn/recur-sync/internal/repo"
	"github.com/tbourn/recur-sync/internal/services"
)

// app is the wired object graph shared by the commands.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	db       *gorm.DB
	client   *remote.Client
	queue    *services.SyncQueue
	mut      *services.MutationService
	otelStop observability.Shutdown
}

// openStore opens and migrates the queue database.
func openStore(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open queue database %q: %w", cfg.DBPath, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate queue database: %w", err)
	}
	return db, nil
}

// newRemote builds the Recur API client from cfg.
func newRemote(cfg config.Config) *remote.Client {
	return remote.New(
		remote.WithBaseURL(cfg.Remote.BaseURL),
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithToken(cfg.Remote.Token),
		remote.WithRateLimit(cfg.Remote.RPS, cfg.Remote.Burst),
	)
}

// openApp wires tracing, storage, the remote client, the queue and the
// mutation gateway, and loads pending actions from the previous run.
func openApp(ctx context.Context, cfg config.Config, startOnline bool) (*app, error) {
	a := &app{cfg: cfg, log: log.Logger}

	stop, err := observability.SetupOTel(ctx, cfg.OTEL, version, attribute.String("recur.client_id", cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}
	a.otelStop = stop

	db, err := openStore(cfg)
	if err != nil {
		_ = stop(ctx)
		return nil, err
	}
	a.db = db

	a.client = newRemote(cfg)
	rs := services.NewRemoteServices(a.client)
	a.queue = services.NewSyncQueue(repo.NewOfflineStore(db), rs, services.QueueOptions{
		DefaultMaxRetries: cfg.OfflineMaxRetries,
		StartOffline:      !startOnline,
		Logger:            &a.log,
	})
	if err := a.queue.LoadPendingActions(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.mut = &services.MutationService{Queue: a.queue, Remote: rs}
	return a, nil
}

// Close waits for background passes, then releases the database and
// flushes traces.
func (a *app) Close(ctx context.Context) {
	if a.queue != nil {
		a.queue.Wait()
	}
	if a.db != nil {
		closeDB(a.db)
	}
	if a.otelStop != nil {
		if err := a.otelStop(ctx); err != nil {
			a.log.Warn().Err(err).Msg("otel shutdown")
		}
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
