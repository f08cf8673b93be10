package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tbourn/recur-sync/internal/config"
	"github.com/tbourn/recur-sync/internal/connectivity"
	httpapi "github.com/tbourn/recur-sync/internal/http"
	"github.com/tbourn/recur-sync/internal/scheduler"
)

const (
	shutdownTimeout = 15 * time.Second
	purgeSchedule   = "@hourly"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync daemon and its local control API",
	Long:  "Start the control API, probe the Recur API for connectivity, replay queued actions when it is reachable\nand run the scheduled safety-net sync until SIGINT or SIGTERM.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

// newServer builds the HTTP server for the control API.
func newServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// newScheduler registers the periodic sync pass (unless disabled) and the
// idempotency purge.
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	s := scheduler.New(a.log)
	if a.cfg.SyncSchedule != "" {
		if err := s.Add("sync", a.cfg.SyncSchedule, scheduler.SyncJob(a.queue)); err != nil {
			return nil, err
		}
	}
	if err := s.Add("purge-idempotency", purgeSchedule, scheduler.PurgeIdempotencyJob(a.db)); err != nil {
		return nil, err
	}
	return s, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{DB: a.db, Queue: a.queue, Mutations: a.mut}, cfg)
	srv := newServer(cfg, r)

	sched, err := newScheduler(a)
	if err != nil {
		return err
	}
	sched.Start()

	mon := connectivity.NewMonitor(a.client, a.queue, cfg.Connectivity.ProbeInterval, cfg.Connectivity.ProbeTimeout, a.log)
	monDone := make(chan struct{})
	go func() {
		defer close(monDone)
		mon.Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().
			Str("addr", srv.Addr).
			Str("remote", a.client.BaseURL()).
			Str("client_id", cfg.ClientID).
			Int("pending", a.queue.PendingCount()).
			Msg("recur-sync listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutdown requested")
	case err, ok := <-errCh:
		if ok {
			runErr = err
		}
	}
	stop := context.WithoutCancel(ctx)
	shutdownCtx, cancel := context.WithTimeout(stop, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("http shutdown")
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		a.log.Warn().Msg("scheduled jobs still running at shutdown")
	}
	cancelRun()
	<-monDone
	return runErr
}
