package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"carelink/internal/analysis"
	"carelink/internal/api"
	"carelink/internal/auth"
	"carelink/internal/careplan"
	"carelink/internal/config"
	"carelink/internal/db"
	"carelink/internal/document"
	"carelink/internal/logging"
	"carelink/internal/metrics"
	redisdb "carelink/internal/redis"
	"carelink/internal/service"
	"carelink/internal/session"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := db.Init(cfg); err != nil {
				return fmt.Errorf("DB init error: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", cfg.Database.Driver)
			return nil
		},
	}
}

// buildRouter wires stores, services and handlers from cfg. db.DB must be
// initialised.
func buildRouter(cfg *config.Config, logger zerolog.Logger) (*gin.Engine, func() error, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(reg)

	cleanup := func() error { return nil }
	var (
		sessions auth.SessionStore
		store    session.Store
	)
	switch cfg.Session.Backend {
	case "redis":
		rdb := redisdb.NewClient(cfg)
		sessions = auth.NewRedisSessions(rdb)
		store = session.NewRedisStore(rdb, time.Duration(cfg.Session.TTLMinutes)*time.Minute)
		cleanup = rdb.Close
	default:
		sessions = auth.NewMemorySessions()
		store = session.NewMemoryStore()
	}

	analyzer, err := analysis.New(cfg.Analysis)
	if err != nil {
		return nil, cleanup, err
	}

	events := service.NewEventLogger(logger)
	plans := careplan.NewRepository(db.DB)
	docs := document.NewRetriever(cfg.Documents, logger)

	deps := api.Deps{
		Config:   cfg,
		Sessions: sessions,
		Doctor:   service.NewDoctorService(docs, analyzer, plans, store, events, m),
		Patient:  service.NewPatientService(plans, store, cfg.Progress, events, m),
		Metrics:  m,
		Gatherer: reg,
		Log:      logger,
	}
	return api.SetupRouter(deps), cleanup, nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.Server.LogLevel, cfg.Server.PrettyLogs)
	if !cfg.Server.PrettyLogs {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := db.Init(cfg); err != nil {
		return fmt.Errorf("DB init error: %w", err)
	}

	router, cleanup, err := buildRouter(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Warn().Err(err).Msg("cleanup failed")
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Str("subpath", cfg.Server.Subpath).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
