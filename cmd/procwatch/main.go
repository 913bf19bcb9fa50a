package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	httpadapter "procwatch/internal/adapters/http"
	pg "procwatch/internal/adapters/postgres"
	"procwatch/internal/config"
	"procwatch/internal/metrics"
	"procwatch/internal/scoring"
	"procwatch/internal/services/analyzer"
	"procwatch/internal/workers/schedule"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "procwatch",
		Short:         "Flags corruption-risk patterns in public procurement tenders",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newServeCmd(),
		newAnalyzeCmd(),
		newTenderCmd(),
		newFlaggedCmd(),
		newStatsCmd(),
		newMigrateCmd(),
	)
	return root
}

// app bundles everything a subcommand needs once config and the database are
// up.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	db       *pg.DB
	analyzer *analyzer.Service
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	_ = a.log.Sync()
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	weights, thresholds, err := config.LoadScoring(cfg.ScoringConfigPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	svc := analyzer.New(db, scoring.New(weights), thresholds, log, m, cfg.DetectorWorkers)
	return &app{cfg: cfg, log: log, db: db, analyzer: svc, metrics: m, registry: registry}, nil
}

func newLogger(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, optionally with scheduled analyze runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := pg.Migrate(a.cfg.DatabaseURL); err != nil {
				return err
			}

			srv := httpadapter.New(a.analyzer, a.db, a.log,
				promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
			r := chi.NewRouter()
			r.Mount("/", srv.Routes())

			if a.cfg.AnalyzeSchedule != "" {
				runner := schedule.New(a.analyzer, a.log)
				if err := runner.Start(ctx, a.cfg.AnalyzeSchedule); err != nil {
					return fmt.Errorf("bad ANALYZE_SCHEDULE: %w", err)
				}
				a.log.Info("scheduled runs enabled", zap.String("cron", a.cfg.AnalyzeSchedule))
			}

			httpServer := &http.Server{Addr: a.cfg.ListenAddr, Handler: r}
			errCh := make(chan error, 1)
			go func() { errCh <- httpServer.ListenAndServe() }()
			a.log.Info("listening", zap.String("addr", a.cfg.ListenAddr))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-sigCh:
				a.log.Info("shutting down", zap.String("signal", sig.String()))
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				return httpServer.Shutdown(shutdownCtx)
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			}
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return pg.Migrate(cfg.DatabaseURL)
		},
	}
}
