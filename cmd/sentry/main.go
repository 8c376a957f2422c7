package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sentinelsoc/sentry/internal/api"
	"github.com/sentinelsoc/sentry/internal/config"
	"github.com/sentinelsoc/sentry/internal/engine"
	"github.com/sentinelsoc/sentry/internal/intel"
	"github.com/sentinelsoc/sentry/internal/metrics"
	"github.com/sentinelsoc/sentry/internal/pipeline"
	"github.com/sentinelsoc/sentry/internal/publish"
	"github.com/sentinelsoc/sentry/internal/sched"
	"github.com/sentinelsoc/sentry/internal/source"
	"github.com/sentinelsoc/sentry/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting Sentry correlation engine",
		"http_addr", cfg.HTTPAddr,
		"mode", cfg.Mode,
		"max_events", cfg.MaxEvents,
		"max_alerts", cfg.MaxAlerts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Threat index: built-in reference table unless a seed file is given.
	table := intel.DefaultTable()
	if cfg.ThreatIndexFile != "" {
		loaded, err := config.LoadThreatIndex(cfg.ThreatIndexFile)
		if err != nil {
			logger.Error("Failed to load threat index file", "path", cfg.ThreatIndexFile, "error", err)
			os.Exit(1)
		}
		table = loaded
		logger.Info("Threat index loaded from file", "path", cfg.ThreatIndexFile, "indicators", len(table))
	}
	index := intel.NewIndex(table)

	// Optional alert publishing over NATS. The pipeline degrades to
	// local-only alerts when the broker is absent.
	var publisher pipeline.AlertPublisher
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn("NATS unreachable, alerts stay local", "url", cfg.NATSURL, "error", err)
		} else {
			defer nc.Close()
			publisher = publish.NewNATSPublisher(nc, "", logger)
			logger.Info("Connected to NATS", "url", cfg.NATSURL)
		}
	}

	promMetrics := metrics.New(prometheus.DefaultRegisterer)
	memory := store.NewMemory(cfg.MaxEvents, cfg.MaxAlerts)
	pipe := pipeline.New(engine.New(index), memory, promMetrics, publisher, logger)

	synthetic := source.NewSynthetic(cfg.SyntheticInterval())
	feeds := []source.Source{
		source.NewURLhaus(cfg.URLhausURL, cfg.URLhausLimit, cfg.LiveInterval(), logger),
		source.NewBlocklist(cfg.BlocklistURL, cfg.BlocklistLimit, cfg.LiveInterval(), logger),
	}

	scheduler := sched.New(sched.Config{
		SyntheticInterval: cfg.SyntheticInterval(),
		LiveInterval:      cfg.LiveInterval(),
		Stagger:           cfg.Stagger(),
		Cooldown:          cfg.Cooldown(),
		FetchTimeout:      cfg.FetchTimeout(),
		DedupeCap:         cfg.DedupeCap,
	}, pipe, synthetic, feeds, promMetrics, logger)

	mode, err := sched.ParseMode(cfg.Mode)
	if err != nil {
		logger.Error("Invalid ingestion mode", "mode", cfg.Mode, "error", err)
		os.Exit(1)
	}
	if err := scheduler.Start(ctx, mode); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	httpAPI := api.NewHTTPAPI(memory, intel.NewQueryService(index), scheduler, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpAPI.Router(),
	}

	go func() {
		logger.Info("Starting HTTP server", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Sentry started successfully")
	<-sigChan

	logger.Info("Shutting down...")
	scheduler.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("Sentry stopped")
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
