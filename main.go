package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sublet_monitor/config"
	"sublet_monitor/httputil"
	"sublet_monitor/logging"
	"sublet_monitor/models"
	"sublet_monitor/notify"
	"sublet_monitor/scheduler"
	"sublet_monitor/scraper"
	"sublet_monitor/services"
	"sublet_monitor/storage"
	"sublet_monitor/workers"
)

var (
	runOnce = flag.Bool("once", false, "Run one monitor cycle and exit")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logFile, logger, err := logging.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		logger.Warn("could not set up file logging", "error", err)
	} else {
		defer logFile.Close()
	}
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clients := httputil.NewClients(cfg.Proxy, cfg.Sheet.FetchTimeout)
	fetcher := scraper.NewFetcher(cfg.Sheet, cfg.Rules, clients.Sheet)

	state, err := storage.NewStateStore(ctx, cfg.State)
	if err != nil {
		logger.Error("failed to open state store", "backend", cfg.State.Backend, "error", err)
		return 1
	}
	defer state.Close()
	logger.Info("state store ready", "backend", cfg.State.Backend, "location", stateLocation(cfg.State))

	notifier, err := notify.NewNotifier(cfg, os.Stdout)
	if err != nil {
		logger.Error("failed to create notifier", "error", err)
		return 1
	}

	orchestrator := scraper.NewOrchestrator(fetcher, services.NewNormalizer(cfg.Rules), state, notifier, scraper.Options{
		MaxRent:       cfg.Filter.MaxRent,
		SendWhenNoNew: cfg.Filter.SendWhenNoNew,
		GuardMinSeen:  cfg.Filter.GuardMinSeen,
	}, logger)

	recorder, closeRecorder := openRecorder(cfg.State, state, logger)
	defer closeRecorder()
	if recorder != nil {
		orchestrator.SetRecorder(recorder)
	}

	if *runOnce {
		report, err := orchestrator.Run(ctx)
		return exitCode(logger, report, err)
	}

	// Daemon mode
	sched := scheduler.New(cfg.Scheduler, orchestrator, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		return 1
	}

	if cfg.Scheduler.HealthcheckInterval > 0 {
		checker := services.NewHealthcheckService(fetcher, state, cfg.Rules, cfg.Healthcheck)
		worker := workers.NewHealthcheckWorker(checker, notifier, logger)
		if recorder != nil {
			checker.SetHistory(recorder)
			worker.SetLogger(workers.RecorderLogFunc(recorder))
		}
		go worker.Run(ctx, cfg.Scheduler.HealthcheckInterval)
		sched.SetHealthcheck(worker)
		logger.Info("health check worker started", "interval", cfg.Scheduler.HealthcheckInterval)
	}

	report, err := sched.TriggerNow(ctx)
	exitCode(logger, report, err)

	logger.Info("daemon running, press Ctrl+C to stop")
	<-ctx.Done()

	logger.Info("shutting down")
	sched.Stop()
	return 0
}

// openRecorder returns the SQLite run history. The state store doubles as the
// recorder when it is SQLite itself.
func openRecorder(cfg config.StateConfig, state storage.StateStore, logger *slog.Logger) (storage.RunRecorder, func()) {
	if sqlite, ok := state.(*storage.SQLiteStore); ok {
		return sqlite, func() {}
	}
	if cfg.DBPath == "" {
		return nil, func() {}
	}
	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Warn("run history disabled", "db", cfg.DBPath, "error", err)
		return nil, func() {}
	}
	return store, func() { store.Close() }
}

// exitCode maps a run outcome to the process exit status. A guard abort is
// not a failure.
func exitCode(logger *slog.Logger, report *models.RunReport, err error) int {
	switch {
	case err == nil:
		logger.Info("run complete", "run", report.ID, "new", report.NewListings,
			"accepted", report.Accepted, "excluded", report.Excluded, "duration", report.Duration())
		return 0
	case errors.Is(err, services.ErrTransientEmptyResult):
		logger.Warn("run skipped", "error", err)
		return 0
	default:
		logger.Error("run failed", "error", err)
		return 1
	}
}

func stateLocation(cfg config.StateConfig) string {
	switch cfg.Backend {
	case "sqlite":
		return cfg.DBPath
	case "postgres":
		return maskConnectionString(cfg.DatabaseURL)
	case "s3":
		return "s3://" + cfg.S3.Bucket + "/" + cfg.S3.Key
	default:
		return cfg.File
	}
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	// Simple mask - find :// and mask until @
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
