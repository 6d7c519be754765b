// Command healthcheck verifies the sheet layout and the monitor's state out of
// band, prints a report and emails an alert when something is off.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"sublet_monitor/config"
	"sublet_monitor/httputil"
	"sublet_monitor/logging"
	"sublet_monitor/notify"
	"sublet_monitor/scraper"
	"sublet_monitor/services"
	"sublet_monitor/storage"
	"sublet_monitor/workers"
)

var (
	noAlert  = flag.Bool("no-alert", false, "Print the report without sending an alert")
	showRuns = flag.Int("runs", 0, "Also print the last N recorded runs")
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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	notifier, err := notify.NewNotifier(cfg, os.Stdout)
	if err != nil {
		logger.Error("failed to create notifier", "error", err)
		return 1
	}

	if cfg.Sheet.URL == "" {
		return alert(ctx, notifier, logger, []string{"SHEET_URL is not set"})
	}

	clients := httputil.NewClients(cfg.Proxy, cfg.Sheet.FetchTimeout)
	fetcher := scraper.NewFetcher(cfg.Sheet, cfg.Rules, clients.Sheet)

	state, err := storage.NewStateStore(ctx, cfg.State)
	if err != nil {
		return alert(ctx, notifier, logger, []string{fmt.Sprintf("open %s state store: %v", cfg.State.Backend, err)})
	}
	defer state.Close()

	checker := services.NewHealthcheckService(fetcher, state, cfg.Rules, cfg.Healthcheck)

	var history *storage.SQLiteStore
	if cfg.State.DBPath != "" {
		if _, statErr := os.Stat(cfg.State.DBPath); statErr == nil {
			if history, err = storage.NewSQLiteStore(cfg.State.DBPath); err != nil {
				logger.Warn("run history unavailable", "error", err)
				history = nil
			} else {
				defer history.Close()
				checker.SetHistory(history)
			}
		}
	}

	logger.Info("running health check")
	alerter := notifier
	if *noAlert {
		alerter = notify.NewConsoleNotifier(io.Discard, notify.RenderOptions{})
	}
	worker := workers.NewHealthcheckWorker(checker, alerter, logger)
	if history != nil {
		worker.SetLogger(workers.RecorderLogFunc(history))
	}

	report, alertErr := worker.RunOnce(ctx)
	printReport(report)

	if *showRuns > 0 && history != nil {
		printRuns(ctx, history, *showRuns)
	}

	if alertErr != nil {
		logger.Error("alert failed", "error", alertErr)
	}
	if !report.Healthy() {
		return 1
	}
	return 0
}

func alert(ctx context.Context, notifier notify.Notifier, logger *slog.Logger, failures []string) int {
	for _, f := range failures {
		logger.Warn(f)
	}
	if *noAlert {
		return 1
	}
	if err := notifier.Alert(ctx, failures); err != nil {
		logger.Error("alert failed", "error", err)
	}
	return 1
}

func printReport(report services.HealthReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Health check " + report.CheckedAt.Format("2006-01-02 15:04"))
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, c := range report.Checks {
		status := "OK"
		if !c.OK {
			status = "FAIL"
		}
		t.AppendRow(table.Row{c.Name, status, c.Detail})
	}
	t.Render()
}

func printRuns(ctx context.Context, store *storage.SQLiteStore, limit int) {
	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		slog.Error("list runs", "error", err)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Run", "Status", "Rows", "Accepted", "Excluded", "New", "Notified", "Duration", "Started At"})
	for _, r := range runs {
		duration := "Running..."
		if r.FinishedAt != nil {
			duration = r.Duration().Round(time.Second).String()
		}
		t.AppendRow(table.Row{shortID(r.ID), r.Status, r.RowsFetched, r.Accepted, r.Excluded, r.NewListings, r.Notified, duration, r.StartedAt.Local().Format("01-02 15:04")})
	}
	t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
