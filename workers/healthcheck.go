package workers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sublet_monitor/models"
	"sublet_monitor/notify"
	"sublet_monitor/services"
)

const healthcheckSource = "healthcheck"

// HealthcheckWorker runs the health check on an interval and alerts on
// failures.
type HealthcheckWorker struct {
	checker   *services.HealthcheckService
	notifier  notify.Notifier
	triggerCh chan struct{}
	logFunc   LogFunc
	logger    *slog.Logger
}

func NewHealthcheckWorker(checker *services.HealthcheckService, notifier notify.Notifier, logger *slog.Logger) *HealthcheckWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthcheckWorker{
		checker:   checker,
		notifier:  notifier,
		triggerCh: make(chan struct{}, 1),
		logFunc:   NoOpLogger,
		logger:    logger.With("component", healthcheckSource),
	}
}

func (w *HealthcheckWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes the worker to run immediately
func (w *HealthcheckWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// RunOnce checks once and sends an alert if anything failed. The alert error,
// if any, is returned alongside the report.
func (w *HealthcheckWorker) RunOnce(ctx context.Context) (services.HealthReport, error) {
	report := w.checker.Check(ctx)
	failures := report.Failures()
	if len(failures) == 0 {
		w.logger.Info("health check passed")
		w.logFunc(models.LogLevelInfo, healthcheckSource, "health check passed")
		return report, nil
	}

	w.logger.Warn("health check failed", "failures", len(failures))
	for _, f := range failures {
		w.logger.Warn("  " + f)
	}
	w.logFunc(models.LogLevelWarn, healthcheckSource, strings.Join(failures, "; "))

	if err := w.notifier.Alert(ctx, failures); err != nil {
		w.logger.Error("failed to send health check alert", "error", err)
		return report, err
	}
	return report, nil
}

func (w *HealthcheckWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("health check worker stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-w.triggerCh:
			w.logger.Info("health check triggered")
			w.RunOnce(ctx)
		}
	}
}
