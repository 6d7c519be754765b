package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"sublet_monitor/config"
	"sublet_monitor/models"
	"sublet_monitor/services"
)

// Runner is one monitor cycle.
type Runner interface {
	Run(ctx context.Context) (*models.RunReport, error)
}

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

type Scheduler struct {
	cfg    config.SchedulerConfig
	runner Runner
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}
	once   sync.Once
	logger *slog.Logger

	// held for the duration of a cycle
	mu sync.Mutex

	healthcheckWorker Triggerable
}

func New(cfg config.SchedulerConfig, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))

	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
		stopCh: make(chan struct{}),
		logger: logger,
	}
}

// SetHealthcheck registers the health-check worker, triggered after a run
// that failed outright.
func (s *Scheduler) SetHealthcheck(w Triggerable) {
	s.healthcheckWorker = w
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Cron != "" {
		s.logger.Info("starting scheduler", "cron", s.cfg.Cron)
		_, err := s.cron.AddFunc(s.cfg.Cron, func() { s.runOnce(ctx) })
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
		return nil
	}

	if s.cfg.Interval <= 0 {
		return errors.New("no schedule configured: set SCRAPE_CRON or SCRAPE_INTERVAL")
	}

	s.logger.Info("starting scheduler", "interval", s.cfg.Interval)
	s.ticker = time.NewTicker(s.cfg.Interval)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.runOnce(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (s *Scheduler) Stop() {
	s.once.Do(func() {
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
}

// TriggerNow runs a cycle immediately, waiting for any cycle in progress.
func (s *Scheduler) TriggerNow(ctx context.Context) (*models.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.Run(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.TriggerNow(ctx)
	switch {
	case err == nil:
		s.logger.Info("scheduled run completed", "run", report.ID, "new", report.NewListings, "duration", report.Duration())
	case errors.Is(err, services.ErrTransientEmptyResult):
		s.logger.Warn("scheduled run skipped", "error", err)
	default:
		s.logger.Error("scheduled run error", "error", err)
		if s.healthcheckWorker != nil {
			s.healthcheckWorker.Trigger()
		}
	}
}
