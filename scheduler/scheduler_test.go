package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"sublet_monitor/config"
	"sublet_monitor/logging"
	"sublet_monitor/models"
)

type countingRunner struct {
	runs atomic.Int32
	err  error
}

func (r *countingRunner) Run(ctx context.Context) (*models.RunReport, error) {
	r.runs.Add(1)
	return &models.RunReport{ID: "r"}, r.err
}

type countingTrigger struct{ n atomic.Int32 }

func (c *countingTrigger) Trigger() { c.n.Add(1) }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestScheduler_IntervalRuns(t *testing.T) {
	runner := &countingRunner{}
	s := New(config.SchedulerConfig{Interval: 10 * time.Millisecond}, runner, logging.Discard())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return runner.runs.Load() >= 2 })
	s.Stop()
	s.Stop() // idempotent
}

func TestScheduler_FailedRunTriggersHealthcheck(t *testing.T) {
	runner := &countingRunner{err: errors.New("fetch failed")}
	hc := &countingTrigger{}
	s := New(config.SchedulerConfig{Interval: 10 * time.Millisecond}, runner, logging.Discard())
	s.SetHealthcheck(hc)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	waitFor(t, func() bool { return hc.n.Load() >= 1 })
}

func TestScheduler_ConfigErrors(t *testing.T) {
	s := New(config.SchedulerConfig{Cron: "not a cron"}, &countingRunner{}, logging.Discard())
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected invalid cron error")
	}

	s = New(config.SchedulerConfig{}, &countingRunner{}, logging.Discard())
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected error without a schedule")
	}
}

func TestScheduler_TriggerNow(t *testing.T) {
	runner := &countingRunner{}
	s := New(config.SchedulerConfig{Cron: "@hourly"}, runner, logging.Discard())

	if _, err := s.TriggerNow(context.Background()); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if runner.runs.Load() != 1 {
		t.Fatalf("expected one run, got %d", runner.runs.Load())
	}
}
