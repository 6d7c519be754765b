package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sublet_monitor/identity"
	"sublet_monitor/models"
	"sublet_monitor/notify"
	"sublet_monitor/services"
	"sublet_monitor/storage"
)

type Options struct {
	MaxRent       float64
	SendWhenNoNew bool
	GuardMinSeen  int
}

// Orchestrator runs one monitor cycle: fetch, normalize, guard, filter,
// diff, notify, persist.
type Orchestrator struct {
	fetcher    Fetcher
	normalizer *services.Normalizer
	guard      services.Guard
	state      storage.StateStore
	notifier   notify.Notifier
	recorder   storage.RunRecorder
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

func NewOrchestrator(fetcher Fetcher, normalizer *services.Normalizer, state storage.StateStore, notifier notify.Notifier, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		fetcher:    fetcher,
		normalizer: normalizer,
		guard:      services.NewGuard(opts.GuardMinSeen),
		state:      state,
		notifier:   notifier,
		opts:       opts,
		logger:     logger.With("component", "orchestrator"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetRecorder enables run history.
func (o *Orchestrator) SetRecorder(r storage.RunRecorder) {
	o.recorder = r
}

// Run executes one cycle. Seen state is written only after the notifier
// accepted the new listings. A guard abort returns an error wrapping
// services.ErrTransientEmptyResult with a report whose status is aborted.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunReport, error) {
	run := &models.RunReport{
		ID:        uuid.NewString(),
		StartedAt: o.now(),
		Status:    models.RunStatusRunning,
	}
	if o.recorder != nil {
		if err := o.recorder.CreateRun(ctx, run); err != nil {
			o.logger.Warn("failed to record run start", "error", err)
		}
	}

	err := o.run(ctx, run)

	finished := o.now()
	run.FinishedAt = &finished
	switch {
	case err == nil:
		run.Status = models.RunStatusCompleted
	case errors.Is(err, services.ErrTransientEmptyResult):
		run.Status = models.RunStatusAborted
		run.Error = err.Error()
	default:
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		o.log(ctx, run.ID, models.LogLevelError, "run failed", "error", err)
	}
	if o.recorder != nil {
		if uerr := o.recorder.UpdateRun(ctx, run); uerr != nil {
			o.logger.Warn("failed to record run result", "error", uerr)
		}
	}

	return run, err
}

func (o *Orchestrator) run(ctx context.Context, run *models.RunReport) error {
	seen, err := o.state.Load(ctx)
	if errors.Is(err, storage.ErrCorruptState) {
		o.log(ctx, run.ID, models.LogLevelWarn, "seen state unreadable, starting from empty", "error", err)
		seen, err = identity.NewSeenSet(), nil
	}
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	table, err := o.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	run.RowsFetched = len(table.Records)

	listings, rowErrs := o.normalizer.NormalizeAll(table.Records)
	run.RowsDropped = len(rowErrs)
	for _, rowErr := range rowErrs {
		o.log(ctx, run.ID, models.LogLevelWarn, "dropping row", "error", rowErr)
	}

	if state, err := o.guard.Check(run.RowsFetched, seen); state == services.GuardAborted {
		o.log(ctx, run.ID, models.LogLevelWarn, "sheet returned no rows, likely a transient export failure; skipping run",
			"seen", seen.Len())
		return err
	}

	result := services.Filter(listings, o.opts.MaxRent)
	run.Accepted = len(result.Accepted)
	run.Excluded = len(result.Excluded)

	fresh, freshFps := newListings(result.Accepted, seen)
	run.NewListings = len(fresh)

	o.log(ctx, run.ID, models.LogLevelInfo, "filtered listings",
		"rows", run.RowsFetched, "accepted", run.Accepted, "excluded", run.Excluded, "new", run.NewListings)

	if len(fresh) == 0 {
		if o.opts.SendWhenNoNew {
			if err := o.notifier.SendDigest(ctx, result.Accepted); err != nil {
				return err
			}
			run.Notified = true
			o.log(ctx, run.ID, models.LogLevelInfo, "no new listings, digest sent", "accepted", run.Accepted)
		} else {
			o.log(ctx, run.ID, models.LogLevelInfo, "no new listings")
		}
		return nil
	}

	if err := o.notifier.Send(ctx, fresh, result.Excluded); err != nil {
		return err
	}
	run.Notified = true

	if err := o.state.Save(ctx, seen.Union(freshFps...)); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	run.StateSaved = true

	o.log(ctx, run.ID, models.LogLevelInfo, "notified new listings", "new", len(fresh), "seen", seen.Len()+len(freshFps))
	return nil
}

// newListings returns the accepted listings whose fingerprints are not in
// seen, first occurrence only, in source order.
func newListings(accepted []models.Listing, seen identity.SeenSet) ([]models.Listing, []string) {
	fps := make([]string, len(accepted))
	byFp := make(map[string]models.Listing, len(accepted))
	for i, l := range accepted {
		fps[i] = identity.Fingerprint(l)
		if _, ok := byFp[fps[i]]; !ok {
			byFp[fps[i]] = l
		}
	}

	freshFps := identity.Diff(fps, seen)
	fresh := make([]models.Listing, 0, len(freshFps))
	for _, fp := range freshFps {
		fresh = append(fresh, byFp[fp])
	}
	return fresh, freshFps
}

func (o *Orchestrator) log(ctx context.Context, runID string, level models.LogLevel, msg string, args ...any) {
	args = append([]any{"run", runID}, args...)
	switch level {
	case models.LogLevelError:
		o.logger.Error(msg, args...)
	case models.LogLevelWarn:
		o.logger.Warn(msg, args...)
	default:
		o.logger.Info(msg, args...)
	}

	if o.recorder != nil {
		line := msg
		for i := 2; i+1 < len(args); i += 2 {
			line += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		}
		if err := o.recorder.Log(ctx, runID, level, line); err != nil {
			o.logger.Warn("failed to record log line", "error", err)
		}
	}
}
