package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"sublet_monitor/config"
	"sublet_monitor/identity"
	"sublet_monitor/models"
)

var (
	// ErrCorruptState is returned by Load alongside an empty set when the
	// stored state cannot be decoded. Callers may continue with the empty set.
	ErrCorruptState = errors.New("corrupt seen state")
	ErrStateMissing = errors.New("seen state does not exist")
)

// StateStore persists the set of fingerprints that have already been
// notified. Save only ever adds.
type StateStore interface {
	Load(ctx context.Context) (identity.SeenSet, error)
	Save(ctx context.Context, seen identity.SeenSet) error
	Validate(ctx context.Context) error
	Close() error
}

// RunRecorder keeps run history for the health check.
type RunRecorder interface {
	CreateRun(ctx context.Context, run *models.RunReport) error
	UpdateRun(ctx context.Context, run *models.RunReport) error
	Log(ctx context.Context, runID string, level models.LogLevel, message string) error
	LastCompletedRun(ctx context.Context) (*models.RunReport, error)
}

func NewStateStore(ctx context.Context, cfg config.StateConfig) (StateStore, error) {
	switch cfg.Backend {
	case "", "json":
		return NewJSONStore(cfg.File), nil
	case "sqlite":
		return NewSQLiteStore(cfg.DBPath)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

// encodeSeen renders the set as a sorted JSON array.
func encodeSeen(seen identity.SeenSet) ([]byte, error) {
	data, err := json.MarshalIndent(seen.Sorted(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decodeSeen(data []byte) (identity.SeenSet, error) {
	var fps []string
	if err := json.Unmarshal(data, &fps); err != nil {
		return identity.NewSeenSet(), fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return identity.NewSeenSet(fps...), nil
}
