package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"sublet_monitor/config"
	"sublet_monitor/models"
)

var ErrNotify = errors.New("notification failed")

// NotifyError wraps a delivery failure. Seen state is not persisted after one.
type NotifyError struct {
	Channel string
	Err     error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify via %s: %v", e.Channel, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

func (e *NotifyError) Is(target error) bool { return target == ErrNotify }

// Notifier delivers run results to a human.
type Notifier interface {
	// Send announces new accepted listings, with the excluded ones attached
	// for manual review.
	Send(ctx context.Context, newListings []models.Listing, excluded []models.Excluded) error
	// SendDigest lists every currently accepted listing when nothing is new.
	SendDigest(ctx context.Context, accepted []models.Listing) error
	// Alert reports health-check failures.
	Alert(ctx context.Context, failures []string) error
}

func NewNotifier(cfg *config.Config, w io.Writer) (Notifier, error) {
	if w == nil {
		w = os.Stdout
	}
	opts := RenderOptions{SheetURL: cfg.Sheet.URL, MaxRent: cfg.Filter.MaxRent}
	switch cfg.Notifier {
	case "", "email":
		return NewEmailNotifier(cfg.Email, opts), nil
	case "console":
		return NewConsoleNotifier(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}
