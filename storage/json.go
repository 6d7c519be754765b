package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sublet_monitor/identity"
)

// JSONStore keeps seen state in a local file, seen_listings.json by default.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) Load(ctx context.Context) (identity.SeenSet, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return identity.NewSeenSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	return decodeSeen(data)
}

// Save writes to a temp file and renames it over the old state so a crash
// mid-write never leaves a truncated file.
func (s *JSONStore) Save(ctx context.Context, seen identity.SeenSet) error {
	data, err := encodeSeen(seen)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

func (s *JSONStore) Validate(ctx context.Context) error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrStateMissing, s.path)
	}
	if err != nil {
		return err
	}
	_, err = decodeSeen(data)
	return err
}

func (s *JSONStore) Close() error { return nil }
