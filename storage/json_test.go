package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sublet_monitor/identity"
)

func TestJSONStore_MissingFileLoadsEmpty(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "seen_listings.json"))

	seen, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if seen.Len() != 0 {
		t.Fatalf("expected empty set, got %v", seen.Sorted())
	}
	if err := store.Validate(context.Background()); !errors.Is(err, ErrStateMissing) {
		t.Fatalf("expected ErrStateMissing, got %v", err)
	}
}

func TestJSONStore_SaveWritesSortedArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen_listings.json")
	store := NewJSONStore(path)
	ctx := context.Background()

	if err := store.Save(ctx, identity.NewSeenSet("c", "a", "b")); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "[\n  \"a\",\n  \"b\",\n  \"c\"\n]\n"
	if string(data) != want {
		t.Fatalf("unexpected file content:\n%s", data)
	}

	seen, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if seen.Len() != 3 || !seen.Has("b") {
		t.Fatalf("unexpected set %v", seen.Sorted())
	}
	if err := store.Validate(ctx); err != nil {
		t.Fatalf("validate: %v", err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestJSONStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen_listings.json")
	if err := os.WriteFile(path, []byte(`{"not": "a list"}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := NewJSONStore(path)

	seen, err := store.Load(context.Background())
	if !errors.Is(err, ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState, got %v", err)
	}
	if seen == nil || seen.Len() != 0 {
		t.Fatalf("corrupt state should come with an empty set")
	}
	if err := store.Validate(context.Background()); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("validate should report corruption, got %v", err)
	}
}
