package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"sublet_monitor/identity"
	"sublet_monitor/models"
)

// SQLite caps bound parameters per statement; two per fingerprint row.
const sqliteInsertChunk = 400

// SQLiteStore holds seen fingerprints and run history in one database file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS seen_fingerprints (
		fingerprint TEXT PRIMARY KEY,
		first_seen_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL,
		rows_fetched INTEGER DEFAULT 0,
		rows_dropped INTEGER DEFAULT 0,
		accepted INTEGER DEFAULT 0,
		excluded INTEGER DEFAULT 0,
		new_listings INTEGER DEFAULT 0,
		notified BOOLEAN DEFAULT FALSE,
		state_saved BOOLEAN DEFAULT FALSE,
		error TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS run_logs (
		id INTEGER PRIMARY KEY,
		run_id TEXT,
		timestamp DATETIME,
		level TEXT,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON run_logs(run_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Seen state
// =============================================================================

func (s *SQLiteStore) Load(ctx context.Context) (identity.SeenSet, error) {
	rows, err := sq.Select("fingerprint").From("seen_fingerprints").
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fingerprints: %w", err)
	}
	defer rows.Close()

	seen := identity.NewSeenSet()
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		seen.Add(fp)
	}
	return seen, rows.Err()
}

// Save inserts fingerprints that are not stored yet. Existing rows are never
// removed or rewritten.
func (s *SQLiteStore) Save(ctx context.Context, seen identity.SeenSet) error {
	fps := seen.Sorted()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for start := 0; start < len(fps); start += sqliteInsertChunk {
		end := min(start+sqliteInsertChunk, len(fps))
		insert := sq.Insert("seen_fingerprints").Columns("fingerprint", "first_seen_at")
		for _, fp := range fps[start:end] {
			insert = insert.Values(fp, now)
		}
		if _, err := insert.Suffix("ON CONFLICT(fingerprint) DO NOTHING").
			RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("insert fingerprints: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Validate(ctx context.Context) error {
	var n int
	err := sq.Select("COUNT(*)").From("seen_fingerprints").
		RunWith(s.db).QueryRowContext(ctx).Scan(&n)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return nil
}

// =============================================================================
// Run history
// =============================================================================

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.RunReport) error {
	_, err := sq.Insert("runs").
		Columns("id", "started_at", "status").
		Values(run.ID, run.StartedAt, run.Status).
		RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.RunReport) error {
	_, err := sq.Update("runs").SetMap(map[string]interface{}{
		"finished_at":  run.FinishedAt,
		"status":       run.Status,
		"rows_fetched": run.RowsFetched,
		"rows_dropped": run.RowsDropped,
		"accepted":     run.Accepted,
		"excluded":     run.Excluded,
		"new_listings": run.NewListings,
		"notified":     run.Notified,
		"state_saved":  run.StateSaved,
		"error":        run.Error,
	}).Where(sq.Eq{"id": run.ID}).RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *SQLiteStore) Log(ctx context.Context, runID string, level models.LogLevel, message string) error {
	_, err := sq.Insert("run_logs").
		Columns("run_id", "timestamp", "level", "message").
		Values(runID, time.Now().UTC(), level, message).
		RunWith(s.db).ExecContext(ctx)
	return err
}

var runColumns = []string{
	"id", "started_at", "finished_at", "status", "rows_fetched", "rows_dropped",
	"accepted", "excluded", "new_listings", "notified", "state_saved", "error",
}

// LastCompletedRun returns nil when no run has completed yet.
func (s *SQLiteStore) LastCompletedRun(ctx context.Context) (*models.RunReport, error) {
	row := sq.Select(runColumns...).From("runs").
		Where(sq.Eq{"status": models.RunStatusCompleted}).
		OrderBy("started_at DESC").Limit(1).
		RunWith(s.db).QueryRowContext(ctx)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// RecentRuns lists the newest runs first.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]models.RunReport, error) {
	rows, err := sq.Select(runColumns...).From("runs").
		OrderBy("started_at DESC").Limit(uint64(limit)).
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.RunReport
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRunLogs returns a run's log lines in the order they were written.
func (s *SQLiteStore) GetRunLogs(ctx context.Context, runID string) ([]models.RunLog, error) {
	rows, err := sq.Select("id", "run_id", "timestamp", "level", "message").
		From("run_logs").Where(sq.Eq{"run_id": runID}).OrderBy("id").
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.RunLog
	for rows.Next() {
		var l models.RunLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.RunReport, error) {
	var (
		run      models.RunReport
		finished sql.NullTime
	)
	err := row.Scan(&run.ID, &run.StartedAt, &finished, &run.Status, &run.RowsFetched,
		&run.RowsDropped, &run.Accepted, &run.Excluded, &run.NewListings,
		&run.Notified, &run.StateSaved, &run.Error)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}
