// Package history persists terminal job records to SQLite so completed and
// failed jobs survive the in-memory table's cleanup sweep.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	_ "modernc.org/sqlite"

	"squeeze/internal/jobs"
	"squeeze/internal/plan"
	"squeeze/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the schema changes; a mismatched database
// must be deleted and recreated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different build.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Entry is one archived job.
type Entry struct {
	JobID           string      `json:"job_id"`
	Status          jobs.Status `json:"status"`
	Codec           plan.Codec  `json:"codec"`
	Encoder         string      `json:"encoder,omitempty"`
	Hardware        bool        `json:"hardware"`
	TargetSizeMB    float64     `json:"target_size_mb,omitempty"`
	OutputSizeBytes int64       `json:"output_size_bytes,omitempty"`
	VideoKbps       *int        `json:"video_kbps,omitempty"`
	AudioKbps       int         `json:"audio_kbps,omitempty"`
	EffectiveScale  int         `json:"effective_scale"`
	ErrorMessage    string      `json:"error,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	StartedAt       time.Time   `json:"started_at,omitzero"`
	CompletedAt     time.Time   `json:"completed_at,omitzero"`
	ArchivedAt      time.Time   `json:"archived_at"`
}

// Store manages the archive database.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the archive database under dir.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Archive upserts one terminal job snapshot.
func (s *Store) Archive(ctx context.Context, snap jobs.Snapshot, outputSizeBytes int64) error {
	if !snap.Status.Terminal() {
		return services.Wrap(services.ErrValidation, "history", "archive",
			fmt.Sprintf("job %s is not terminal (%s)", snap.ID, snap.Status), nil)
	}
	query := `INSERT INTO job_history
		(job_id, status, codec, encoder, hardware, target_size_mb, output_size_bytes,
		 video_kbps, audio_kbps, effective_scale, error_message,
		 created_at, started_at, completed_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			status = excluded.status,
			output_size_bytes = excluded.output_size_bytes,
			error_message = excluded.error_message,
			completed_at = excluded.completed_at,
			archived_at = excluded.archived_at`
	return s.execWithRetry(ctx, query,
		snap.ID, string(snap.Status), string(snap.Codec), snap.Encoder, boolToInt(snap.Hardware),
		snap.TargetSizeMB, outputSizeBytes,
		snap.VideoKbps, snap.AudioKbps, snap.EffectiveScale, snap.Error,
		snap.CreatedAt.UTC(), nullableTime(snap.StartedAt), nullableTime(snap.CompletedAt), time.Now().UTC())
}

// Get fetches one archived job.
func (s *Store) Get(ctx context.Context, jobID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE job_id = ?", jobID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "history", "get",
			fmt.Sprintf("job %s not archived", jobID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return entry, nil
}

// List returns the most recently archived entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY archived_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune removes entries archived before the cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, "DELETE FROM job_history WHERE archived_at < ?", cutoff)
		if execErr != nil {
			return execErr
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	return affected, err
}

const selectColumns = `SELECT job_id, status, codec, encoder, hardware, target_size_mb,
	output_size_bytes, video_kbps, audio_kbps, effective_scale, error_message,
	created_at, started_at, completed_at, archived_at FROM job_history`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry     Entry
		status    string
		codec     string
		hardware  int
		videoKbps sql.NullInt64
		started   sql.NullTime
		completed sql.NullTime
	)
	err := row.Scan(&entry.JobID, &status, &codec, &entry.Encoder, &hardware,
		&entry.TargetSizeMB, &entry.OutputSizeBytes, &videoKbps, &entry.AudioKbps,
		&entry.EffectiveScale, &entry.ErrorMessage,
		&entry.CreatedAt, &started, &completed, &entry.ArchivedAt)
	if err != nil {
		return nil, err
	}
	entry.Status = jobs.Status(status)
	entry.Codec = plan.Codec(codec)
	entry.Hardware = hardware != 0
	if videoKbps.Valid {
		v := int(videoKbps.Int64)
		entry.VideoKbps = &v
	}
	if started.Valid {
		entry.StartedAt = started.Time
	}
	if completed.Valid {
		entry.CompletedAt = completed.Time
	}
	return &entry, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
