// Package renderstore persists render jobs, their chunk manifests and a
// lifecycle event trail in SQLite. In ephemeral mode every write is a
// no-op; live job state is held by the render service either way.
package renderstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/voxweave-labs/voxweave-core/internal/config"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a render is absent or persistence is off.
var ErrNotFound = errors.New("render not found")

// RenderRecord is one render job row.
type RenderRecord struct {
	RenderID        string
	State           string
	Step            string
	Done            int
	Total           int
	Error           string
	ScriptHash      string
	SettingsHash    string
	ScriptChars     int
	ArtifactKey     string
	DurationSeconds float64
	IntegratedLUFS  float64
	TruePeakDB      float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ManifestEntry records one chunk of a render's manifest.
type ManifestEntry struct {
	ChunkIndex   int
	ContentHash  string
	CharCount    int
	EstimatedSec float64
}

// Event is one recorded lifecycle entry.
type Event struct {
	ID        int64
	RenderID  string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Store wraps the SQLite-backed render state store.
type Store struct {
	db    *sql.DB
	cfg   config.StoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the render store according to config.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.Ephemeral {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.DatabasePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.DatabasePath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS renders (
    render_id TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    step TEXT,
    done INTEGER NOT NULL DEFAULT 0,
    total INTEGER NOT NULL DEFAULT 0,
    error TEXT,
    script_hash TEXT NOT NULL DEFAULT '',
    settings_hash TEXT NOT NULL DEFAULT '',
    script_chars INTEGER NOT NULL DEFAULT 0,
    artifact_key TEXT,
    duration_sec REAL NOT NULL DEFAULT 0,
    integrated_lufs REAL NOT NULL DEFAULT 0,
    true_peak_db REAL NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS manifests (
    render_id TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    content_hash TEXT NOT NULL,
    char_count INTEGER NOT NULL,
    estimated_sec REAL NOT NULL,
    PRIMARY KEY(render_id, chunk_index),
    FOREIGN KEY(render_id) REFERENCES renders(render_id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS render_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    render_id TEXT NOT NULL,
    event_type TEXT,
    payload BLOB,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(render_id) REFERENCES renders(render_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_render_events_render_created ON render_events(render_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateRender inserts a new render row in its initial state.
func (s *Store) CreateRender(ctx context.Context, rec RenderRecord) error {
	if s.db == nil {
		return nil
	}
	now := s.clock().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO renders(render_id, state, step, done, total, error, script_hash, settings_hash,
		                     script_chars, artifact_key, duration_sec, integrated_lufs, true_peak_db,
		                     created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RenderID, rec.State, rec.Step, rec.Done, rec.Total, rec.Error, rec.ScriptHash,
		rec.SettingsHash, rec.ScriptChars, rec.ArtifactKey, rec.DurationSeconds,
		rec.IntegratedLUFS, rec.TruePeakDB, now, now)
	return err
}

// UpdateProgress records the current step and completion counts.
func (s *Store) UpdateProgress(ctx context.Context, renderID, state, step string, done, total int) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE renders SET state = ?, step = ?, done = ?, total = ?, updated_at = ? WHERE render_id = ?`,
		state, step, done, total, s.clock().UTC(), renderID)
	return err
}

// MarkFailed records a terminal failure.
func (s *Store) MarkFailed(ctx context.Context, renderID, step, reason string) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE renders SET state = 'failed', step = ?, error = ?, updated_at = ? WHERE render_id = ?`,
		step, reason, s.clock().UTC(), renderID)
	return err
}

// MarkDone records the artifact location and final measurements.
func (s *Store) MarkDone(ctx context.Context, renderID, artifactKey string, durationSec, lufs, truePeak float64) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE renders SET state = 'done', artifact_key = ?, duration_sec = ?,
		        integrated_lufs = ?, true_peak_db = ?, updated_at = ? WHERE render_id = ?`,
		artifactKey, durationSec, lufs, truePeak, s.clock().UTC(), renderID)
	return err
}

// GetRender fetches one render row.
func (s *Store) GetRender(ctx context.Context, renderID string) (RenderRecord, error) {
	if s.db == nil {
		return RenderRecord{}, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT render_id, state, step, done, total, error, script_hash, settings_hash,
		        script_chars, artifact_key, duration_sec, integrated_lufs, true_peak_db,
		        created_at, updated_at
		 FROM renders WHERE render_id = ?`, renderID)

	var rec RenderRecord
	var step, errMsg, artifact sql.NullString
	var created, updated string
	err := row.Scan(&rec.RenderID, &rec.State, &step, &rec.Done, &rec.Total, &errMsg,
		&rec.ScriptHash, &rec.SettingsHash, &rec.ScriptChars, &artifact,
		&rec.DurationSeconds, &rec.IntegratedLUFS, &rec.TruePeakDB, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return RenderRecord{}, ErrNotFound
	}
	if err != nil {
		return RenderRecord{}, err
	}
	rec.Step = step.String
	rec.Error = errMsg.String
	rec.ArtifactKey = artifact.String
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		rec.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		rec.UpdatedAt = ts
	}
	return rec, nil
}

// PutManifest replaces the chunk manifest for a render.
func (s *Store) PutManifest(ctx context.Context, renderID string, entries []ManifestEntry) error {
	if s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM manifests WHERE render_id = ?`, renderID); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO manifests(render_id, chunk_index, content_hash, char_count, estimated_sec)
			 VALUES(?, ?, ?, ?, ?)`,
			renderID, e.ChunkIndex, e.ContentHash, e.CharCount, e.EstimatedSec); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

// ListManifest retrieves the chunk manifest ordered by chunk index.
func (s *Store) ListManifest(ctx context.Context, renderID string) ([]ManifestEntry, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_index, content_hash, char_count, estimated_sec
		 FROM manifests WHERE render_id = ? ORDER BY chunk_index ASC`, renderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ManifestEntry
	for rows.Next() {
		var e ManifestEntry
		if err := rows.Scan(&e.ChunkIndex, &e.ContentHash, &e.CharCount, &e.EstimatedSec); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AppendEvent writes a lifecycle event into the trail.
func (s *Store) AppendEvent(ctx context.Context, evt Event) error {
	if s.db == nil {
		return nil
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO render_events(render_id, event_type, payload, created_at)
		 VALUES(?, ?, ?, ?)`,
		evt.RenderID, evt.Type, evt.Payload, evt.CreatedAt)
	return err
}

// ListEvents retrieves up to limit events for a render ordered ascending by time.
func (s *Store) ListEvents(ctx context.Context, renderID string, limit int) ([]Event, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, render_id, event_type, payload, created_at
		 FROM render_events WHERE render_id = ? ORDER BY created_at ASC LIMIT ?`, renderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var created string
		if err := rows.Scan(&e.ID, &e.RenderID, &e.Type, &e.Payload, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
