// Package sqlite persists hydrolink records in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/hydrolink/internal/domain"
	"github.com/couchcryptid/hydrolink/internal/observability"
)

// Store keeps the latest record per source id and NHD version.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	metrics *observability.Metrics
}

// Open opens or creates the database at path.
func Open(path string, metrics *observability.Metrics) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &Store{db: db, metrics: metrics}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS hydrolinks (
		source_id TEXT NOT NULL,
		nhd_version TEXT NOT NULL,
		status TEXT NOT NULL,
		reachcode TEXT,
		measure REAL,
		payload TEXT NOT NULL,
		processed_at TEXT NOT NULL,
		PRIMARY KEY (source_id, nhd_version)
	);
	CREATE INDEX IF NOT EXISTS idx_hydrolinks_reachcode ON hydrolinks(reachcode);
	`
	_, err := s.db.Exec(schema)
	return err
}

const upsert = `
INSERT INTO hydrolinks (source_id, nhd_version, status, reachcode, measure, payload, processed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (source_id, nhd_version) DO UPDATE SET
	status = excluded.status,
	reachcode = excluded.reachcode,
	measure = excluded.measure,
	payload = excluded.payload,
	processed_at = excluded.processed_at`

// Save inserts or replaces a single record.
func (s *Store) Save(ctx context.Context, hl domain.Hydrolink) error {
	return s.SaveBatch(ctx, []domain.Hydrolink{hl})
}

// SaveBatch upserts records in one transaction.
func (s *Store) SaveBatch(ctx context.Context, records []domain.Hydrolink) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, hl := range records {
		payload, err := json.Marshal(hl)
		if err != nil {
			return fmt.Errorf("marshal hydrolink %s: %w", hl.SourceID, err)
		}

		var reachcode sql.NullString
		var measure sql.NullFloat64
		if hl.Flowline != nil {
			reachcode = sql.NullString{String: hl.Flowline.ReachCode, Valid: true}
			if hl.Flowline.Measure != nil {
				measure = sql.NullFloat64{Float64: *hl.Flowline.Measure, Valid: true}
			}
		}

		if _, err := stmt.ExecContext(ctx,
			hl.SourceID, string(hl.Version), string(hl.Status), reachcode, measure,
			string(payload), hl.ProcessedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("upsert hydrolink %s: %w", hl.SourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ResultsSaved.Add(float64(len(records)))
	}
	return nil
}

// LoadBatch lets the store act as a pipeline loader.
func (s *Store) LoadBatch(ctx context.Context, records []domain.Hydrolink) error {
	return s.SaveBatch(ctx, records)
}

// Get returns the record for a source id and NHD version, or an error
// wrapping domain.ErrRecordNotFound.
func (s *Store) Get(ctx context.Context, sourceID string, version domain.NHDVersion) (domain.Hydrolink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM hydrolinks WHERE source_id = ? AND nhd_version = ?",
		sourceID, string(version),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Hydrolink{}, fmt.Errorf("id %s (%s): %w", sourceID, version, domain.ErrRecordNotFound)
	}
	if err != nil {
		return domain.Hydrolink{}, fmt.Errorf("query hydrolink: %w", err)
	}

	var hl domain.Hydrolink
	if err := json.Unmarshal([]byte(payload), &hl); err != nil {
		return domain.Hydrolink{}, fmt.Errorf("unmarshal hydrolink %s: %w", sourceID, err)
	}
	return hl, nil
}

// CountByStatus reports how many records of a version have each status.
func (s *Store) CountByStatus(ctx context.Context, version domain.NHDVersion) (map[domain.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM hydrolinks WHERE nhd_version = ? GROUP BY status",
		string(version),
	)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return counts, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
