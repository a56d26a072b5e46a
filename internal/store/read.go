package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Record is a stored key/value pair with bookkeeping columns.
type Record struct {
	Key       string
	Value     string
	Version   int64
	UpdatedAt time.Time
}

// Get returns the value stored under key. ok is false when the key is
// missing.
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Records returns every stored record ordered by key.
// Returns an empty slice (not nil) if the table is empty.
func (s *Store) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, version, updated_at
		FROM records
		ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			r         Record
			updatedAt int64
		)
		if err := rows.Scan(&r.Key, &r.Value, &r.Version, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.UpdatedAt = time.UnixMilli(updatedAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ReadHistory returns the entries of session in recording order.
// A positive limit keeps only the newest limit entries.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC.
//
// Returns an empty slice (not nil) if no entries exist.
func (s *Store) ReadHistory(ctx context.Context, session string, limit int) ([]HistoryRecord, error) {
	query := `
		SELECT session, seq, recorded_at, label, changed_keys, snapshot, digest
		FROM (
			SELECT id, session, seq, recorded_at, label, changed_keys, snapshot, digest
			FROM history_entries
			WHERE session = ?
			ORDER BY seq DESC, id DESC
			LIMIT ?
		)
		ORDER BY seq ASC, id ASC
	`
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, query, session, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := []HistoryRecord{}
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}

// Sessions returns the recorder sessions that have history, most recent
// first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session
		FROM history_entries
		GROUP BY session
		ORDER BY MAX(id) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func scanHistory(rows *sql.Rows) (HistoryRecord, error) {
	var (
		rec        HistoryRecord
		recordedAt int64
		keys       string
		snapshot   string
	)
	if err := rows.Scan(&rec.Session, &rec.Seq, &recordedAt, &rec.Label, &keys, &snapshot, &rec.Digest); err != nil {
		return HistoryRecord{}, fmt.Errorf("scan history: %w", err)
	}
	rec.RecordedAt = time.UnixMilli(recordedAt)

	var err error
	if rec.ChangedKeys, err = unmarshalKeys(keys); err != nil {
		return HistoryRecord{}, err
	}
	if rec.Snapshot, err = unmarshalSnapshot(snapshot); err != nil {
		return HistoryRecord{}, err
	}
	return rec, nil
}
