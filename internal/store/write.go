package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/statecore/internal/ir"
)

// HistoryRecord is one persisted debug history entry.
type HistoryRecord struct {
	Session     string
	Seq         int64
	RecordedAt  time.Time
	Label       string
	ChangedKeys []string
	Snapshot    ir.IRObject
	Digest      string
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (key, value, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			version = records.version + 1,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// AppendHistory inserts a history entry.
// Uses ON CONFLICT DO NOTHING for idempotency - appending the same
// (session, seq) twice keeps the first row.
//
// The digest is computed from the snapshot when rec.Digest is empty.
func (s *Store) AppendHistory(ctx context.Context, rec HistoryRecord) error {
	snapshot, err := marshalSnapshot(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	keys, err := marshalKeys(rec.ChangedKeys)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	digest := rec.Digest
	if digest == "" {
		digest, err = ir.Digest(ir.DomainSnapshot, rec.Snapshot)
		if err != nil {
			return fmt.Errorf("append history: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history_entries
		(session, seq, recorded_at, label, changed_keys, snapshot, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`,
		rec.Session,
		rec.Seq,
		rec.RecordedAt.UnixMilli(),
		rec.Label,
		keys,
		snapshot,
		digest,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// TrimHistory keeps the newest keep entries of session and deletes the rest.
func (s *Store) TrimHistory(ctx context.Context, session string, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM history_entries
		WHERE session = ? AND id NOT IN (
			SELECT id FROM history_entries
			WHERE session = ?
			ORDER BY seq DESC, id DESC
			LIMIT ?
		)
	`, session, session, keep)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

// ClearHistory deletes every history entry. An empty session clears all
// sessions.
func (s *Store) ClearHistory(ctx context.Context, session string) error {
	var err error
	if session == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM history_entries`)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM history_entries WHERE session = ?`, session)
	}
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
