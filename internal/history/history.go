// Package history persists completed practice sessions.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mbeda/lingua/internal/conversation"
)

// Record is one completed session as shown on the history page.
type Record struct {
	ID         string              `json:"id"`
	ScenarioID string              `json:"scenario_id"`
	Opening    string              `json:"opening,omitempty"`
	Turns      []conversation.Turn `json:"turns"`
	Evaluation string              `json:"evaluation"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Store is a pgx-backed history store.
type Store struct {
	db *pgxpool.Pool
}

// New creates a history store.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ErrNotFound reports a missing history record.
var ErrNotFound = pgx.ErrNoRows

// Save inserts a completed session. Records are keyed by session id and a
// session is only ever saved once, so re-saving an existing id is a no-op
// rather than a duplicate row.
func (s *Store) Save(ctx context.Context, rec Record) error {
	turnsJSON, err := json.Marshal(rec.Turns)
	if err != nil {
		return fmt.Errorf("failed to marshal turns: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO completed_sessions (id, scenario_id, opening, turns, evaluation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.ScenarioID, rec.Opening, turnsJSON, rec.Evaluation, rec.CreatedAt)
	return err
}

// List returns the most recent completed sessions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, scenario_id, opening, turns, evaluation, created_at
		FROM completed_sessions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns one completed session by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, scenario_id, opening, turns, evaluation, created_at
		FROM completed_sessions
		WHERE id = $1
	`, id)
	return scanRecord(row)
}

// Delete removes one completed session.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM completed_sessions WHERE id = $1`, id)
	return err
}

// DeleteAll clears the history.
func (s *Store) DeleteAll(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM completed_sessions`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var turnsJSON []byte
	if err := row.Scan(&rec.ID, &rec.ScenarioID, &rec.Opening, &turnsJSON, &rec.Evaluation, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(turnsJSON, &rec.Turns); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal turns: %w", err)
	}
	return rec, nil
}
