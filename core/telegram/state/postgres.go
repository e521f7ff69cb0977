package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps conversations in the form_sessions table. The table is created by
// the migrations shipped in core/database. The caller owns the *sqlx.DB.
type PostgresStore struct {
	db *sqlx.DB
}

type sessionRow struct {
	State string `db:"state"`
	Data  []byte `db:"data"`
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	pgSelectSession = `SELECT state, data FROM form_sessions WHERE chat_id = $1 AND user_id = $2`
	pgUpsertState   = `INSERT INTO form_sessions (chat_id, user_id, state)
VALUES ($1, $2, $3)
ON CONFLICT (chat_id, user_id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`
	pgUpsertData = `INSERT INTO form_sessions (chat_id, user_id, data)
VALUES ($1, $2, $3)
ON CONFLICT (chat_id, user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	pgMergeData = `INSERT INTO form_sessions (chat_id, user_id, data)
VALUES ($1, $2, $3)
ON CONFLICT (chat_id, user_id) DO UPDATE SET data = form_sessions.data || EXCLUDED.data, updated_at = now()`
	pgResetState   = `UPDATE form_sessions SET state = 'idle', updated_at = now() WHERE chat_id = $1 AND user_id = $2`
	pgDeleteSession = `DELETE FROM form_sessions WHERE chat_id = $1 AND user_id = $2`
)

func (s *PostgresStore) load(ctx context.Context, key Key) (*sessionRow, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, pgSelectSession, key.ChatID, key.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: postgres load: %w", err)
	}
	return &row, nil
}

// GetState returns the stored state or StateIdle.
func (s *PostgresStore) GetState(ctx context.Context, key Key) (State, error) {
	row, err := s.load(ctx, key)
	if err != nil || row == nil || row.State == "" {
		return StateIdle, err
	}
	return State(row.State), nil
}

// SetState stores the current state.
func (s *PostgresStore) SetState(ctx context.Context, key Key, st State) error {
	if _, err := s.db.ExecContext(ctx, pgUpsertState, key.ChatID, key.UserID, string(st)); err != nil {
		return fmt.Errorf("state: postgres set state: %w", err)
	}
	return nil
}

// GetData decodes the jsonb bag.
func (s *PostgresStore) GetData(ctx context.Context, key Key) (map[string]any, error) {
	row, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return map[string]any{}, nil
	}
	data, err := decodeBag(row.Data)
	if err != nil {
		return nil, fmt.Errorf("state: postgres decode data: %w", err)
	}
	return data, nil
}

// SetData replaces the bag.
func (s *PostgresStore) SetData(ctx context.Context, key Key, data map[string]any) error {
	return s.writeData(ctx, pgUpsertData, key, data)
}

// UpdateData merges values into the bag using jsonb concatenation.
func (s *PostgresStore) UpdateData(ctx context.Context, key Key, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	return s.writeData(ctx, pgMergeData, key, values)
}

func (s *PostgresStore) writeData(ctx context.Context, query string, key Key, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("state: postgres encode data: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, key.ChatID, key.UserID, string(raw)); err != nil {
		return fmt.Errorf("state: postgres write data: %w", err)
	}
	return nil
}

// Reset moves the session back to idle, deleting the row unless keepData is set.
func (s *PostgresStore) Reset(ctx context.Context, key Key, keepData bool) error {
	query := pgDeleteSession
	if keepData {
		query = pgResetState
	}
	if _, err := s.db.ExecContext(ctx, query, key.ChatID, key.UserID); err != nil {
		return fmt.Errorf("state: postgres reset: %w", err)
	}
	return nil
}

// Close is a no-op: the database handle belongs to the bootstrap pipeline.
func (s *PostgresStore) Close() error {
	return nil
}
