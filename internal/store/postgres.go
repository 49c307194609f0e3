package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/state"
)

// PostgresStore implements Store on PostgreSQL through the pgx stdlib driver.
type PostgresStore struct {
	db        *sql.DB
	sessionID string
}

// NewPostgresStore connects to dsn and applies the schema.
func NewPostgresStore(ctx context.Context, dsn, sessionID string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runPostgresMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db, sessionID: sessionID}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func runPostgresMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			phone TEXT NOT NULL,
			message TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at DESC, id DESC);

		CREATE TABLE IF NOT EXISTS whatsapp_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			is_ready BOOLEAN NOT NULL DEFAULT FALSE,
			qr_code TEXT,
			connected_at TIMESTAMPTZ,
			device_info TEXT,
			session_id TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS transitions (
			id BIGSERIAL PRIMARY KEY,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			trigger TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

func (s *PostgresStore) GetState(ctx context.Context) (ConnectionState, error) {
	var (
		cs          ConnectionState
		qr, device  sql.NullString
		connectedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT is_ready, qr_code, connected_at, device_info, session_id
		FROM whatsapp_state
		WHERE id = 1
	`).Scan(&cs.Ready, &qr, &connectedAt, &device, &cs.SessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewConnectionState(s.sessionID), nil
	}
	if err != nil {
		return ConnectionState{}, fmt.Errorf("failed to load connection state: %w", err)
	}
	if qr.Valid {
		cs.QRImage = &qr.String
	}
	if device.Valid {
		cs.DeviceInfo = &device.String
	}
	if connectedAt.Valid {
		t := connectedAt.Time
		cs.ConnectedAt = &t
	}
	return cs, nil
}

func (s *PostgresStore) SaveState(ctx context.Context, cs ConnectionState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO whatsapp_state (id, is_ready, qr_code, connected_at, device_info, session_id, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			is_ready = EXCLUDED.is_ready,
			qr_code = EXCLUDED.qr_code,
			connected_at = EXCLUDED.connected_at,
			device_info = EXCLUDED.device_info,
			session_id = EXCLUDED.session_id,
			updated_at = now()
	`, cs.Ready, cs.QRImage, cs.ConnectedAt, cs.DeviceInfo, cs.SessionID)
	if err != nil {
		return fmt.Errorf("failed to save connection state: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, phone, message string) (*MessageRecord, error) {
	rec := &MessageRecord{
		Phone:     phone,
		Message:   message,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (phone, message, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, rec.Phone, rec.Message, string(rec.Status), rec.CreatedAt).Scan(&rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) UpdateMessageStatus(ctx context.Context, id int64, status MessageStatus, errMsg *string) (*MessageRecord, error) {
	if err := checkFinalStatus(status); err != nil {
		return nil, err
	}
	if status != StatusFailed {
		errMsg = nil
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE messages
		SET status = $2, error = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING id, phone, message, status, created_at, error
	`, id, string(status), errMsg)
	rec, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.GetMessage(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrFinalStatus
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, id int64) (*MessageRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, phone, message, status, created_at, error
		FROM messages
		WHERE id = $1
	`, id)
	rec, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, limit int) ([]MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, phone, message, status, created_at, error
		FROM messages
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, normalizeLimit(limit, DefaultMessageLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	out := make([]MessageRecord, 0)
	for rows.Next() {
		rec, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LogTransition(ctx context.Context, from, to state.State, trigger string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transitions (from_state, to_state, trigger, timestamp)
		VALUES ($1, $2, $3, now())
	`, string(from), string(to), trigger)
	return err
}

func (s *PostgresStore) GetTransitionHistory(ctx context.Context, limit int) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_state, to_state, trigger, timestamp
		FROM transitions
		ORDER BY id DESC
		LIMIT $1
	`, normalizeLimit(limit, DefaultHistoryLimit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transition, 0)
	for rows.Next() {
		var t Transition
		var from, to string
		if err := rows.Scan(&t.ID, &from, &to, &t.Trigger, &t.Timestamp); err != nil {
			return nil, err
		}
		t.FromState = state.State(from)
		t.ToState = state.State(to)
		out = append(out, t)
	}
	return out, rows.Err()
}
