package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/state"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	sessionID string
}

// NewSQLiteStore creates a new SQLite-backed store.
func NewSQLiteStore(dsn, sessionID string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, sessionID: sessionID}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	migration := `
	-- Outbound messages
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		phone TEXT NOT NULL,
		message TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at DESC, id DESC);

	-- Connection state (singleton row)
	CREATE TABLE IF NOT EXISTS connection_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		is_ready BOOLEAN NOT NULL DEFAULT FALSE,
		qr_code TEXT,
		connected_at TIMESTAMP,
		device_info TEXT,
		session_id TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- State machine transitions
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_state TEXT NOT NULL,
		to_state TEXT NOT NULL,
		trigger TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL
	);
	`
	_, err := db.Exec(migration)
	return err
}

func (s *SQLiteStore) GetState(ctx context.Context) (ConnectionState, error) {
	var (
		cs          ConnectionState
		qr, device  sql.NullString
		connectedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT is_ready, qr_code, connected_at, device_info, session_id FROM connection_state WHERE id = 1",
	).Scan(&cs.Ready, &qr, &connectedAt, &device, &cs.SessionID)
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

func (s *SQLiteStore) SaveState(ctx context.Context, cs ConnectionState) error {
	var connectedAt any
	if cs.ConnectedAt != nil {
		connectedAt = cs.ConnectedAt.UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connection_state (id, is_ready, qr_code, connected_at, device_info, session_id, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			is_ready = excluded.is_ready,
			qr_code = excluded.qr_code,
			connected_at = excluded.connected_at,
			device_info = excluded.device_info,
			session_id = excluded.session_id,
			updated_at = excluded.updated_at`,
		cs.Ready, cs.QRImage, connectedAt, cs.DeviceInfo, cs.SessionID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save connection state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateMessage(ctx context.Context, phone, message string) (*MessageRecord, error) {
	rec := &MessageRecord{
		Phone:     phone,
		Message:   message,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (phone, message, status, created_at) VALUES (?, ?, ?, ?)",
		rec.Phone, rec.Message, string(rec.Status), rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read message id: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) UpdateMessageStatus(ctx context.Context, id int64, status MessageStatus, errMsg *string) (*MessageRecord, error) {
	if err := checkFinalStatus(status); err != nil {
		return nil, err
	}
	if status != StatusFailed {
		errMsg = nil
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE messages SET status = ?, error = ? WHERE id = ? AND status = ?",
		string(status), errMsg, id, string(StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := s.GetMessage(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrFinalStatus
	}
	return s.GetMessage(ctx, id)
}

func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*MessageRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, phone, message, status, created_at, error FROM messages WHERE id = ?", id)
	rec, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, limit int) ([]MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, phone, message, status, created_at, error FROM messages ORDER BY created_at DESC, id DESC LIMIT ?",
		normalizeLimit(limit, DefaultMessageLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]MessageRecord, 0)
	for rows.Next() {
		rec, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *rec)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) LogTransition(ctx context.Context, from, to state.State, trigger string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO transitions (from_state, to_state, trigger, timestamp) VALUES (?, ?, ?, ?)",
		string(from), string(to), trigger, time.Now().UTC(),
	)
	return err
}

func (s *SQLiteStore) GetTransitionHistory(ctx context.Context, limit int) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, from_state, to_state, trigger, timestamp FROM transitions ORDER BY id DESC LIMIT ?",
		normalizeLimit(limit, DefaultHistoryLimit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transitions := make([]Transition, 0)
	for rows.Next() {
		var t Transition
		var from, to string
		if err := rows.Scan(&t.ID, &from, &to, &t.Trigger, &t.Timestamp); err != nil {
			return nil, err
		}
		t.FromState = state.State(from)
		t.ToState = state.State(to)
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*MessageRecord, error) {
	var (
		rec    MessageRecord
		status string
		errMsg sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Phone, &rec.Message, &status, &rec.CreatedAt, &errMsg); err != nil {
		return nil, err
	}
	rec.Status = MessageStatus(status)
	if errMsg.Valid {
		rec.Error = &errMsg.String
	}
	return &rec, nil
}
