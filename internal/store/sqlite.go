package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhouzirui/honeypot/backend/internal/model/session"
)

const sqliteBackend = "sqlite"

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// If dbPath is empty, defaults to "./data/honeypot.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/honeypot.db"
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite has a single writer; one connection serializes writers without lock errors.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		start_time TEXT NOT NULL,
		scammer_ip TEXT NOT NULL DEFAULT '',
		scammer_loc TEXT NOT NULL DEFAULT '',
		scammer_lat REAL NOT NULL DEFAULT 0,
		scammer_lng REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		session_id TEXT NOT NULL REFERENCES sessions(session_id),
		timestamp TEXT NOT NULL,
		sender TEXT NOT NULL CHECK (sender IN ('Scammer', 'Agent')),
		content TEXT NOT NULL,
		psychology TEXT,
		strategy TEXT,
		fake_data_leaked TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session_order ON messages(session_id, timestamp, seq);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetOrCreateSession implements Store with an insert-if-absent on the primary key.
func (s *SQLiteStore) GetOrCreateSession(ctx context.Context, id string, profile session.Profile, now time.Time) (time.Time, error) {
	defer observe(sqliteBackend, "get_or_create_session")()

	created := session.NewSession(id, profile, now)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, start_time, scammer_ip, scammer_loc, scammer_lat, scammer_lng)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`, created.ID, session.FormatTimestamp(created.StartTime), created.ScammerIP, created.ScammerLocation, created.ScammerLat, created.ScammerLng)
	if err != nil {
		return time.Time{}, fmt.Errorf("insert session: %w", err)
	}

	var raw string
	if err := s.db.QueryRowContext(ctx, `SELECT start_time FROM sessions WHERE session_id = ?`, id).Scan(&raw); err != nil {
		return time.Time{}, fmt.Errorf("read session start: %w", err)
	}
	return session.ParseTimestamp(raw)
}

// RecentHistory implements Store.
func (s *SQLiteStore) RecentHistory(ctx context.Context, id string, limit int) ([]session.HistoryEntry, error) {
	defer observe(sqliteBackend, "recent_history")()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sender, content FROM messages
		WHERE session_id = ?
		ORDER BY timestamp DESC, seq DESC
		LIMIT ?
	`, id, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var newestFirst []session.HistoryEntry
	for rows.Next() {
		var entry session.HistoryEntry
		var sender string
		if err := rows.Scan(&sender, &entry.Content); err != nil {
			return nil, err
		}
		entry.Sender = session.Sender(sender)
		newestFirst = append(newestFirst, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reverse(newestFirst), nil
}

// AppendTurn implements Store. Both rows commit together or not at all.
func (s *SQLiteStore) AppendTurn(ctx context.Context, turn session.Turn) error {
	defer observe(sqliteBackend, "append_turn")()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin turn: %w", err)
	}
	defer tx.Rollback()

	for _, msg := range turn.Messages(newMessageID) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, session_id, timestamp, sender, content, psychology, strategy, fake_data_leaked)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, msg.ID, msg.SessionID, session.FormatTimestamp(msg.Timestamp), string(msg.Sender), msg.Content,
			nullString(msg.Psychology), nullString(msg.Strategy), nullString(msg.FakeDataLeaked))
		if err != nil {
			return fmt.Errorf("insert %s message: %w", msg.Sender, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	return nil
}

// FullTranscript implements Store.
func (s *SQLiteStore) FullTranscript(ctx context.Context, id string) ([]session.Message, error) {
	defer observe(sqliteBackend, "full_transcript")()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, timestamp, sender, content, psychology, strategy, fake_data_leaked
		FROM messages
		WHERE session_id = ?
		ORDER BY timestamp ASC, seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var messages []session.Message
	for rows.Next() {
		var (
			msg                            session.Message
			ts, sender                     string
			psychology, strategy, fakeLeak sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &ts, &sender, &msg.Content, &psychology, &strategy, &fakeLeak); err != nil {
			return nil, err
		}
		parsed, err := session.ParseTimestamp(ts)
		if err != nil {
			return nil, err
		}
		msg.Timestamp = parsed
		msg.Sender = session.Sender(sender)
		msg.Psychology = fromNullString(psychology)
		msg.Strategy = fromNullString(strategy)
		msg.FakeDataLeaked = fromNullString(fakeLeak)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// SessionIntel implements Store.
func (s *SQLiteStore) SessionIntel(ctx context.Context, id string) (*session.Session, error) {
	defer observe(sqliteBackend, "session_intel")()

	found := &session.Session{}
	var start string
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, start_time, scammer_ip, scammer_loc, scammer_lat, scammer_lng
		FROM sessions WHERE session_id = ?
	`, id).Scan(
		&found.ID,
		&start,
		&found.ScammerIP,
		&found.ScammerLocation,
		&found.ScammerLat,
		&found.ScammerLng,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	found.StartTime, err = session.ParseTimestamp(start)
	if err != nil {
		return nil, err
	}
	return found, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return strPtr(ns.String)
}

func reverse(entries []session.HistoryEntry) []session.HistoryEntry {
	out := make([]session.HistoryEntry, len(entries))
	for i, entry := range entries {
		out[len(entries)-1-i] = entry
	}
	return out
}
