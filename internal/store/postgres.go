package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhouzirui/honeypot/backend/internal/model/session"
)

const postgresBackend = "postgres"

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool and ensures
// the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init postgres schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			start_time TIMESTAMPTZ NOT NULL,
			scammer_ip TEXT NOT NULL DEFAULT '',
			scammer_loc TEXT NOT NULL DEFAULT '',
			scammer_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
			scammer_lng DOUBLE PRECISION NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS messages (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			session_id TEXT NOT NULL REFERENCES sessions(session_id),
			timestamp TIMESTAMPTZ NOT NULL,
			sender TEXT NOT NULL CHECK (sender IN ('Scammer', 'Agent')),
			content TEXT NOT NULL,
			psychology TEXT,
			strategy TEXT,
			fake_data_leaked TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session_order ON messages(session_id, timestamp, seq);
	`)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetOrCreateSession implements Store with an insert-if-absent on the primary key.
func (s *PostgresStore) GetOrCreateSession(ctx context.Context, id string, profile session.Profile, now time.Time) (time.Time, error) {
	defer observe(postgresBackend, "get_or_create_session")()

	created := session.NewSession(id, profile, now)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, start_time, scammer_ip, scammer_loc, scammer_lat, scammer_lng)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO NOTHING
	`, created.ID, created.StartTime, created.ScammerIP, created.ScammerLocation, created.ScammerLat, created.ScammerLng)
	if err != nil {
		return time.Time{}, fmt.Errorf("insert session: %w", err)
	}

	var start time.Time
	if err := s.pool.QueryRow(ctx, `SELECT start_time FROM sessions WHERE session_id = $1`, id).Scan(&start); err != nil {
		return time.Time{}, fmt.Errorf("read session start: %w", err)
	}
	return start.UTC(), nil
}

// RecentHistory implements Store.
func (s *PostgresStore) RecentHistory(ctx context.Context, id string, limit int) ([]session.HistoryEntry, error) {
	defer observe(postgresBackend, "recent_history")()

	rows, err := s.pool.Query(ctx, `
		SELECT sender, content FROM messages
		WHERE session_id = $1
		ORDER BY timestamp DESC, seq DESC
		LIMIT $2
	`, id, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var newestFirst []session.HistoryEntry
	for rows.Next() {
		var sender, content string
		if err := rows.Scan(&sender, &content); err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, session.HistoryEntry{Sender: session.Sender(sender), Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reverse(newestFirst), nil
}

// AppendTurn implements Store. Both rows commit together or not at all.
func (s *PostgresStore) AppendTurn(ctx context.Context, turn session.Turn) error {
	defer observe(postgresBackend, "append_turn")()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin turn: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serializes turns of one session so each Scammer/Agent pair gets adjacent seq values.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, turn.SessionID); err != nil {
		return fmt.Errorf("lock session: %w", err)
	}

	for _, msg := range turn.Messages(newMessageID) {
		_, err := tx.Exec(ctx, `
			INSERT INTO messages (id, session_id, timestamp, sender, content, psychology, strategy, fake_data_leaked)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, msg.ID, msg.SessionID, msg.Timestamp, string(msg.Sender), msg.Content, msg.Psychology, msg.Strategy, msg.FakeDataLeaked)
		if err != nil {
			return fmt.Errorf("insert %s message: %w", msg.Sender, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	return nil
}

// FullTranscript implements Store.
func (s *PostgresStore) FullTranscript(ctx context.Context, id string) ([]session.Message, error) {
	defer observe(postgresBackend, "full_transcript")()

	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, timestamp, sender, content, psychology, strategy, fake_data_leaked
		FROM messages
		WHERE session_id = $1
		ORDER BY timestamp ASC, seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var messages []session.Message
	for rows.Next() {
		var msg session.Message
		var sender string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Timestamp, &sender, &msg.Content, &msg.Psychology, &msg.Strategy, &msg.FakeDataLeaked); err != nil {
			return nil, err
		}
		msg.Timestamp = msg.Timestamp.UTC()
		msg.Sender = session.Sender(sender)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// SessionIntel implements Store.
func (s *PostgresStore) SessionIntel(ctx context.Context, id string) (*session.Session, error) {
	defer observe(postgresBackend, "session_intel")()

	found := &session.Session{}
	err := s.pool.QueryRow(ctx, `
		SELECT session_id, start_time, scammer_ip, scammer_loc, scammer_lat, scammer_lng
		FROM sessions WHERE session_id = $1
	`, id).Scan(
		&found.ID,
		&found.StartTime,
		&found.ScammerIP,
		&found.ScammerLocation,
		&found.ScammerLat,
		&found.ScammerLng,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	found.StartTime = found.StartTime.UTC()
	return found, nil
}
