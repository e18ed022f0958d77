// Package store persists honeypot sessions and their append-only transcripts.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/zhouzirui/honeypot/backend/internal/metrics"
	"github.com/zhouzirui/honeypot/backend/internal/model/session"
)

// DefaultHistoryLimit bounds RecentHistory when callers pass a non-positive limit.
const DefaultHistoryLimit = 5

// ErrSessionNotFound is returned when no session row exists for an id.
var ErrSessionNotFound = errors.New("session not found")

// Store is the durable record of sessions and transcripts. It is the only shared
// mutable resource of the engine; implementations must be safe for concurrent use.
type Store interface {
	// GetOrCreateSession returns the stored start time for id, inserting a row with the
	// given profile snapshot first if none exists. Concurrent calls for the same unseen
	// id create exactly one row.
	GetOrCreateSession(ctx context.Context, id string, profile session.Profile, now time.Time) (time.Time, error)
	// RecentHistory returns up to limit most recent messages, oldest first.
	RecentHistory(ctx context.Context, id string, limit int) ([]session.HistoryEntry, error)
	// AppendTurn writes the Scammer row then the Agent row atomically.
	AppendTurn(ctx context.Context, turn session.Turn) error
	// FullTranscript returns every message of the session in chronological order.
	FullTranscript(ctx context.Context, id string) ([]session.Message, error)
	// SessionIntel returns the session row or ErrSessionNotFound.
	SessionIntel(ctx context.Context, id string) (*session.Session, error)

	Ping(ctx context.Context) error
	Close() error
}

func newMessageID() string {
	return ulid.Make().String()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}

// observe records the latency of a store operation.
func observe(backend, op string) func() {
	start := time.Now()
	return func() {
		metrics.StoreLatency.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	}
}

func strPtr(s string) *string {
	return &s
}
