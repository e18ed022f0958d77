package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/zhouzirui/honeypot/backend/internal/model/session"
)

// MemoryStore keeps sessions in process memory. Suitable for tests and local demos.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
	messages map[string][]session.Message
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]session.Session),
		messages: make(map[string][]session.Message),
	}
}

// GetOrCreateSession implements Store.
func (s *MemoryStore) GetOrCreateSession(_ context.Context, id string, profile session.Profile, now time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[id]; ok {
		return existing.StartTime, nil
	}

	created := session.NewSession(id, profile, now)
	s.sessions[id] = created
	s.messages[id] = make([]session.Message, 0, 16)
	return created.StartTime, nil
}

// RecentHistory implements Store. The window is cut from transcript order, the same
// (timestamp, insertion) order FullTranscript returns.
func (s *MemoryStore) RecentHistory(_ context.Context, id string, limit int) ([]session.HistoryEntry, error) {
	limit = normalizeLimit(limit)

	s.mu.RLock()
	messages := sortedCopy(s.messages[id])
	s.mu.RUnlock()

	start := len(messages) - limit
	if start < 0 {
		start = 0
	}

	history := make([]session.HistoryEntry, 0, len(messages)-start)
	for _, msg := range messages[start:] {
		history = append(history, session.HistoryEntry{Sender: msg.Sender, Content: msg.Content})
	}
	return history, nil
}

// AppendTurn implements Store.
func (s *MemoryStore) AppendTurn(_ context.Context, turn session.Turn) error {
	pair := turn.Messages(newMessageID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[turn.SessionID]; !ok {
		return ErrSessionNotFound
	}

	s.messages[turn.SessionID] = append(s.messages[turn.SessionID], pair[0], pair[1])
	return nil
}

// FullTranscript implements Store.
func (s *MemoryStore) FullTranscript(_ context.Context, id string) ([]session.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedCopy(s.messages[id]), nil
}

// sortedCopy orders messages by timestamp; the stable sort keeps insertion order,
// the equivalent of seq, for equal timestamps.
func sortedCopy(messages []session.Message) []session.Message {
	copied := make([]session.Message, len(messages))
	copy(copied, messages)
	slices.SortStableFunc(copied, func(a, b session.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return copied
}

// SessionIntel implements Store.
func (s *MemoryStore) SessionIntel(_ context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &found, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
