// Package live pushes honeypot turns to connected dashboards and lets clients drive
// turns over a websocket.
package live

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/honeypot/backend/internal/model/session"
	"github.com/zhouzirui/honeypot/backend/internal/service/deception"
)

const subscriberBuffer = 16

// TurnHandler runs one honeypot turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, in deception.Inbound) (*deception.TurnResult, error)
}

// Event is published after every successfully persisted turn.
type Event struct {
	SessionID string          `json:"session_id"`
	Message   string          `json:"message"`
	Reply     string          `json:"reply"`
	Risk      int             `json:"risk"`
	Extracted []string        `json:"extracted"`
	Intel     session.Profile `json:"scammer_intel"`
	Timestamp time.Time       `json:"timestamp"`
}

// Hub fans turn events out to subscribers. Slow subscribers miss events rather than
// stall the publisher.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscriber
}

type subscriber struct {
	sessionID string
	ch        chan Event
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]subscriber)}
}

// Subscribe registers for events of sessionID, or all sessions when sessionID is
// empty. The returned cancel func must be called to release the subscription.
func (h *Hub) Subscribe(sessionID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = subscriber{sessionID: sessionID, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers evt to every matching subscriber without blocking.
func (h *Hub) Publish(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.sessionID != "" && sub.sessionID != evt.SessionID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Subscribers reports the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publishing wraps next so every successful turn is published to hub.
func Publishing(next TurnHandler, hub *Hub) TurnHandler {
	return &publishingHandler{next: next, hub: hub}
}

type publishingHandler struct {
	next TurnHandler
	hub  *Hub
}

func (p *publishingHandler) HandleTurn(ctx context.Context, in deception.Inbound) (*deception.TurnResult, error) {
	result, err := p.next.HandleTurn(ctx, in)
	if err != nil {
		return nil, err
	}

	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = session.DefaultID
	}
	p.hub.Publish(Event{
		SessionID: sessionID,
		Message:   strings.TrimSpace(in.Message),
		Reply:     result.Reply,
		Risk:      result.Risk,
		Extracted: result.Extracted,
		Intel:     result.Intel,
		Timestamp: time.Now().UTC(),
	})
	return result, nil
}
