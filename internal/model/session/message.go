package session

import (
	"fmt"
	"time"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderScammer Sender = "Scammer"
	SenderAgent   Sender = "Agent"
)

// TimestampLayout is a fixed-width ISO-8601 UTC layout, so stored timestamps sort lexically.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Message is one append-only transcript row.
type Message struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	Timestamp      time.Time `json:"timestamp"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	Psychology     *string   `json:"psychology,omitempty"`
	Strategy       *string   `json:"strategy,omitempty"`
	FakeDataLeaked *string   `json:"fakeDataLeaked,omitempty"`
}

// HistoryEntry is the conversational-context view of a message.
type HistoryEntry struct {
	Sender  Sender
	Content string
}

// String renders the entry as "{sender}: {content}".
func (h HistoryEntry) String() string {
	return fmt.Sprintf("%s: %s", h.Sender, h.Content)
}

// Turn carries both sides of one exchange. Stores persist it as a Scammer row followed
// by an Agent row sharing Timestamp.
type Turn struct {
	SessionID      string
	Timestamp      time.Time
	ScammerContent string
	Psychology     string
	Strategy       string
	AgentReply     string
	FakeLeak       *string
}

// Messages expands the turn into its two transcript rows, Scammer first.
func (t Turn) Messages(newID func() string) [2]Message {
	ts := t.Timestamp.UTC()
	psychology := t.Psychology
	strategy := t.Strategy
	return [2]Message{
		{
			ID:         newID(),
			SessionID:  t.SessionID,
			Timestamp:  ts,
			Sender:     SenderScammer,
			Content:    t.ScammerContent,
			Psychology: &psychology,
			Strategy:   &strategy,
		},
		{
			ID:             newID(),
			SessionID:      t.SessionID,
			Timestamp:      ts,
			Sender:         SenderAgent,
			Content:        t.AgentReply,
			FakeDataLeaked: t.FakeLeak,
		},
	}
}

// FormatTimestamp renders ts in TimestampLayout.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value written by FormatTimestamp, falling back to RFC 3339.
func ParseTimestamp(raw string) (time.Time, error) {
	ts, err := time.Parse(TimestampLayout, raw)
	if err == nil {
		return ts.UTC(), nil
	}
	ts, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return ts.UTC(), nil
}
