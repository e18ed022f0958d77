package live

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/honeypot/backend/internal/model/session"
	"github.com/zhouzirui/honeypot/backend/internal/service/deception"
)

type echoTurns struct{}

func (echoTurns) HandleTurn(_ context.Context, in deception.Inbound) (*deception.TurnResult, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, deception.ErrEmptyMessage
	}
	if in.Message == "explode" {
		return nil, errors.New("store offline")
	}
	return &deception.TurnResult{
		Reply:     "re: " + in.Message + " @" + in.SessionID,
		Risk:      42,
		Extracted: []string{"Psychology: Calm"},
		Intel:     session.Profile{IP: "192.0.2.1"},
	}, nil
}

func TestHubFiltersBySession(t *testing.T) {
	hub := NewHub()
	all, cancelAll := hub.Subscribe("")
	defer cancelAll()
	one, cancelOne := hub.Subscribe("s1")

	hub.Publish(Event{SessionID: "s2", Reply: "a"})
	hub.Publish(Event{SessionID: "s1", Reply: "b"})

	assert.Equal(t, "a", (<-all).Reply)
	assert.Equal(t, "b", (<-all).Reply)
	assert.Equal(t, "b", (<-one).Reply)
	assert.Len(t, one, 0)

	cancelOne()
	cancelOne()
	assert.Equal(t, 1, hub.Subscribers())
	_, open := <-one
	assert.False(t, open)
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("")
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish(Event{SessionID: "s"})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestPublishingDefaultsSession(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(session.DefaultID)
	defer cancel()

	result, err := Publishing(echoTurns{}, hub).HandleTurn(context.Background(), deception.Inbound{Message: " hi "})
	require.NoError(t, err)
	assert.Equal(t, 42, result.Risk)

	evt := <-ch
	assert.Equal(t, session.DefaultID, evt.SessionID)
	assert.Equal(t, "hi", evt.Message)

	_, err = Publishing(echoTurns{}, hub).HandleTurn(context.Background(), deception.Inbound{Message: "explode"})
	assert.Error(t, err)
	assert.Len(t, ch, 0)
}

func TestWebSocketTurns(t *testing.T) {
	srv := httptest.NewServer(NewWebSocketHandler(echoTurns{}, nil, nil, zerolog.Nop()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?session_id=room"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "hello"}))
	var result deception.TurnResult
	require.NoError(t, conn.ReadJSON(&result))
	assert.Equal(t, "re: hello @room", result.Reply)
	assert.Equal(t, "192.0.2.1", result.Intel.IP)

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "hey", "scammer_id": "legacy"}))
	require.NoError(t, conn.ReadJSON(&result))
	assert.Equal(t, "re: hey @legacy", result.Reply)

	var failure map[string]string
	require.NoError(t, conn.WriteJSON(map[string]string{"message": ""}))
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Equal(t, deception.ErrEmptyMessage.Error(), failure["error"])

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "explode"}))
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Equal(t, "failed to process message", failure["error"])
}

type budgetLimiter struct {
	mu      sync.Mutex
	allowed int
	clients []string
}

func (b *budgetLimiter) Allow(_ context.Context, clientIP string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients = append(b.clients, clientIP)
	if b.allowed == 0 {
		return false
	}
	b.allowed--
	return true
}

func TestWebSocketRateLimitsFrames(t *testing.T) {
	limiter := &budgetLimiter{allowed: 1}
	srv := httptest.NewServer(NewWebSocketHandler(echoTurns{}, limiter, nil, zerolog.Nop()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "hello"}))
	var result deception.TurnResult
	require.NoError(t, conn.ReadJSON(&result))
	assert.Equal(t, "re: hello @", result.Reply)

	var failure map[string]string
	require.NoError(t, conn.WriteJSON(map[string]string{"message": "again"}))
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Equal(t, "rate limit exceeded", failure["error"])

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Equal(t, []string{"127.0.0.1", "127.0.0.1"}, limiter.clients)
}

func TestWebSocketOriginCheck(t *testing.T) {
	check := originChecker([]string{"https://console.example"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://console.example")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}

func TestEventsStream(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewEventsHandler(hub, time.Hour, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?session_id=s1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readFrame := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				return event, data
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	event, _ := readFrame()
	require.Equal(t, "status", event)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{SessionID: "other", Reply: "skip"})
	hub.Publish(Event{SessionID: "s1", Reply: "deliver", Risk: 77})

	event, data := readFrame()
	assert.Equal(t, "turn", event)
	assert.Contains(t, data, `"reply":"deliver"`)
	assert.Contains(t, data, `"risk":77`)
}
