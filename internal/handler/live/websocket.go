package live

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/honeypot/backend/internal/middleware"
	"github.com/zhouzirui/honeypot/backend/internal/service/deception"
)

const (
	writeWait      = 10 * time.Second
	maxFrameBytes  = 16 * 1024
	defaultOrigins = "*"
)

type inboundFrame struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	ScammerID string `json:"scammer_id"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// FrameLimiter decides whether a client may submit another turn.
type FrameLimiter interface {
	Allow(ctx context.Context, clientIP string) bool
}

// WebSocketHandler lets a client hold a conversation over one websocket. Each text
// frame is one turn; each reply frame is the turn result.
type WebSocketHandler struct {
	turns    TurnHandler
	limiter  FrameLimiter
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewWebSocketHandler returns a handler accepting connections from allowedOrigins.
// An empty list or "*" accepts any origin. A nil limiter admits every frame.
func NewWebSocketHandler(turns TurnHandler, limiter FrameLimiter, allowedOrigins []string, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		turns:   turns,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With().Str("component", "websocket").Logger(),
	}
}

// ServeHTTP upgrades the connection and serves turns until the client disconnects.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	defaultSession := r.URL.Query().Get("session_id")
	clientIP := middleware.RealIP(r)
	h.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("websocket connected")

	ctx := r.Context()
	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		in := deception.Inbound{Message: frame.Message, SessionID: frame.SessionID}
		if in.SessionID == "" {
			in.SessionID = frame.ScammerID
		}
		if in.SessionID == "" {
			in.SessionID = defaultSession
		}

		var reply any
		if h.limiter != nil && !h.limiter.Allow(ctx, clientIP) {
			reply = errorFrame{Error: "rate limit exceeded"}
			if !h.write(conn, reply) {
				return
			}
			continue
		}

		result, err := h.turns.HandleTurn(ctx, in)
		switch {
		case errors.Is(err, deception.ErrEmptyMessage):
			reply = errorFrame{Error: err.Error()}
		case err != nil:
			h.logger.Error().Err(err).Str("session_id", in.SessionID).Msg("turn failed")
			reply = errorFrame{Error: "failed to process message"}
		default:
			reply = result
		}

		if !h.write(conn, reply) {
			return
		}
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, v any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(v); err != nil {
		h.logger.Warn().Err(err).Msg("websocket write failed")
		return false
	}
	return true
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == defaultOrigins {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
