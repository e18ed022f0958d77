package live

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/honeypot/backend/pkg/utils"
)

// DefaultHeartbeat is how often an idle event stream is kept alive.
const DefaultHeartbeat = 15 * time.Second

// EventsHandler streams turn events as Server-Sent Events.
type EventsHandler struct {
	hub       *Hub
	heartbeat time.Duration
	logger    zerolog.Logger
}

// NewEventsHandler returns an SSE handler fed by hub.
func NewEventsHandler(hub *Hub, heartbeat time.Duration, logger zerolog.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &EventsHandler{
		hub:       hub,
		heartbeat: heartbeat,
		logger:    logger.With().Str("component", "sse").Logger(),
	}
}

// ServeHTTP streams events until the client goes away. ?session_id= narrows the
// stream to one session.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	events, cancel := h.hub.Subscribe(sessionID)
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	log := h.logger.With().Str("session_id", sessionID).Logger()
	log.Debug().Msg("opening event stream")

	if !utils.SendSSEChunk(w, flusher, "status", map[string]any{"message": "stream established"}) {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("closing event stream")
			return
		case evt, ok := <-events:
			if !ok || !utils.SendSSEChunk(w, flusher, "turn", evt) {
				return
			}
		case t := <-ticker.C:
			if !utils.SendSSEChunk(w, flusher, "heartbeat", map[string]any{"time": t.UTC().Format(time.RFC3339)}) {
				return
			}
		}
	}
}
