// Package honeypot exposes the conversational turn and the evidence export over HTTP.
package honeypot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/honeypot/backend/internal/handler/live"
	"github.com/zhouzirui/honeypot/backend/internal/model/session"
	"github.com/zhouzirui/honeypot/backend/internal/service/deception"
	"github.com/zhouzirui/honeypot/backend/internal/service/report"
	"github.com/zhouzirui/honeypot/backend/internal/store"
	"github.com/zhouzirui/honeypot/backend/pkg/utils"
)

const maxBodyBytes = 64 * 1024

// ReportCompiler renders the evidence log of a session.
type ReportCompiler interface {
	Compile(ctx context.Context, sessionID string) (string, error)
}

// Handler serves the honeypot endpoints.
type Handler struct {
	turns   live.TurnHandler
	reports ReportCompiler
	logger  zerolog.Logger
}

// New returns a Handler.
func New(turns live.TurnHandler, reports ReportCompiler, logger zerolog.Logger) *Handler {
	return &Handler{
		turns:   turns,
		reports: reports,
		logger:  logger.With().Str("component", "honeypot").Logger(),
	}
}

// RegisterRoutes mounts the endpoints on r. limit, when non-nil, wraps the turn
// endpoint only.
func (h *Handler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Post("/honeypot", h.handleTurn)
	})
	r.Get("/export_report", h.handleExportReport)
}

type turnRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	// ScammerID is accepted from older clients.
	ScammerID string `json:"scammer_id"`
}

func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var payload turnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := payload.SessionID
	if sessionID == "" {
		sessionID = payload.ScammerID
	}

	result, err := h.turns.HandleTurn(r.Context(), deception.Inbound{Message: payload.Message, SessionID: sessionID})
	if err != nil {
		if errors.Is(err, deception.ErrEmptyMessage) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
		utils.RespondError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleExportReport(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = session.DefaultID
	}

	text, err := h.reports.Compile(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "No active session found")
			return
		}
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("report failed")
		utils.RespondError(w, http.StatusInternalServerError, "failed to compile report")
		return
	}

	utils.RespondAttachment(w, report.Filename, text)
}
