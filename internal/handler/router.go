package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/honeypot/backend/internal/handler/honeypot"
	"github.com/zhouzirui/honeypot/backend/internal/handler/live"
	"github.com/zhouzirui/honeypot/backend/internal/handler/persona"
	"github.com/zhouzirui/honeypot/backend/internal/middleware"
	personaModel "github.com/zhouzirui/honeypot/backend/internal/model/persona"
	"github.com/zhouzirui/honeypot/backend/internal/store"
)

// Dependencies are the services the HTTP surface is wired to.
type Dependencies struct {
	Turns        live.TurnHandler
	Reports      honeypot.ReportCompiler
	Store        store.Store
	Hub          *live.Hub
	Personas     personaModel.Store
	PersonaID    string
	Redis        *redis.Client
	RateLimit    *middleware.RateLimiter
	OracleOnline bool
	CORSOrigins  []string
	Heartbeat    time.Duration
}

// NewRouter wires HTTP routes to core services.
func NewRouter(logger zerolog.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	hub := deps.Hub
	if hub == nil {
		hub = live.NewHub()
	}
	turns := live.Publishing(deps.Turns, hub)

	var (
		limit        func(http.Handler) http.Handler
		frameLimiter live.FrameLimiter
	)
	if deps.RateLimit != nil {
		limit = deps.RateLimit.Middleware
		frameLimiter = deps.RateLimit
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Method(http.MethodGet, "/health", &healthHandler{
		store:        deps.Store,
		redis:        deps.Redis,
		oracleOnline: deps.OracleOnline,
	})

	r.Route("/api", func(api chi.Router) {
		honeypot.New(turns, deps.Reports, logger).RegisterRoutes(api, limit)
		if deps.Personas != nil {
			persona.New(deps.Personas, deps.PersonaID).RegisterRoutes(api)
		}

		var ws http.Handler = live.NewWebSocketHandler(turns, frameLimiter, deps.CORSOrigins, logger)
		if limit != nil {
			ws = limit(ws)
		}
		api.Method(http.MethodGet, "/ws", ws)
		api.Method(http.MethodGet, "/events", live.NewEventsHandler(hub, deps.Heartbeat, logger))
	})

	return r
}
