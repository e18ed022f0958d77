package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/zhouzirui/honeypot/backend/internal/config"
	"github.com/zhouzirui/honeypot/backend/internal/handler"
	"github.com/zhouzirui/honeypot/backend/internal/middleware"
	"github.com/zhouzirui/honeypot/backend/internal/model/persona"
	"github.com/zhouzirui/honeypot/backend/internal/service/deception"
	"github.com/zhouzirui/honeypot/backend/internal/service/oracle"
	"github.com/zhouzirui/honeypot/backend/internal/service/pii"
	"github.com/zhouzirui/honeypot/backend/internal/service/profile"
	"github.com/zhouzirui/honeypot/backend/internal/service/report"
	"github.com/zhouzirui/honeypot/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg.Log)
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("no .env file loaded, using system environment only")
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("honeypot backend exited")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}

// run wires the backend and serves until ctx is done. Resources opened here are
// released before it returns.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s session store: %w", cfg.Store.Driver, err)
	}
	defer st.Close()
	logger.Info().Str("driver", cfg.Store.Driver).Msg("session store ready")

	personas := persona.NewMemoryStore(persona.Seed())
	p, ok := personas.FindByID(cfg.Engine.PersonaID)
	if !ok {
		return fmt.Errorf("unknown persona %q", cfg.Engine.PersonaID)
	}

	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize chat model, continuing with offline oracle")
			chatModel = nil
		}
	} else {
		logger.Info().Msg("Ark credentials not configured, oracle runs offline")
	}

	adapter, err := oracle.NewAdapter(ctx, chatModel, p, oracle.Config{Timeout: cfg.Engine.OracleTimeout}, logger)
	if err != nil {
		return fmt.Errorf("initialize oracle: %w", err)
	}

	faker := gofakeit.New(0)
	engine := deception.NewEngine(
		st,
		profile.NewSimulator(faker),
		pii.NewGenerator(faker),
		adapter,
		deception.Options{HistoryLimit: cfg.Engine.HistoryLimit},
		logger,
	)

	var redisClient *redis.Client
	var counter middleware.Counter = middleware.NewMemoryCounter()
	if cfg.Redis.Enabled() {
		redisClient, err = newRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		counter = middleware.NewRedisCounter(redisClient)
		logger.Info().Msg("connected to Redis")
	}
	limiter := middleware.NewRateLimiter(counter, "honeypot", cfg.Redis.RateLimitPerMinute, time.Minute, logger)

	router := handler.NewRouter(logger, handler.Dependencies{
		Turns:        engine,
		Reports:      report.NewCompiler(st),
		Store:        st,
		Personas:     personas,
		PersonaID:    p.ID,
		Redis:        redisClient,
		RateLimit:    limiter,
		OracleOnline: adapter.Online(),
		CORSOrigins:  cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("env", cfg.Log.Env).
		Str("persona", p.ID).
		Bool("oracle_online", adapter.Online()).
		Msg("honeypot backend listening")
	if err := runServer(ctx, srv); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	logger = logger.Level(level).With().Timestamp().Logger()
	zlog.Logger = logger
	return logger
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
