// Command casereport exports a session's evidence log from the configured store, or
// sends a single probe turn through the engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/honeypot/backend/internal/config"
	"github.com/zhouzirui/honeypot/backend/internal/model/persona"
	"github.com/zhouzirui/honeypot/backend/internal/model/session"
	"github.com/zhouzirui/honeypot/backend/internal/service/deception"
	"github.com/zhouzirui/honeypot/backend/internal/service/oracle"
	"github.com/zhouzirui/honeypot/backend/internal/service/pii"
	"github.com/zhouzirui/honeypot/backend/internal/service/profile"
	"github.com/zhouzirui/honeypot/backend/internal/service/report"
	"github.com/zhouzirui/honeypot/backend/internal/store"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("no .env file loaded")
	}

	mode := flag.String("mode", "report", "report: export an evidence log; probe: send one message through the engine")
	sessionID := flag.String("session", session.DefaultID, "session id")
	text := flag.String("text", "", "probe message")
	outputPath := flag.String("out", "", "write the report to this file instead of stdout")
	timeout := flag.Duration("timeout", 45*time.Second, "overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open session store")
	}
	defer st.Close()

	switch *mode {
	case "report":
		err = runReport(ctx, st, *sessionID, *outputPath)
	case "probe":
		err = runProbe(ctx, st, cfg, *sessionID, *text, logger)
	default:
		flag.Usage()
		err = fmt.Errorf("unknown mode %q", *mode)
	}

	if err != nil {
		logger.Error().Err(err).Str("mode", *mode).Msg("casereport failed")
		st.Close()
		os.Exit(1)
	}
}

func runReport(ctx context.Context, st store.Store, sessionID, outputPath string) error {
	text, err := report.NewCompiler(st).Compile(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return fmt.Errorf("no session %q in store", sessionID)
	}
	if err != nil {
		return err
	}

	if outputPath == "" {
		_, err = fmt.Fprintln(os.Stdout, text)
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "report written to %s (%d bytes)\n", outputPath, len(text))
	return nil
}

func runProbe(ctx context.Context, st store.Store, cfg *config.Config, sessionID, text string, logger zerolog.Logger) error {
	if text == "" {
		return errors.New("probe mode requires -text")
	}

	p, ok := persona.NewMemoryStore(persona.Seed()).FindByID(cfg.Engine.PersonaID)
	if !ok {
		return fmt.Errorf("unknown persona %q", cfg.Engine.PersonaID)
	}

	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		var err error
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			return fmt.Errorf("init chat model: %w", err)
		}
	}

	adapter, err := oracle.NewAdapter(ctx, chatModel, p, oracle.Config{Timeout: cfg.Engine.OracleTimeout}, logger)
	if err != nil {
		return err
	}

	faker := gofakeit.New(0)
	engine := deception.NewEngine(st, profile.NewSimulator(faker), pii.NewGenerator(faker), adapter,
		deception.Options{HistoryLimit: cfg.Engine.HistoryLimit}, logger)

	start := time.Now()
	result, err := engine.HandleTurn(ctx, deception.Inbound{Message: text, SessionID: sessionID})
	if err != nil {
		return err
	}

	fmt.Printf("oracle:    %s\n", map[bool]string{true: "online", false: "offline"}[adapter.Online()])
	fmt.Printf("reply:     %s\n", result.Reply)
	fmt.Printf("risk:      %d\n", result.Risk)
	for _, note := range result.Extracted {
		fmt.Printf("extracted: %s\n", note)
	}
	fmt.Printf("intel:     %s %s (%s)\n", result.Intel.IP, result.Intel.Location, result.Intel.ISP)
	fmt.Printf("latency:   %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
