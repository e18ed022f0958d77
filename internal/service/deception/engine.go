// Package deception runs the per-turn state machine of the honeypot: profile the
// adversary, consult the oracle, spring honey-traps and persist the exchange.
package deception

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/honeypot/backend/internal/metrics"
	"github.com/zhouzirui/honeypot/backend/internal/model/session"
	"github.com/zhouzirui/honeypot/backend/internal/service/oracle"
	"github.com/zhouzirui/honeypot/backend/internal/service/pii"
	"github.com/zhouzirui/honeypot/backend/internal/store"
)

const (
	// LeakRisk is reported for any turn that leaked synthetic data.
	LeakRisk = 99
	// MinRisk and MaxRisk bound the risk of turns without a leak.
	MinRisk = 40
	MaxRisk = 90
)

// ErrEmptyMessage is returned for inbound turns without content.
var ErrEmptyMessage = errors.New("message is required")

// Oracle classifies a turn and drafts the reply.
type Oracle interface {
	Analyze(ctx context.Context, message, history string) (oracle.Verdict, error)
}

// ProfileSource fabricates the adversary profile for a turn.
type ProfileSource interface {
	Simulate() session.Profile
}

// DataSource fabricates the synthetic data leaked by a trap.
type DataSource interface {
	Generate(category string) string
}

// RandomSource draws the risk score of turns without a leak.
type RandomSource interface {
	IntN(n int) int
}

// Inbound is one adversary message.
type Inbound struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// TurnResult is returned to the caller after a turn has been persisted.
type TurnResult struct {
	Reply     string          `json:"reply"`
	Risk      int             `json:"risk"`
	Extracted []string        `json:"extracted"`
	Intel     session.Profile `json:"scammer_intel"`
}

// Options tune an Engine. Zero values select defaults.
type Options struct {
	HistoryLimit int
	Random       RandomSource
	Now          func() time.Time
}

// Engine orchestrates a single conversational turn.
type Engine struct {
	store        store.Store
	profiles     ProfileSource
	data         DataSource
	oracle       Oracle
	random       RandomSource
	now          func() time.Time
	historyLimit int
	logger       zerolog.Logger
}

// NewEngine wires the engine's collaborators.
func NewEngine(st store.Store, profiles ProfileSource, data DataSource, o Oracle, opts Options, logger zerolog.Logger) *Engine {
	e := &Engine{
		store:        st,
		profiles:     profiles,
		data:         data,
		oracle:       o,
		random:       opts.Random,
		now:          opts.Now,
		historyLimit: opts.HistoryLimit,
		logger:       logger.With().Str("component", "deception").Logger(),
	}
	if e.random == nil {
		e.random = globalRandom{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.historyLimit <= 0 || e.historyLimit > store.DefaultHistoryLimit {
		e.historyLimit = store.DefaultHistoryLimit
	}
	return e
}

// HandleTurn processes one inbound message end to end. Storage failures are returned;
// oracle call failures have already been absorbed by the oracle.
func (e *Engine) HandleTurn(ctx context.Context, in Inbound) (*TurnResult, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = session.DefaultID
	}
	log := e.logger.With().Str("session_id", sessionID).Logger()

	profile := e.profiles.Simulate()

	startTime, err := e.store.GetOrCreateSession(ctx, sessionID, profile, e.clock())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	elapsed := int64(e.clock().Sub(startTime) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	entries, err := e.store.RecentHistory(ctx, sessionID, e.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	verdict, err := e.oracle.Analyze(ctx, message, renderHistory(entries))
	if err != nil {
		return nil, fmt.Errorf("failed to analyze message: %w", err)
	}

	reply := verdict.Reply
	var leak *string
	if category, ok := trapCategory(verdict.TriggerTrap); ok {
		fake := e.data.Generate(category)
		reply = injectData(reply, fake)
		leak = &fake
		metrics.TrapsFired.WithLabelValues(string(pii.Classify(category))).Inc()
	}

	risk := MinRisk + e.random.IntN(MaxRisk-MinRisk+1)
	if leak != nil {
		risk = LeakRisk
	}

	turn := session.Turn{
		SessionID:      sessionID,
		Timestamp:      e.clock(),
		ScammerContent: message,
		Psychology:     verdict.Psychology,
		Strategy:       verdict.Strategy,
		AgentReply:     reply,
		FakeLeak:       leak,
	}
	if err := e.store.AppendTurn(ctx, turn); err != nil {
		return nil, fmt.Errorf("failed to persist turn: %w", err)
	}

	metrics.TurnsTotal.Inc()
	metrics.TurnRisk.Observe(float64(risk))
	log.Info().
		Str("psychology", verdict.Psychology).
		Str("strategy", verdict.Strategy).
		Bool("leak", leak != nil).
		Int("risk", risk).
		Int64("elapsed_s", elapsed).
		Msg("turn handled")

	return &TurnResult{
		Reply: reply,
		Risk:  risk,
		Extracted: []string{
			"Psychology: " + verdict.Psychology,
			"Strategy: " + verdict.Strategy,
			fmt.Sprintf("⏱️ Wasted: %ds", elapsed),
		},
		Intel: profile,
	}, nil
}

// clock returns the current UTC time at the precision the stores keep.
func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

func renderHistory(entries []session.HistoryEntry) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, entry.String())
	}
	return strings.Join(lines, "\n")
}

// trapCategory reports whether the oracle asked for a trap. "null" and "None" are
// how some models spell a missing value.
func trapCategory(trap *string) (string, bool) {
	if trap == nil {
		return "", false
	}
	category := strings.TrimSpace(*trap)
	switch strings.ToLower(category) {
	case "", "null", "none":
		return "", false
	}
	return category, true
}

// injectData substitutes fake at every placeholder token in reply, or appends it when
// the reply carries none.
func injectData(reply, fake string) string {
	replaced := false
	for _, token := range oracle.Tokens {
		if strings.Contains(reply, token) {
			reply = strings.ReplaceAll(reply, token, fake)
			replaced = true
		}
	}
	if replaced {
		return reply
	}
	return reply + " " + fake
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }
