// Package oracle asks the chat model to classify the adversary and draft the persona's
// reply. Any failure of the model call degrades to a fixed stalling verdict.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/honeypot/backend/internal/analysis/tactic"
	"github.com/zhouzirui/honeypot/backend/internal/metrics"
	"github.com/zhouzirui/honeypot/backend/internal/model/persona"
)

// DefaultTimeout bounds a single oracle call.
const DefaultTimeout = 20 * time.Second

// Config controls the adapter's behaviour.
type Config struct {
	Timeout time.Duration
}

// Adapter invokes the classification/generation oracle.
type Adapter struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	persona persona.Persona
	timeout time.Duration
	logger  zerolog.Logger
}

// NewAdapter compiles the oracle chain around chatModel. A nil chatModel yields an
// offline adapter driven by keyword heuristics.
func NewAdapter(ctx context.Context, chatModel model.ChatModel, p persona.Persona, cfg Config, logger zerolog.Logger) (*Adapter, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	adapter := &Adapter{
		persona: p,
		timeout: timeout,
		logger:  logger.With().Str("component", "oracle").Logger(),
	}

	if chatModel == nil {
		return adapter, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{message}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile oracle chain: %w", err)
	}

	adapter.chain = runnable
	return adapter, nil
}

// Online reports whether a chat model backs the adapter.
func (a *Adapter) Online() bool {
	return a != nil && a.chain != nil
}

// Analyze classifies message given the rendered history. Oracle failures (transport,
// timeout, malformed output) are logged and answered with Sentinel(); an error is
// returned only when ctx itself has been cancelled.
func (a *Adapter) Analyze(ctx context.Context, message, history string) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}

	if !a.Online() {
		return offlineVerdict(message, history), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	input := map[string]any{
		"system":  BuildSystemPrompt(a.persona, history),
		"message": strings.TrimSpace(message),
	}

	msg, err := a.chain.Invoke(callCtx, input)
	if err != nil {
		if ctx.Err() != nil {
			return Verdict{}, fmt.Errorf("oracle call abandoned: %w", ctx.Err())
		}
		reason := "invoke"
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			reason = "timeout"
		}
		return a.degrade(reason, err), nil
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return a.degrade("empty", errors.New("oracle returned no content")), nil
	}

	verdict, err := ParseVerdict(msg.Content)
	if err != nil {
		return a.degrade("malformed", err), nil
	}

	a.logger.Debug().
		Str("psychology", verdict.Psychology).
		Str("strategy", verdict.Strategy).
		Bool("trap", verdict.TriggerTrap != nil).
		Msg("oracle verdict")
	return verdict, nil
}

func (a *Adapter) degrade(reason string, err error) Verdict {
	metrics.OracleFailures.WithLabelValues(reason).Inc()
	a.logger.Warn().Err(err).Str("reason", reason).Msg("oracle call failed, using sentinel verdict")
	return Sentinel()
}

var offlineReplies = []string{
	"Oh my, that sounds very important. Could you explain it again slowly, dear?",
	"I'm not very good with these things. Is this like the coupons they send in the post?",
	"My grandson usually helps me with the computer. What exactly do you need me to do?",
	"I see, I see. And this is all quite safe, isn't it? I've heard such stories on the news.",
}

var offlineTrapReplies = map[string]string{
	"card":    "Oh dear, let me find my purse. Is this the right card? " + TokenCard,
	"name":    "Of course, my full name is " + TokenName + ". Is that what you needed?",
	"address": "I've lived at the same place for forty years: " + TokenAddress,
	"email":   "My grandson set up an email for me, I think it's " + TokenEmail,
}

func offlineVerdict(message, history string) Verdict {
	decision := tactic.Analyze(message)

	turns := 0
	if strings.TrimSpace(history) != "" {
		turns = strings.Count(history, "\n") + 1
	}
	verdict := Verdict{
		Psychology: string(decision.Psychology),
		Strategy:   string(decision.Strategy),
		Reply:      offlineReplies[turns%len(offlineReplies)],
	}

	if decision.Trap != "" {
		trap := decision.Trap
		verdict.TriggerTrap = &trap
		verdict.Reply = offlineTrapReplies[trap]
	}
	return verdict
}
