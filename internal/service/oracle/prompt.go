package oracle

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/honeypot/backend/internal/model/persona"
)

// Placeholder tokens the persona may emit instead of real data.
const (
	TokenCard    = "[GENERATE_CARD]"
	TokenName    = "[GENERATE_NAME]"
	TokenData    = "[GENERATE_DATA]"
	TokenAddress = "[GENERATE_ADDRESS]"
	TokenEmail   = "[GENERATE_EMAIL]"
	TokenBank    = "[GENERATE_BANK]"
)

// Tokens lists every placeholder the engine substitutes.
var Tokens = []string{TokenCard, TokenName, TokenData, TokenAddress, TokenEmail, TokenBank}

// BuildSystemPrompt renders the persona, rules and JSON output contract with the
// conversation history appended.
func BuildSystemPrompt(p persona.Persona, history string) string {
	if strings.TrimSpace(history) == "" {
		history = "(no previous messages)"
	}

	rules := make([]string, 0, len(p.Rules))
	for i, rule := range p.Rules {
		rules = append(rules, fmt.Sprintf("%d. %s", i+1, rule))
	}

	return fmt.Sprintf(`You are an advanced Cyber-Counterintelligence Agent acting as a 'Honey Pot'.

YOUR PERSONA:
You are %s, a %s. Your tone is %s.
%s
Traits: %s

RULES:
%s

TASK:
1. ANALYZE: Determine the scammer's 'Psychology' (e.g., Aggressive, Desperate) and 'Strategy'.
2. TRAP: If they ask for personal info (Bank, Name, Email), output a placeholder like %s or %s.
3. REPLY: Generate the response based on the Persona.

OUTPUT FORMAT (JSON ONLY, exactly these four fields):
{
    "psychology": "Analysis of their mood",
    "strategy": "What scam tactic they are using",
    "reply": "Your message to them",
    "trigger_trap": null or "card/name/address/bank"
}

Conversation History:
%s`,
		p.Name,
		p.Title,
		p.Tone,
		p.PromptHint,
		strings.Join(p.Traits, ", "),
		strings.Join(rules, "\n"),
		TokenCard,
		TokenName,
		history,
	)
}
