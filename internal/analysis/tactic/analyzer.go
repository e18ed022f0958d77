// Package tactic scores adversary messages with keyword heuristics. It backs the
// analysis oracle when no chat model is configured.
package tactic

import (
	"strings"
)

// Psychology labels the adversary's emotional register.
type Psychology string

const (
	Calm        Psychology = "Calm"
	Aggressive  Psychology = "Aggressive"
	Desperate   Psychology = "Desperate"
	Urgent      Psychology = "Urgent"
	Flattering  Psychology = "Flattering"
	Threatening Psychology = "Threatening"
)

// Strategy labels the manipulation tactic.
type Strategy string

const (
	General       Strategy = "General"
	PrizeScam     Strategy = "Prize/Lottery scam"
	TechSupport   Strategy = "Tech support scam"
	Romance       Strategy = "Romance scam"
	Investment    Strategy = "Investment/Crypto scam"
	Impersonation Strategy = "Authority impersonation"
	AdvanceFee    Strategy = "Advance-fee fraud"
)

// Decision is the heuristic verdict for one message.
type Decision struct {
	Psychology Psychology
	Strategy   Strategy
	// Trap is the requested data category ("card", "name", "address", "email") or "".
	Trap  string
	Score int
}

var psychologyBuckets = map[Psychology][]string{
	Aggressive:  {"now!", "do it", "stupid", "idiot", "listen to me", "hurry up", "last warning"},
	Desperate:   {"please help", "i beg", "i need", "desperate", "no choice", "my family"},
	Urgent:      {"urgent", "immediately", "right now", "today only", "expires", "within 24 hours", "asap"},
	Flattering:  {"dear", "my friend", "lucky", "special", "chosen", "congratulations", "beautiful"},
	Threatening: {"police", "arrest", "lawsuit", "suspended", "blocked", "legal action", "penalty"},
}

var strategyBuckets = map[Strategy][]string{
	PrizeScam:     {"prize", "lottery", "winner", "won", "reward", "gift card", "claim"},
	TechSupport:   {"virus", "microsoft", "remote access", "anydesk", "teamviewer", "computer is infected", "support team"},
	Romance:       {"love", "darling", "sweetheart", "marry", "lonely", "my heart"},
	Investment:    {"bitcoin", "crypto", "investment", "profit", "returns", "trading", "usdt", "wallet"},
	Impersonation: {"irs", "tax", "bank officer", "customs", "government", "official", "police"},
	AdvanceFee:    {"processing fee", "transfer fee", "inheritance", "release the funds", "clearance"},
}

// Ordered like the synthetic data rules so the category resolves identically.
var trapRequests = []struct {
	category string
	keywords []string
}{
	{category: "card", keywords: []string{"card", "bank", "account number", "cvv", "routing", "iban"}},
	{category: "name", keywords: []string{"your name", "full name", "who are you"}},
	{category: "address", keywords: []string{"address", "where do you live", "zip code"}},
	{category: "email", keywords: []string{"email", "e-mail"}},
}

// Analyze classifies a single adversary message.
func Analyze(message string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(message))
	if normalized == "" {
		return Decision{Psychology: Calm, Strategy: General}
	}

	psychology, psychScore := bestLabel(normalized, psychologyBuckets, Calm)
	strategy, strategyScore := bestLabel(normalized, strategyBuckets, General)

	// Shouting reads as aggression even without keywords.
	if exclamations := strings.Count(message, "!"); exclamations >= 2 && psychScore < exclamations {
		psychology = Aggressive
		psychScore = exclamations
	}

	return Decision{
		Psychology: psychology,
		Strategy:   strategy,
		Trap:       requestedCategory(normalized),
		Score:      psychScore + strategyScore,
	}
}

func bestLabel[L ~string](normalized string, buckets map[L][]string, fallback L) (L, int) {
	best := fallback
	bestScore := 0
	for label, keywords := range buckets {
		score := 0
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				score += 3
			}
		}
		// Ties resolve lexically so results do not depend on map iteration order.
		if score > bestScore || (score == bestScore && score > 0 && label < best) {
			best = label
			bestScore = score
		}
	}
	return best, bestScore
}

func requestedCategory(normalized string) string {
	for _, req := range trapRequests {
		for _, kw := range req.keywords {
			if strings.Contains(normalized, kw) {
				return req.category
			}
		}
	}
	return ""
}
