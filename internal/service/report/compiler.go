// Package report renders a session's stored intel and transcript as a plain-text
// evidence log.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/honeypot/backend/internal/metrics"
	"github.com/zhouzirui/honeypot/backend/internal/model/session"
	"github.com/zhouzirui/honeypot/backend/internal/store"
)

// Filename is the attachment name used when the report is downloaded.
const Filename = "case_evidence_log.txt"

const (
	ruleHeavy = "=================================================="
	ruleLight = "--------------------------------------------------"
)

// Source is the slice of the session store the compiler reads from.
type Source interface {
	SessionIntel(ctx context.Context, id string) (*session.Session, error)
	FullTranscript(ctx context.Context, id string) ([]session.Message, error)
}

// Compiler builds evidence reports.
type Compiler struct {
	source Source
	now    func() time.Time
	caseID func() string
}

// Option customises a Compiler.
type Option func(*Compiler)

// WithClock overrides the clock used for the DATE line.
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) { c.now = now }
}

// WithCaseID overrides the case identifier generator.
func WithCaseID(caseID func() string) Option {
	return func(c *Compiler) { c.caseID = caseID }
}

// NewCompiler returns a Compiler reading from source.
func NewCompiler(source Source, opts ...Option) *Compiler {
	c := &Compiler{
		source: source,
		now:    time.Now,
		caseID: newCaseID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile renders the report for sessionID. Unknown sessions yield an error wrapping
// store.ErrSessionNotFound.
func (c *Compiler) Compile(ctx context.Context, sessionID string) (string, error) {
	intel, err := c.source.SessionIntel(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load session %q: %w", sessionID, err)
	}

	transcript, err := c.source.FullTranscript(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load transcript for %q: %w", sessionID, err)
	}

	lines := []string{
		ruleHeavy,
		"       CONFIDENTIAL // CYBER-CRIME EVIDENCE LOG",
		ruleHeavy,
		"CASE ID:      " + c.caseID(),
		"DATE:         " + c.now().UTC().Format("2006-01-02"),
		"STATUS:       ACTIVE INTERCEPTION",
		ruleLight,
		"TARGET INTELLIGENCE:",
		"[*] IP ADDRESS:   " + intel.ScammerIP,
		"[*] GEO-LOCATION: " + intel.ScammerLocation,
		"[*] FIRST SEEN:   " + intel.StartTime.UTC().Format("2006-01-02 15:04:05") + " UTC",
		ruleHeavy + "\n",
		"TRANSCRIPT LOG:",
	}

	for _, msg := range transcript {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s",
			msg.Timestamp.UTC().Format(time.TimeOnly), strings.ToUpper(string(msg.Sender)), msg.Content))
		if note, ok := analystNote(msg); ok {
			lines = append(lines, note)
		}
		lines = append(lines, "")
	}

	lines = append(lines,
		"\n"+ruleHeavy,
		"END OF REPORT // AUTOMATED GENERATION",
		ruleHeavy,
	)

	metrics.ReportsCompiled.Inc()
	return strings.Join(lines, "\n"), nil
}

func analystNote(msg session.Message) (string, bool) {
	if msg.Sender != session.SenderScammer || msg.Psychology == nil || *msg.Psychology == "" {
		return "", false
	}
	strategy := ""
	if msg.Strategy != nil {
		strategy = *msg.Strategy
	}
	return fmt.Sprintf("      >>> ANALYST NOTE: Target appears %s. Tactic: %s.", *msg.Psychology, strategy), true
}

// newCaseID returns the first eight characters of a random UUID, upper-cased.
func newCaseID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

var _ Source = (store.Store)(nil)
