package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Verdict is the structured analysis of one adversary turn.
type Verdict struct {
	Psychology  string  `json:"psychology"`
	Strategy    string  `json:"strategy"`
	Reply       string  `json:"reply"`
	TriggerTrap *string `json:"trigger_trap"`
}

// SentinelReply keeps the adversary engaged while the oracle is unavailable.
const SentinelReply = "I'm sorry, my computer is acting up. Could you say that again?"

// Sentinel is the verdict returned whenever the oracle call fails.
func Sentinel() Verdict {
	return Verdict{
		Psychology: "Unknown",
		Strategy:   "General",
		Reply:      SentinelReply,
	}
}

var verdictFields = []string{"psychology", "strategy", "reply", "trigger_trap"}

// ErrMalformedVerdict marks oracle output that does not match the verdict shape.
var ErrMalformedVerdict = errors.New("malformed oracle verdict")

// ParseVerdict extracts the first JSON object from content and requires exactly the
// four verdict fields. psychology, strategy and reply must be strings (reply non-blank);
// trigger_trap must be a string or null.
func ParseVerdict(content string) (Verdict, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return Verdict{}, fmt.Errorf("%w: missing json object", ErrMalformedVerdict)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &fields); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if len(fields) != len(verdictFields) {
		return Verdict{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedVerdict, len(verdictFields), len(fields))
	}
	for _, name := range verdictFields {
		if _, ok := fields[name]; !ok {
			return Verdict{}, fmt.Errorf("%w: missing field %q", ErrMalformedVerdict, name)
		}
	}

	var v Verdict
	for name, dst := range map[string]*string{
		"psychology": &v.Psychology,
		"strategy":   &v.Strategy,
		"reply":      &v.Reply,
	} {
		if err := decodeString(fields[name], dst); err != nil {
			return Verdict{}, fmt.Errorf("%w: field %q: %v", ErrMalformedVerdict, name, err)
		}
	}
	if strings.TrimSpace(v.Reply) == "" {
		return Verdict{}, fmt.Errorf("%w: empty reply", ErrMalformedVerdict)
	}

	rawTrap := fields["trigger_trap"]
	if string(rawTrap) != "null" {
		var trap string
		if err := decodeString(rawTrap, &trap); err != nil {
			return Verdict{}, fmt.Errorf("%w: field %q: %v", ErrMalformedVerdict, "trigger_trap", err)
		}
		v.TriggerTrap = &trap
	}

	return v, nil
}

func decodeString(raw json.RawMessage, dst *string) error {
	if string(raw) == "null" {
		return errors.New("must be a string, got null")
	}
	return json.Unmarshal(raw, dst)
}
