package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"nfa/internal/query"
)

// ParseDirective extracts a Directive from the agent's reply, tolerating
// markdown code fences around the JSON.
func ParseDirective(reply string) (*query.Directive, error) {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var dir query.Directive
	if err := json.Unmarshal([]byte(s), &dir); err != nil {
		return nil, fmt.Errorf("agent: unparseable directive: %w (reply: %.200s)", err, s)
	}

	dir.Op = strings.ToLower(strings.TrimSpace(dir.Op))
	if dir.Op == "" {
		// Tolerate omitted op when the intent is unambiguous.
		switch {
		case dir.Plan != nil && dir.Answer == "":
			dir.Op = "run"
		case dir.Answer != "":
			dir.Op = "final"
		default:
			return nil, fmt.Errorf("agent: directive has neither op, plan nor answer")
		}
	}
	return &dir, nil
}
