package policy

import (
	"encoding/json"
	"fmt"
)

// EffectAllow is the only statement effect the minimizer supports.
// Deny statements would invert the meaning of removing a part, so they
// are rejected at load time instead of being silently mishandled.
const EffectAllow = "Allow"

// Document is an IAM identity-based policy document. Top-level metadata
// is carried through reconstruction verbatim.
type Document struct {
	Version    string      `json:"Version"`
	ID         string      `json:"Id,omitempty"`
	Statements []Statement `json:"Statement"`
}

// Statement is a single Allow rule granting the cross-product of its
// actions and resources. Condition is kept as raw JSON so it survives
// round-trips untouched.
type Statement struct {
	Sid       string          `json:"Sid,omitempty"`
	Effect    string          `json:"Effect"`
	Action    StringList      `json:"Action"`
	Resource  StringList      `json:"Resource"`
	Condition json.RawMessage `json:"Condition,omitempty"`
}

// StringList accepts both the scalar and the list form IAM allows for
// Action and Resource ("s3:GetObject" vs ["s3:GetObject", ...]).
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = StringList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = many
	return nil
}

// MarshalJSON emits the scalar form for single-element lists, matching
// the style most hand-written IAM documents use.
func (l StringList) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	return json.Marshal([]string(l))
}

// Validate checks the structural invariants the encoder relies on:
// present and unique Sids, Allow-only effects, non-empty action and
// resource lists.
func (d *Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Statements))
	for idx, stmt := range d.Statements {
		if stmt.Sid == "" {
			return MissingStatementIDError{Index: idx}
		}
		if _, ok := seen[stmt.Sid]; ok {
			return DuplicateStatementIDError{Sid: stmt.Sid}
		}
		seen[stmt.Sid] = struct{}{}

		if stmt.Effect != EffectAllow {
			return UnsupportedEffectError{Sid: stmt.Sid, Effect: stmt.Effect}
		}
		if len(stmt.Action) == 0 {
			return fmt.Errorf("statement '%s' has no actions", stmt.Sid)
		}
		if len(stmt.Resource) == 0 {
			return fmt.Errorf("statement '%s' has no resources", stmt.Sid)
		}
	}
	return nil
}
