package schema

import (
	"SignalFuse/internal/domain/models"
)

// Schema classifies a raw message as well-formed or not. Implementations
// must be pure: no side effects, same answer for the same input.
type Schema interface {
	Validate(msg models.RawMessage) bool
}

// Func adapts a plain predicate into a Schema.
type Func func(models.RawMessage) bool

func (f Func) Validate(msg models.RawMessage) bool { return f(msg) }

// FieldRule describes one expected field. Kind is one of "string",
// "number", "bool", "any". Optional fields only fail on a kind mismatch
// when present.
type FieldRule struct {
	Field    string `yaml:"field" validate:"required"`
	Kind     string `yaml:"kind" default:"any" validate:"oneof=string number bool any"`
	Optional bool   `yaml:"optional"`
}

// DefaultRules is the rule set used when none is configured: a string
// symbol must be present, signal fields stay optional but typed.
func DefaultRules() []FieldRule {
	return []FieldRule{
		{Field: "symbol", Kind: "string"},
		{Field: "signal_alpha", Kind: "any", Optional: true},
		{Field: "beta_signal", Kind: "any", Optional: true},
		{Field: "momentum_signal", Kind: "any", Optional: true},
		{Field: "anomaly_detected", Kind: "any", Optional: true},
	}
}

// RuleSchema validates a message against a configured rule set.
type RuleSchema struct {
	rules []FieldRule
}

func NewRuleSchema(rules []FieldRule) *RuleSchema {
	return &RuleSchema{rules: rules}
}

func (s *RuleSchema) Validate(msg models.RawMessage) bool {
	if msg == nil {
		return false
	}
	for _, r := range s.rules {
		v, ok := msg[r.Field]
		if !ok {
			if r.Optional {
				continue
			}
			return false
		}
		if !kindMatches(r.Kind, v) {
			return false
		}
	}
	return true
}

func kindMatches(kind string, v any) bool {
	switch kind {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case "bool":
		_, ok := v.(bool)
		return ok
	default:
		// "any" and unknown kinds accept everything present
		return true
	}
}
