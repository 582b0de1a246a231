package schema

import (
	"testing"

	"SignalFuse/internal/domain/models"
)

func TestRuleSchemaRequiredField(t *testing.T) {
	s := NewRuleSchema([]FieldRule{{Field: "symbol", Kind: "string"}})

	if s.Validate(models.RawMessage{}) {
		t.Fatalf("missing required field should fail")
	}
	if !s.Validate(models.RawMessage{"symbol": "AAPL"}) {
		t.Fatalf("present required field should pass")
	}
	if s.Validate(models.RawMessage{"symbol": 42.0}) {
		t.Fatalf("wrong kind should fail")
	}
}

func TestRuleSchemaOptionalField(t *testing.T) {
	s := NewRuleSchema([]FieldRule{{Field: "anomaly_detected", Kind: "bool", Optional: true}})

	if !s.Validate(models.RawMessage{}) {
		t.Fatalf("absent optional field should pass")
	}
	if !s.Validate(models.RawMessage{"anomaly_detected": true}) {
		t.Fatalf("well-typed optional field should pass")
	}
	if s.Validate(models.RawMessage{"anomaly_detected": "yes"}) {
		t.Fatalf("present optional field with wrong kind should fail")
	}
}

func TestRuleSchemaKinds(t *testing.T) {
	cases := []struct {
		kind  string
		value any
		ok    bool
	}{
		{"number", 1.5, true},
		{"number", 3, true},
		{"number", "3", false},
		{"bool", false, true},
		{"bool", 0.0, false},
		{"any", map[string]any{"x": 1.0}, true},
		{"any", nil, true},
	}
	for _, tc := range cases {
		s := NewRuleSchema([]FieldRule{{Field: "v", Kind: tc.kind}})
		if got := s.Validate(models.RawMessage{"v": tc.value}); got != tc.ok {
			t.Fatalf("kind=%s value=%v: got %v, want %v", tc.kind, tc.value, got, tc.ok)
		}
	}
}

func TestRuleSchemaNilMessage(t *testing.T) {
	s := NewRuleSchema(nil)
	if s.Validate(nil) {
		t.Fatalf("nil message should fail")
	}
}

func TestFuncAdapter(t *testing.T) {
	calls := 0
	var s Schema = Func(func(m models.RawMessage) bool {
		calls++
		return len(m) > 0
	})
	if s.Validate(models.RawMessage{}) {
		t.Fatalf("predicate result not honored")
	}
	if !s.Validate(models.RawMessage{"a": 1.0}) {
		t.Fatalf("predicate result not honored")
	}
	if calls != 2 {
		t.Fatalf("predicate called %d times", calls)
	}
}

func TestDefaultRulesAcceptMinimalMessage(t *testing.T) {
	s := NewRuleSchema(DefaultRules())
	if !s.Validate(models.RawMessage{"symbol": "AAPL"}) {
		t.Fatalf("minimal message should pass default rules")
	}
	if s.Validate(models.RawMessage{"signal_alpha": "BUY"}) {
		t.Fatalf("message without symbol should fail default rules")
	}
}
