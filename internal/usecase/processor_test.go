package usecase

import (
	"errors"
	"reflect"
	"testing"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/schema"
)

func acceptAll() schema.Schema {
	return schema.Func(func(models.RawMessage) bool { return true })
}

func rejectAll() schema.Schema {
	return schema.Func(func(models.RawMessage) bool { return false })
}

func TestValidateRejectsWhenSchemaFails(t *testing.T) {
	p := NewSignalProcessor(rejectAll(), nil)
	raw := models.RawMessage{"symbol": "AAPL", "junk": 1.0}

	_, err := p.ValidateInputMessage(raw)
	if err == nil {
		t.Fatalf("expected error")
	}
	var ife *InvalidFormatError
	if !errors.As(err, &ife) {
		t.Fatalf("expected InvalidFormatError, got %T", err)
	}
	if !reflect.DeepEqual(ife.Payload, raw) {
		t.Fatalf("error payload mismatch: %v", ife.Payload)
	}
	if !ife.Rejection() {
		t.Fatalf("expected rejection marker")
	}
}

func TestValidatePassThroughIdentity(t *testing.T) {
	p := NewSignalProcessor(acceptAll(), nil)
	raw := models.RawMessage{"symbol": "AAPL", "signal_alpha": "BUY", "n": 3.5}

	vm, err := p.ValidateInputMessage(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(vm.Fields(), raw) {
		t.Fatalf("validated message differs from input: %v", vm.Fields())
	}
}

func TestComputeScenarios(t *testing.T) {
	cases := []struct {
		name      string
		msg       models.RawMessage
		votes     map[string]any
		composite string
	}{
		{
			name: "two affirmative votes buy",
			msg: models.RawMessage{
				"signal_alpha":     "BUY",
				"beta_signal":      "SELL",
				"momentum_signal":  "SELL",
				"anomaly_detected": false,
			},
			votes:     map[string]any{"alpha": "BUY", "beta": "SELL", "momentum": "SELL", "anomaly": "INCLUDE"},
			composite: models.SignalBuy,
		},
		{
			name: "all against holds",
			msg: models.RawMessage{
				"signal_alpha":     "SELL",
				"beta_signal":      "SELL",
				"momentum_signal":  "SELL",
				"anomaly_detected": true,
			},
			votes:     map[string]any{"alpha": "SELL", "beta": "SELL", "momentum": "SELL", "anomaly": "IGNORE"},
			composite: models.SignalHold,
		},
		{
			name:      "empty message holds on lone anomaly vote",
			msg:       models.RawMessage{},
			votes:     map[string]any{"alpha": nil, "beta": nil, "momentum": nil, "anomaly": "INCLUDE"},
			composite: models.SignalHold,
		},
		{
			name: "overexposed counts as affirmative",
			msg: models.RawMessage{
				"signal_alpha":     "OVEREXPOSED",
				"beta_signal":      "BUY",
				"momentum_signal":  "INCLUDE",
				"anomaly_detected": true,
			},
			votes:     map[string]any{"alpha": "OVEREXPOSED", "beta": "BUY", "momentum": "INCLUDE", "anomaly": "IGNORE"},
			composite: models.SignalBuy,
		},
	}

	p := NewSignalProcessor(acceptAll(), nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vm, err := p.ValidateInputMessage(tc.msg)
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			out := p.ComputeCompositeSignal(vm)
			if got := out[models.KeyCompositeSignal]; got != tc.composite {
				t.Fatalf("composite = %v, want %v", got, tc.composite)
			}
			votes, ok := out[models.KeySignalVotes].(map[string]any)
			if !ok {
				t.Fatalf("signal_votes missing or wrong type: %T", out[models.KeySignalVotes])
			}
			if !reflect.DeepEqual(votes, tc.votes) {
				t.Fatalf("votes = %v, want %v", votes, tc.votes)
			}
		})
	}
}

func TestComputePreservesInputKeys(t *testing.T) {
	p := NewSignalProcessor(acceptAll(), nil)
	raw := models.RawMessage{
		"symbol":           "TSLA",
		"price":            412.5,
		"signal_alpha":     "BUY",
		"composite_signal": "stale",
		"signal_votes":     "stale",
	}
	before := raw.Clone()

	vm, _ := p.ValidateInputMessage(raw)
	out := p.ComputeCompositeSignal(vm)

	for k, v := range before {
		if k == models.KeyCompositeSignal || k == models.KeySignalVotes {
			continue
		}
		if got, ok := out[k]; !ok || !reflect.DeepEqual(got, v) {
			t.Fatalf("key %q not preserved: got %v want %v", k, got, v)
		}
	}
	if out[models.KeyCompositeSignal] == "stale" {
		t.Fatalf("composite_signal not overwritten")
	}
	if _, ok := out[models.KeySignalVotes].(map[string]any); !ok {
		t.Fatalf("signal_votes not overwritten")
	}
	// input must not be mutated
	if !reflect.DeepEqual(raw, before) {
		t.Fatalf("input mutated: %v", raw)
	}
}

func TestThresholdBoundary(t *testing.T) {
	// anomaly_detected true pins the anomaly vote to IGNORE, so the
	// remaining three fields control the affirmative count exactly.
	cases := []struct {
		affirmative int
		fields      [3]string
		want        string
	}{
		{0, [3]string{"SELL", "SELL", "SELL"}, models.SignalHold},
		{1, [3]string{"BUY", "SELL", "SELL"}, models.SignalHold},
		{2, [3]string{"BUY", "INCLUDE", "SELL"}, models.SignalBuy},
		{3, [3]string{"BUY", "INCLUDE", "OVEREXPOSED"}, models.SignalBuy},
	}

	p := NewSignalProcessor(acceptAll(), nil)
	for _, tc := range cases {
		msg := models.RawMessage{
			"signal_alpha":     tc.fields[0],
			"beta_signal":      tc.fields[1],
			"momentum_signal":  tc.fields[2],
			"anomaly_detected": true,
		}
		vm, _ := p.ValidateInputMessage(msg)
		out := p.ComputeCompositeSignal(vm)
		if got := out[models.KeyCompositeSignal]; got != tc.want {
			t.Fatalf("affirmative=%d: composite = %v, want %v", tc.affirmative, got, tc.want)
		}
	}
}

func TestAnomalyVoteInversion(t *testing.T) {
	cases := []struct {
		name     string
		detected any
		want     string
	}{
		{"bool true", true, models.VoteIgnore},
		{"bool false", false, models.VoteInclude},
		{"missing", nil, models.VoteInclude},
		{"zero number", 0.0, models.VoteInclude},
		{"nonzero number", 1.0, models.VoteIgnore},
		{"empty string", "", models.VoteInclude},
		{"nonempty string", "yes", models.VoteIgnore},
	}

	p := NewSignalProcessor(acceptAll(), nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := models.RawMessage{}
			if tc.detected != nil {
				msg["anomaly_detected"] = tc.detected
			}
			vm, _ := p.ValidateInputMessage(msg)
			out := p.ComputeCompositeSignal(vm)
			votes := out[models.KeySignalVotes].(map[string]any)
			if votes["anomaly"] != tc.want {
				t.Fatalf("anomaly vote = %v, want %v", votes["anomaly"], tc.want)
			}
		})
	}
}

func TestCaseSensitiveAffirmativeMatch(t *testing.T) {
	p := NewSignalProcessor(acceptAll(), nil)
	msg := models.RawMessage{
		"signal_alpha":     "buy",
		"beta_signal":      " BUY",
		"momentum_signal":  "Include",
		"anomaly_detected": true,
	}
	vm, _ := p.ValidateInputMessage(msg)
	out := p.ComputeCompositeSignal(vm)
	if got := out[models.KeyCompositeSignal]; got != models.SignalHold {
		t.Fatalf("composite = %v, want HOLD for non-exact matches", got)
	}
}
