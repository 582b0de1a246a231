package models

import "testing"

func TestSymbolFallsBackToUnknown(t *testing.T) {
	cases := []struct {
		name string
		msg  RawMessage
		want string
	}{
		{"present", RawMessage{"symbol": "AAPL"}, "AAPL"},
		{"missing", RawMessage{}, UnknownSymbol},
		{"non-string", RawMessage{"symbol": 42}, UnknownSymbol},
		{"empty", RawMessage{"symbol": ""}, UnknownSymbol},
	}
	for _, tc := range cases {
		if got := tc.msg.Symbol(); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := RawMessage{"symbol": "AAPL", "signal_alpha": "BUY"}
	c := orig.Clone()
	c["signal_alpha"] = "SELL"
	c["extra"] = true

	if orig["signal_alpha"] != "BUY" {
		t.Fatalf("clone mutated the original")
	}
	if _, ok := orig["extra"]; ok {
		t.Fatalf("clone shares storage with the original")
	}
}

func TestAffirmativeVotes(t *testing.T) {
	votes := map[string]any{
		"alpha":    VoteBuy,
		"beta":     "SELL",
		"momentum": VoteOverexposed,
		"anomaly":  VoteIgnore,
	}
	if got := AffirmativeVotes(votes); got != 2 {
		t.Fatalf("got %d affirmative votes, want 2", got)
	}
}

func TestIsAffirmativeRejectsNonStrings(t *testing.T) {
	if IsAffirmative(1) || IsAffirmative(true) || IsAffirmative(nil) {
		t.Fatalf("only the affirmative strings count")
	}
	if !IsAffirmative(VoteInclude) {
		t.Fatalf("INCLUDE is affirmative")
	}
}
