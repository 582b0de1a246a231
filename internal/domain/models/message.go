package models

import "time"

// RawMessage is an arbitrary key/value payload received from upstream.
// No shape is enforced at the type level; the schema gate decides.
type RawMessage map[string]any

// Composite signal decisions.
const (
	SignalBuy  = "BUY"
	SignalHold = "HOLD"
)

// Vote sentinel values. Alpha/beta/momentum votes carry the raw field
// value; the anomaly vote is synthesized from anomaly_detected.
const (
	VoteBuy         = "BUY"
	VoteInclude     = "INCLUDE"
	VoteOverexposed = "OVEREXPOSED"
	VoteIgnore      = "IGNORE"
)

// Keys written into the enriched message.
const (
	KeyCompositeSignal = "composite_signal"
	KeySignalVotes     = "signal_votes"
)

// Input field names read by the aggregator.
const (
	KeySymbol          = "symbol"
	KeySignalAlpha     = "signal_alpha"
	KeyBetaSignal      = "beta_signal"
	KeyMomentumSignal  = "momentum_signal"
	KeyAnomalyDetected = "anomaly_detected"
)

// UnknownSymbol is used for logging when a message carries no symbol.
const UnknownSymbol = "UNKNOWN"

// IsAffirmative reports whether a vote value counts toward the composite
// threshold. Exact string match, case-sensitive; non-string values never
// count.
func IsAffirmative(vote any) bool {
	s, ok := vote.(string)
	if !ok {
		return false
	}
	switch s {
	case VoteBuy, VoteInclude, VoteOverexposed:
		return true
	default:
		return false
	}
}

// AffirmativeVotes counts affirmative entries in a vote set.
func AffirmativeVotes(votes map[string]any) int {
	n := 0
	for _, v := range votes {
		if IsAffirmative(v) {
			n++
		}
	}
	return n
}

// Symbol extracts the symbol field for logging and routing, falling back
// to UnknownSymbol when absent or not a string.
func (m RawMessage) Symbol() string {
	if s, ok := m[KeySymbol].(string); ok && s != "" {
		return s
	}
	return UnknownSymbol
}

// Clone returns a shallow copy of the message.
func (m RawMessage) Clone() RawMessage {
	out := make(RawMessage, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SignalRecord is the persisted form of one enriched message.
type SignalRecord struct {
	Symbol      string         `json:"symbol"`
	Timestamp   time.Time      `json:"ts"`
	Composite   string         `json:"composite_signal"`
	Votes       map[string]any `json:"signal_votes"`
	Affirmative int            `json:"affirmative"`
	Source      string         `json:"source"`
}
