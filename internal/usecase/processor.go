package usecase

import (
	"fmt"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/schema"
	applogger "SignalFuse/pkg/logger"
)

// InvalidFormatError is returned when a raw message fails schema
// validation. It carries the offending payload for diagnostics.
type InvalidFormatError struct {
	Payload models.RawMessage
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid message format: %v", map[string]any(e.Payload))
}

// Rejection marks the error as permanent so retry layers skip it.
func (e *InvalidFormatError) Rejection() bool { return true }

// ValidatedMessage is a raw message that passed schema validation. It has
// no structure of its own; the unexported field means only this package
// can produce one, so the aggregator can rely on validation having run.
type ValidatedMessage struct {
	fields models.RawMessage
}

// Fields exposes the underlying message. Callers must not mutate it.
func (m ValidatedMessage) Fields() models.RawMessage { return m.fields }

// SignalProcessor validates raw messages and derives a composite trading
// signal by majority vote across sub-signals. It holds no state between
// calls and is safe for concurrent use.
type SignalProcessor struct {
	schema schema.Schema
	log    *applogger.Logger
}

func NewSignalProcessor(s schema.Schema, l *applogger.Logger) *SignalProcessor {
	if l == nil {
		l = applogger.Nop()
	}
	return &SignalProcessor{schema: s, log: l.Component("processor")}
}

// ValidateInputMessage checks the raw message against the schema
// predicate. On success the same data is returned tagged as validated;
// on failure an *InvalidFormatError carrying the payload is returned.
func (p *SignalProcessor) ValidateInputMessage(raw models.RawMessage) (ValidatedMessage, error) {
	p.log.Debug("validating message schema")
	if !p.schema.Validate(raw) {
		p.log.Error("invalid message schema", applogger.Any("message", raw))
		return ValidatedMessage{}, &InvalidFormatError{Payload: raw}
	}
	return ValidatedMessage{fields: raw}, nil
}

// ComputeCompositeSignal aggregates the sub-signal votes of a validated
// message into composite_signal and signal_votes. The input is never
// mutated; the result is a new map carrying every input key plus the two
// computed ones (which win on collision). All field lookups are optional,
// so this cannot fail.
func (p *SignalProcessor) ComputeCompositeSignal(msg ValidatedMessage) models.RawMessage {
	symbol := msg.fields.Symbol()
	p.log.Info("computing composite signal", applogger.String("symbol", symbol))

	votes := map[string]any{
		"alpha":    msg.fields[models.KeySignalAlpha],
		"beta":     msg.fields[models.KeyBetaSignal],
		"momentum": msg.fields[models.KeyMomentumSignal],
		"anomaly":  anomalyVote(msg.fields[models.KeyAnomalyDetected]),
	}

	composite := models.SignalHold
	if models.AffirmativeVotes(votes) >= 2 {
		composite = models.SignalBuy
	}

	out := msg.fields.Clone()
	out[models.KeyCompositeSignal] = composite
	out[models.KeySignalVotes] = votes

	p.log.Debug("composite signal result",
		applogger.String("symbol", symbol),
		applogger.String("composite", composite),
		applogger.Any("votes", votes),
	)
	return out
}

// anomalyVote inverts the anomaly flag: a detected anomaly suppresses the
// vote, absence of one counts as an affirmative INCLUDE.
func anomalyVote(detected any) string {
	if truthy(detected) {
		return models.VoteIgnore
	}
	return models.VoteInclude
}

// truthy mirrors loose upstream semantics for anomaly_detected: any
// present, non-zero, non-empty value counts as detected.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
