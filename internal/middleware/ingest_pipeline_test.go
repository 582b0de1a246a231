package middleware

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
)

type countingProc struct {
	calls atomic.Int32
	err   error
}

func (p *countingProc) Process(ctx context.Context, msg models.RawMessage) error {
	p.calls.Add(1)
	return p.err
}

type countingMetrics struct {
	errs map[string]int
}

func (m *countingMetrics) RecordDecision(decision, symbol string)      {}
func (m *countingMetrics) RecordRejected(reason string)                {}
func (m *countingMetrics) RecordError(kind string)                     { m.errs[kind]++ }
func (m *countingMetrics) RecordAffirmativeVotes(symbol string, n int) {}
func (m *countingMetrics) RecordLatency(op string, seconds float64)    {}

type permanentErr struct{}

func (permanentErr) Error() string   { return "bad shape" }
func (permanentErr) Rejection() bool { return true }

func TestPipelineForwards(t *testing.T) {
	proc := &countingProc{}
	m := &countingMetrics{errs: map[string]int{}}
	p := NewIngestPipeline(proc, m)

	if err := p.Process(context.Background(), models.RawMessage{"symbol": "AAPL"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if proc.calls.Load() != 1 {
		t.Fatalf("downstream called %d times", proc.calls.Load())
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &countingProc{}
	m := &countingMetrics{errs: map[string]int{}}
	p := NewIngestPipeline(proc, m, WithMaxRPS(1))

	msg := models.RawMessage{"symbol": "AAPL"}
	_ = p.Process(context.Background(), msg)
	_ = p.Process(context.Background(), msg)

	if proc.calls.Load() != 1 {
		t.Fatalf("second message should be throttled, downstream calls = %d", proc.calls.Load())
	}
	if m.errs["pipeline_throttle"] != 1 {
		t.Fatalf("throttle not recorded: %v", m.errs)
	}

	// a different symbol is not affected
	if err := p.Process(context.Background(), models.RawMessage{"symbol": "MSFT"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if proc.calls.Load() != 2 {
		t.Fatalf("other symbol throttled, downstream calls = %d", proc.calls.Load())
	}
}

func TestPipelineBuffersDownstreamErrors(t *testing.T) {
	proc := &countingProc{err: errors.New("backend down")}
	m := &countingMetrics{errs: map[string]int{}}
	p := NewIngestPipeline(proc, m, WithBufferSize(4))

	if err := p.Process(context.Background(), models.RawMessage{"symbol": "AAPL"}); err == nil {
		t.Fatalf("expected downstream error")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("message not buffered, depth = %d", len(p.bufCh))
	}
	if m.errs["pipeline_process"] != 1 {
		t.Fatalf("downstream error not recorded: %v", m.errs)
	}
}

func TestPipelineDoesNotBufferRejections(t *testing.T) {
	proc := &countingProc{err: permanentErr{}}
	m := &countingMetrics{errs: map[string]int{}}
	p := NewIngestPipeline(proc, m)

	err := p.Process(context.Background(), models.RawMessage{"symbol": "AAPL"})
	if err == nil {
		t.Fatalf("expected rejection to propagate")
	}
	if len(p.bufCh) != 0 {
		t.Fatalf("rejection must not be buffered")
	}
}

func TestPipelineFlushRetries(t *testing.T) {
	proc := &countingProc{err: errors.New("backend down")}
	m := &countingMetrics{errs: map[string]int{}}
	p := NewIngestPipeline(proc, m, WithBufferSize(4))

	_ = p.Process(context.Background(), models.RawMessage{"symbol": "AAPL"})

	proc.err = nil
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(p.bufCh) == 0 && proc.calls.Load() >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("buffered message never flushed: calls=%d depth=%d", proc.calls.Load(), len(p.bufCh))
}
