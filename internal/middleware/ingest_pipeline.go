package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, msg models.RawMessage) error
}

// IngestPipeline sits between the upstream stream and the composite
// processor. It throttles per symbol and buffers messages when the
// downstream is unavailable. Note: validation itself stays with the
// processor; the pipeline only guards against nil payloads.
type IngestPipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan models.RawMessage
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-symbol last accepted time
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS sets the max messages per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewIngestPipeline creates a new pipeline.
func NewIngestPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,   // default throttle per symbol
		bufSize:  1000, // default buffer
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.RawMessage, p.bufSize)
	return p
}

// Start launches background flushing of buffered messages.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case m := <-p.bufCh:
				if m == nil {
					continue
				}
				if err := p.proc.Process(ctx, m); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- m:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process throttles and forwards a message downstream, buffering on
// downstream errors. Schema rejections from the processor are not
// buffered: retrying a malformed message cannot succeed.
func (p *IngestPipeline) Process(ctx context.Context, msg models.RawMessage) error {
	start := time.Now()
	if msg == nil {
		p.metrics.RecordError("pipeline_nil_message")
		return fmt.Errorf("message nil")
	}
	symbol := msg.Symbol()
	if !p.allow(symbol, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, msg); err != nil {
		if isRejection(err) {
			return err
		}
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- msg:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// rejectionError lets the processor mark errors as permanent without the
// pipeline importing the usecase package.
type rejectionError interface {
	error
	Rejection() bool
}

func isRejection(err error) bool {
	var r rejectionError
	return errors.As(err, &r) && r.Rejection()
}

func (p *IngestPipeline) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[symbol]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[symbol] = now
	return true
}
