package usecase

import (
	"context"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	mid "SignalFuse/internal/middleware"
)

// SignalCollector reads raw messages from the upstream stream and feeds
// them through the composite pipeline.
type SignalCollector struct {
	stream  domrepo.SignalStream
	handler *KafkaCompositeHandler
	metrics domrepo.Metrics
	pipe    *mid.IngestPipeline
}

func NewSignalCollector(stream domrepo.SignalStream, handler *KafkaCompositeHandler, metrics domrepo.Metrics, pipe *mid.IngestPipeline) *SignalCollector {
	return &SignalCollector{stream: stream, handler: handler, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the upstream stream is connected.
func (c *SignalCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *SignalCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	msgCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, msgCh, errCh)
	return nil
}

func (c *SignalCollector) consume(ctx context.Context, msgCh <-chan models.RawMessage, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case m := <-msgCh:
			if m == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, m)
			} else {
				_ = c.handler.Process(ctx, m)
			}
		}
	}
}

// Shutdown stops pipeline and closes stream.
func (c *SignalCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
