package repository

import (
	"context"
	"time"

	"SignalFuse/internal/domain/models"
)

type SignalStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.RawMessage, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, msg models.RawMessage) error
	Close() error
}

type SignalStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, rec *models.SignalRecord) error
	Latest(ctx context.Context, symbol string) (*models.SignalRecord, error)
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.SignalRecord, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordDecision(decision, symbol string)
	RecordRejected(reason string)
	RecordError(kind string)
	RecordAffirmativeVotes(symbol string, n int)
	RecordLatency(op string, seconds float64)
}
