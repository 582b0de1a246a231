package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/domain/repository"
	pkgkafka "SignalFuse/pkg/kafka"
)

// ClickHouseSignalStore implements SignalStore for ClickHouse.
type ClickHouseSignalStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseSignalStore creates ClickHouse signal storage.
func NewClickHouseSignalStore(db *sql.DB, table string) repository.SignalStore {
	return &ClickHouseSignalStore{db: db, table: table}
}

func (s *ClickHouseSignalStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseSignalStore) Store(ctx context.Context, rec *models.SignalRecord) error {
	if rec == nil || rec.Symbol == "" {
		return fmt.Errorf("signal record invalid")
	}
	votes, err := json.Marshal(rec.Votes)
	if err != nil {
		return fmt.Errorf("marshal votes: %w", err)
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, composite, votes, affirmative, source) VALUES (?, ?, ?, ?, ?, ?)", s.table)
	_, err = s.db.ExecContext(ctx, q,
		rec.Timestamp,
		rec.Symbol,
		rec.Composite,
		string(votes),
		uint8(rec.Affirmative),
		rec.Source,
	)
	return err
}

func (s *ClickHouseSignalStore) Latest(ctx context.Context, symbol string) (*models.SignalRecord, error) {
	q := fmt.Sprintf("SELECT ts, symbol, composite, votes, affirmative, source FROM %s WHERE symbol = ? ORDER BY ts DESC LIMIT 1", s.table)
	row := s.db.QueryRowContext(ctx, q, symbol)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *ClickHouseSignalStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.SignalRecord, error) {
	q := fmt.Sprintf("SELECT ts, symbol, composite, votes, affirmative, source FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.SignalRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanRecord(scan func(...any) error) (*models.SignalRecord, error) {
	var (
		rec   models.SignalRecord
		votes string
		aff   uint8
	)
	if err := scan(&rec.Timestamp, &rec.Symbol, &rec.Composite, &votes, &aff, &rec.Source); err != nil {
		return nil, err
	}
	rec.Affirmative = int(aff)
	if votes != "" {
		_ = json.Unmarshal([]byte(votes), &rec.Votes)
	}
	return &rec, nil
}

func (s *ClickHouseSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSignalStore) Close() error {
	return nil // Managed by pkg
}

// KafkaEnrichedPublisher implements Publisher for Kafka. Messages are
// keyed by symbol so per-symbol ordering survives partitioning.
type KafkaEnrichedPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEnrichedPublisher creates Kafka publisher for enriched messages.
func NewKafkaEnrichedPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaEnrichedPublisher{producer: producer, topic: topic}
}

func (p *KafkaEnrichedPublisher) Publish(ctx context.Context, msg models.RawMessage) error {
	return p.producer.Publish(ctx, p.topic, []byte(msg.Symbol()), map[string]any(msg))
}

func (p *KafkaEnrichedPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
