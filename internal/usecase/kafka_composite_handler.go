package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	icache "SignalFuse/internal/service/cache"
	pkgkafka "SignalFuse/pkg/kafka"
	applogger "SignalFuse/pkg/logger"
	"SignalFuse/pkg/util"
)

// KafkaCompositeHandler consumes raw signal messages from Kafka, runs
// them through the processor, and fans the enriched result out to the
// output topic, the audit store, and the latest-signal cache.
type KafkaCompositeHandler struct {
	topic    string
	proc     *SignalProcessor
	pub      domrepo.Publisher
	store    domrepo.SignalStore
	cache    icache.BytesCache
	cacheTTL time.Duration
	metrics  domrepo.Metrics
	log      *applogger.Logger
	source   string
}

func NewKafkaCompositeHandler(
	topic string,
	proc *SignalProcessor,
	pub domrepo.Publisher,
	store domrepo.SignalStore,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *KafkaCompositeHandler {
	if log == nil {
		log = applogger.Nop()
	}
	return &KafkaCompositeHandler{
		topic:   topic,
		proc:    proc,
		pub:     pub,
		store:   store,
		metrics: metrics,
		log:     log.Component("composite_handler"),
		source:  "kafka",
	}
}

func (h *KafkaCompositeHandler) Topic() string { return h.topic }

// SetCache enables caching of the latest enriched result per symbol.
func (h *KafkaCompositeHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	h.cacheTTL = ttl
}

// SetSource overrides the source label recorded with each signal.
func (h *KafkaCompositeHandler) SetSource(source string) { h.source = source }

// Handle implements pkgkafka.MessageHandler. A schema rejection is
// returned as an error so the consumer's retry/DLQ path takes over;
// there is no partial result.
func (h *KafkaCompositeHandler) Handle(ctx context.Context, b []byte) error {
	var raw models.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	return h.Process(ctx, raw)
}

// Process validates and aggregates one raw message and distributes the
// enriched result. Shared by the Kafka path and the stream collector.
func (h *KafkaCompositeHandler) Process(ctx context.Context, raw models.RawMessage) error {
	start := time.Now()

	vm, err := h.proc.ValidateInputMessage(raw)
	if err != nil {
		var ife *InvalidFormatError
		if errors.As(err, &ife) {
			h.metrics.RecordRejected("schema")
		}
		return err
	}

	enriched := h.proc.ComputeCompositeSignal(vm)
	rec := recordFromEnriched(enriched, h.source)

	h.metrics.RecordDecision(rec.Composite, rec.Symbol)
	h.metrics.RecordAffirmativeVotes(rec.Symbol, rec.Affirmative)

	if h.pub != nil {
		if err := h.pub.Publish(ctx, enriched); err != nil {
			h.metrics.RecordError("publish")
			return err
		}
	}

	if h.store != nil {
		if err := h.store.Store(ctx, rec); err != nil {
			h.metrics.RecordError("store")
			return err
		}
	}

	if h.cache != nil {
		if b, err := json.Marshal(enriched); err == nil {
			if err := h.cache.SetBytes(latestCacheKey(rec.Symbol), b, h.cacheTTL); err != nil {
				h.log.Warn("latest cache set failed", applogger.Error(err))
			}
		}
	}

	h.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

func latestCacheKey(symbol string) string { return "composite:latest:" + symbol }

// recordFromEnriched flattens an enriched message into its persisted form.
func recordFromEnriched(enriched models.RawMessage, source string) *models.SignalRecord {
	rec := &models.SignalRecord{
		Symbol:    enriched.Symbol(),
		Timestamp: time.Now().UTC(),
		Source:    source,
	}
	if s, ok := enriched[models.KeyCompositeSignal].(string); ok {
		rec.Composite = s
	}
	if votes, ok := enriched[models.KeySignalVotes].(map[string]any); ok {
		rec.Votes = votes
		rec.Affirmative = models.AffirmativeVotes(votes)
	}
	// honor an upstream event time when the message carries one
	if ts, ok := enriched["timestamp"]; ok {
		switch t := ts.(type) {
		case string:
			if parsed, ok := util.ParseTime(t); ok {
				rec.Timestamp = parsed.UTC()
			}
		case float64:
			rec.Timestamp = time.Unix(int64(t), 0).UTC()
		}
	}
	return rec
}

var _ pkgkafka.MessageHandler = (*KafkaCompositeHandler)(nil)
