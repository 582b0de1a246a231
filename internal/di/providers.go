package di

import (
	"context"
	"fmt"
	"time"

	"SignalFuse/internal/domain/repository"
	"SignalFuse/internal/handler/api"
	mid "SignalFuse/internal/middleware"
	internalrepo "SignalFuse/internal/repository"
	"SignalFuse/internal/schema"
	icache "SignalFuse/internal/service/cache"
	"SignalFuse/internal/service/stream"
	"SignalFuse/internal/usecase"
	pkgch "SignalFuse/pkg/clickhouse"
	"SignalFuse/pkg/config"
	xhttp "SignalFuse/pkg/http"
	pkgkafka "SignalFuse/pkg/kafka"
	applogger "SignalFuse/pkg/logger"
	"SignalFuse/pkg/metrics"
	"SignalFuse/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lcfg := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lcfg.Level == "" {
		lcfg.Level = "info"
	}
	if lcfg.Format == "" {
		lcfg.Format = "console"
	}
	if lcfg.Output == "" {
		lcfg.Output = "stdout"
	}
	l, err := applogger.New(lcfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideSchema creates the message schema from configured rules.
func ProvideSchema(cfg *config.Config) schema.Schema {
	rules := cfg.Schema.Rules
	if len(rules) == 0 {
		rules = schema.DefaultRules()
	}
	return schema.NewRuleSchema(rules)
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table := cfg.ClickHouse.Database + "." + signalTable(cfg)
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
		"CREATE TABLE IF NOT EXISTS " + table +
			" (ts DateTime, symbol String, composite String, votes String, affirmative UInt8, source String)" +
			" ENGINE=MergeTree ORDER BY (symbol, ts)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func signalTable(cfg *config.Config) string {
	if cfg.ClickHouse.Table != "" {
		return cfg.ClickHouse.Table
	}
	return "composite_signals"
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSignalStore creates ClickHouse signal storage.
func ProvideSignalStore(chClient *pkgch.Client, cfg *config.Config) repository.SignalStore {
	return internalrepo.NewClickHouseSignalStore(chClient.DB(), cfg.ClickHouse.Database+"."+signalTable(cfg))
}

// ProvideEnrichedPublisher creates the Kafka publisher for enriched messages.
func ProvideEnrichedPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaEnrichedPublisher(producer, cfg.Kafka.OutputTopic)
}

// ProvideCache creates the latest-signal cache: Redis when configured,
// in-process TTL cache otherwise.
func ProvideCache(cfg *config.Config) icache.BytesCache {
	if cfg.Cache.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideSignalProcessor creates the composite-signal processor.
func ProvideSignalProcessor(s schema.Schema, l *applogger.Logger) *usecase.SignalProcessor {
	return usecase.NewSignalProcessor(s, l)
}

// ProvideCompositeHandler wires the Kafka handler with its fan-out targets.
func ProvideCompositeHandler(
	proc *usecase.SignalProcessor,
	pub repository.Publisher,
	store repository.SignalStore,
	cache icache.BytesCache,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.KafkaCompositeHandler {
	h := usecase.NewKafkaCompositeHandler(cfg.Kafka.InputTopic, proc, pub, store, m, l)
	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	h.SetCache(cache, ttl)
	return h
}

// ProvideSignalCollector creates the stream collector, or nil when the
// stream source is disabled.
func ProvideSignalCollector(
	handler *usecase.KafkaCompositeHandler,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SignalCollector {
	if !cfg.Stream.Enabled {
		return nil
	}
	src := stream.New(
		cfg.Stream.Token,
		cfg.Stream.WebSocketURL,
		cfg.Stream.Symbols,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
	)
	pipe := mid.NewIngestPipeline(handler, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewSignalCollector(src, handler, m, pipe)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	proc *usecase.SignalProcessor,
	store repository.SignalStore,
	cache icache.BytesCache,
) xhttp.Handler {
	h := api.NewCompositeEchoHandler(l, proc, store)
	h.SetCache(cache)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.SignalCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaCompositeHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, l, collector, consumer, kh, producer, chClient, httpHandler)
}
