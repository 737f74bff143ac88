package di

import (
	"context"
	"fmt"
	"time"

	"ZPulse/internal/domain/repository"
	"ZPulse/internal/engine"
	"ZPulse/internal/handler/api"
	mid "ZPulse/internal/middleware"
	internalrepo "ZPulse/internal/repository"
	"ZPulse/internal/service/alpaca"
	icache "ZPulse/internal/service/cache"
	"ZPulse/internal/service/replay"
	"ZPulse/internal/usecase"
	pkgch "ZPulse/pkg/clickhouse"
	"ZPulse/pkg/config"
	xhttp "ZPulse/pkg/http"
	pkgkafka "ZPulse/pkg/kafka"
	applogger "ZPulse/pkg/logger"
	"ZPulse/pkg/metrics"
	"ZPulse/pkg/server"
	"ZPulse/pkg/util"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// schema. Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (symbol String, ts DateTime64(3), price Float64, volume Float64) ENGINE=MergeTree ORDER BY (symbol, ts)",
			cfg.ClickHouse.TicksTable),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (detected_at DateTime64(3), symbol String, price Float64, zscore Float64, zscore_trend Float64, timeframe String, lambda Float64, extrapolated_price Float64, samples_ago Int32, action String, seq UInt64) ENGINE=MergeTree ORDER BY (symbol, detected_at)",
			cfg.ClickHouse.AlertsTable),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer. Returns nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer for the alerts topic.
// Returns nil when the consumer side is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}

	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideAlertStore creates ClickHouse alert storage, or nil without ClickHouse.
func ProvideAlertStore(chClient *pkgch.Client, cfg *config.Config) repository.AlertStore {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseAlertStore(chClient.DB(), cfg.ClickHouse.AlertsTable)
}

// ProvideAlertPublisher creates the Kafka alert publisher, or nil without Kafka.
func ProvideAlertPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.AlertPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertsTopic)
}

// ProvideAlertCache builds the recent-alerts cache, Redis backed when
// configured, in-process TTL map otherwise.
func ProvideAlertCache(cfg *config.Config) *icache.AlertCache {
	var backend icache.BytesCache
	if cfg.Cache.Redis.Enabled {
		backend = icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	} else {
		backend = icache.NewTTLCache()
	}
	return icache.NewAlertCache(backend, cfg.Cache.TTL, 0)
}

// ProvideObservationSource selects replay over ClickHouse history or the live
// WebSocket stream, depending on config.
func ProvideObservationSource(cfg *config.Config, chClient *pkgch.Client, l *applogger.Logger) (repository.ObservationSource, error) {
	symbols, err := util.MergeSymbols(cfg.Stream.SymbolsFile, cfg.Stream.Symbols)
	if err != nil {
		return nil, fmt.Errorf("resolve symbols: %w", err)
	}

	if cfg.Replay.Enabled {
		if chClient == nil {
			return nil, fmt.Errorf("replay requires clickhouse")
		}
		reader := internalrepo.NewClickHouseTickReader(chClient.DB(), cfg.ClickHouse.TicksTable)
		return replay.New(reader, symbols, cfg.Replay.DaysAgo, cfg.Replay.NDays, l), nil
	}

	return alpaca.New(
		cfg.Stream.ProxyURL,
		symbols,
		cfg.Stream.StreamType,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
		l,
	), nil
}

// ProvideAlertDispatcher fans emitted alerts out to console, Kafka, ClickHouse
// and the cache.
func ProvideAlertDispatcher(
	pub repository.AlertPublisher,
	store repository.AlertStore,
	cache *icache.AlertCache,
	l *applogger.Logger,
) *usecase.AlertDispatcher {
	return usecase.NewAlertDispatcher(usecase.NewConsoleSink(l), pub, store, cache, l)
}

// ProvideEngine creates the detection engine from resolved timeframes.
func ProvideEngine(cfg *config.Config, dispatcher *usecase.AlertDispatcher, m repository.Metrics, l *applogger.Logger) (*engine.Engine, error) {
	return engine.New(cfg.EngineConfig(), dispatcher, m, l)
}

// ProvideCollector creates the observation collector with its worker pipeline.
func ProvideCollector(
	source repository.ObservationSource,
	eng *engine.Engine,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.ObservationCollector {
	pipe := mid.NewObservationPipeline(eng, m,
		mid.WithWorkers(cfg.Stream.Workers),
		mid.WithBufferSize(cfg.Stream.BufferSize),
	)
	return usecase.NewObservationCollector(source, pipe, m, l)
}

// ProvideKafkaAlertsHandler registers the handler for the alerts topic.
func ProvideKafkaAlertsHandler(store repository.AlertStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaAlertsHandler {
	return usecase.NewKafkaAlertsHandler(cfg.Kafka.AlertsTopic, store, m)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(l *applogger.Logger, eng *engine.Engine, cache *icache.AlertCache, store repository.AlertStore) xhttp.Handler {
	return api.NewAlertsEchoHandler(l, eng, cache, store)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.ObservationCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaAlertsHandler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	httpHandler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, collector, consumer, kh, chClient, producer, httpHandler)
}
