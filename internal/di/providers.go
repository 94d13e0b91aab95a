package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"CandleScan/internal/domain/repository"
	"CandleScan/internal/handler/api"
	internalrepo "CandleScan/internal/repository"
	icache "CandleScan/internal/service/cache"
	"CandleScan/internal/service/ratelimit"
	"CandleScan/internal/usecase"
	pkgcache "CandleScan/pkg/cache"
	pkgch "CandleScan/pkg/clickhouse"
	"CandleScan/pkg/config"
	xhttp "CandleScan/pkg/http"
	pkgkafka "CandleScan/pkg/kafka"
	applogger "CandleScan/pkg/logger"
	"CandleScan/pkg/metrics"
	"CandleScan/pkg/server"
	"CandleScan/pkg/util"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

func noCleanup() {}

// ProvideClickHouseClient connects to ClickHouse when the bar source or the
// match backend needs it, and returns nil otherwise.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.NeedsClickHouse() {
		return nil, noCleanup, nil
	}
	client, err := pkgch.NewClient(pkgch.Config{
		Host:             cfg.CH.Host,
		Port:             cfg.CH.Port,
		Database:         cfg.CH.Database,
		User:             cfg.CH.User,
		Password:         cfg.CH.Password,
		HTTP:             cfg.CH.UseHTTP,
		DialTimeout:      cfg.CH.DialTimeout,
		ReadTimeout:      cfg.CH.ReadTimeout,
		MaxExecutionTime: cfg.CH.MaxExecutionTime,
		AsyncInsert:      cfg.CH.AsyncInsert,
		WaitForAsync:     cfg.CH.WaitForAsync,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvideBarStore selects the bar source.
func ProvideBarStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.BarStore, error) {
	switch cfg.Source.Type {
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("bar source clickhouse: no client")
		}
		return internalrepo.NewCHBarStore(ch, cfg.CH.BarsTable, l), nil
	default:
		return internalrepo.NewCSVBarStore(cfg.Source.DataDir, l), nil
	}
}

// ProvideMatchStorage creates the ClickHouse match table store and applies
// the schema. It is nil unless the clickhouse backend is selected.
func ProvideMatchStorage(cfg *config.Config, ch *pkgch.Client) (repository.Storage, error) {
	if cfg.Backend.Type != usecase.BackendClickHouse {
		return nil, nil
	}
	store := internalrepo.NewCHMatchStore(ch, cfg.CH.MatchesTable, cfg.Backend.BatchSize,
		pkgch.Schema(cfg.CH.Database, cfg.CH.BarsTable, cfg.CH.MatchesTable))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer for the kafka backend.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if cfg.Backend.Type != usecase.BackendKafka {
		return nil, noCleanup, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		Compression:  cfg.Kafka.Compression,
		MaxAttempts:  cfg.Kafka.Producer.MaxAttempts,
		WriteTimeout: cfg.Kafka.Producer.WriteTimeout,
		ReadTimeout:  cfg.Kafka.Producer.ReadTimeout,
		BatchSize:    cfg.Kafka.Producer.BatchSize,
		BatchBytes:   cfg.Kafka.Producer.BatchBytes,
		Linger:       cfg.Kafka.Producer.Linger,
		Async:        cfg.Kafka.Producer.Async,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}, nil
}

// ProvideMatchPublisher wraps the producer; nil without a producer.
func ProvideMatchPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideMatchRouter creates the router for the configured backend.
func ProvideMatchRouter(
	pub repository.Publisher,
	store repository.Storage,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) (*usecase.MatchRouter, func(), error) {
	router, err := usecase.NewMatchRouter(pub, store, m, cfg.Backend.Type, l)
	if err != nil {
		return nil, nil, err
	}
	return router, router.Close, nil
}

// ProvideCacheService builds the in-process cache, layered over Redis when
// redis is enabled.
func ProvideCacheService(cfg *config.Config, l *applogger.Logger) (pkgcache.Service, func(), error) {
	mem := pkgcache.NewMemoryCache(
		pkgcache.WithMaxEntries(cfg.Analysis.CacheSize),
		pkgcache.WithDefaultTTL(cfg.Analysis.CacheTTL),
	)
	var svc pkgcache.Service = mem
	if cfg.Redis.Enabled {
		rc, err := pkgcache.NewRedisCache(context.Background(), pkgcache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			_ = mem.Close()
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = pkgcache.NewLayeredCache(mem, rc)
	}
	return svc, func() {
		if err := svc.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}, nil
}

// ProvideResultCache caches analysis results for analysis.cache_ttl.
func ProvideResultCache(svc pkgcache.Service, cfg *config.Config, l *applogger.Logger) repository.ResultCache {
	return icache.NewResultCache(svc, cfg.Analysis.CacheTTL, l)
}

// ProvidePatternAnalysis creates the analysis use case.
func ProvidePatternAnalysis(
	bars repository.BarStore,
	router *usecase.MatchRouter,
	cache repository.ResultCache,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.PatternAnalysis {
	return usecase.NewPatternAnalysis(bars, router, cache, m, l, cfg.Analysis.LookBack, cfg.Analysis.LookForward)
}

// ProvideKafkaConsumer creates the scan-request consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, func(), error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, noCleanup, nil
	}
	consumer, err := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    cfg.Kafka.Consumer.GroupID,
		Workers:    cfg.Kafka.Consumer.Workers,
		RetryMax:   cfg.Kafka.Consumer.RetryMax,
		BackoffMin: cfg.Kafka.Consumer.BackoffMin,
		BackoffMax: cfg.Kafka.Consumer.BackoffMax,
		DLQTopic:   cfg.Kafka.Consumer.DLQTopic,
		MinBytes:   cfg.Kafka.Consumer.MinBytes,
		MaxBytes:   cfg.Kafka.Consumer.MaxBytes,
	}, l)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka consumer: %w", err)
	}
	// Stop is idempotent; App drains the consumer first on a normal shutdown.
	return consumer, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}, nil
}

// ProvideScanRequestHandler handles the requests topic with the configured
// analysis range as default.
func ProvideScanRequestHandler(
	uc *usecase.PatternAnalysis,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.ScanRequestHandler {
	start := util.ParseDateDefault(cfg.Analysis.Start, time.Time{})
	end := util.ParseDateDefault(cfg.Analysis.End, time.Time{})
	return usecase.NewScanRequestHandler(cfg.Kafka.Consumer.RequestsTopic, uc, m, l, start, end)
}

// ProvideRateLimiter creates the per-client HTTP limiter.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.RefillPerSec)
}

// ProvidePatternsHandler creates the HTTP handler. Match history is served
// only when matches are stored in ClickHouse.
func ProvidePatternsHandler(l *applogger.Logger, uc *usecase.PatternAnalysis, store repository.Storage) *api.PatternsEchoHandler {
	return api.NewPatternsEchoHandler(l, uc, store)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	h *api.PatternsEchoHandler,
	limiter *ratelimit.Limiter,
	l *applogger.Logger,
) *xhttp.Server {
	sc := xhttp.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Limiter:         limiter,
	}
	if cfg.Server.CORS {
		sc.CORSOrigins = []string{"*"}
	}
	if cfg.Metrics.Enabled {
		sc.MetricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(sc, h, l)
}

// ProvideApp creates the application server. The router, clients and cache
// are closed by the injector's cleanup after App returns.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	requests *usecase.ScanRequestHandler,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, l, httpServer,
		server.WithConsumer(consumer, requests),
		server.WithLimiter(limiter),
	)
}
