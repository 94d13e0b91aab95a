package usecase

import (
	"context"
	"fmt"
	"time"

	"CandleScan/internal/domain/models"
	drepo "CandleScan/internal/domain/repository"
	applogger "CandleScan/pkg/logger"
)

const (
	BackendNone       = "none"
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

// MatchRouter sends finished analyses to the configured backend.
type MatchRouter struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
	l       *applogger.Logger
}

// NewMatchRouter creates a router. pub must be set for the kafka backend
// and store for the clickhouse backend.
func NewMatchRouter(
	pub drepo.Publisher,
	store drepo.Storage,
	metrics drepo.Metrics,
	backend string,
	l *applogger.Logger,
) (*MatchRouter, error) {
	switch backend {
	case "", BackendNone:
		backend = BackendNone
	case BackendKafka:
		if pub == nil {
			return nil, fmt.Errorf("backend kafka: no publisher")
		}
	case BackendClickHouse:
		if store == nil {
			return nil, fmt.Errorf("backend clickhouse: no storage")
		}
	default:
		return nil, fmt.Errorf("unknown backend: %s", backend)
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &MatchRouter{pub: pub, store: store, metrics: metrics, backend: backend, l: l}, nil
}

// Backend names the active backend.
func (r *MatchRouter) Backend() string { return r.backend }

// Route forwards r's matches. Results without matches are not sent.
func (r *MatchRouter) Route(ctx context.Context, res *models.AnalysisResult) error {
	if r == nil || r.backend == BackendNone || res == nil || len(res.Matches) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch r.backend {
	case BackendKafka:
		err = r.pub.Publish(ctx, res)
	case BackendClickHouse:
		err = r.store.StoreBatch(ctx, res)
	}
	if err != nil {
		r.metrics.RecordError("route_" + r.backend)
		return fmt.Errorf("route matches: %w", err)
	}

	r.metrics.RecordMessageSent(r.backend, len(res.Matches))
	r.l.Debug("matches routed",
		applogger.String("backend", r.backend),
		applogger.String("run_id", res.RunID),
		applogger.Int("matches", len(res.Matches)),
		applogger.Duration("took_ms", time.Since(start)),
	)
	return nil
}

// Close closes underlying resources if available.
func (r *MatchRouter) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
