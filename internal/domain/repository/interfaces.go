package repository

import (
	"context"
	"time"

	"CandleScan/internal/domain/models"
)

// BarStore provides cleaned daily series. Implementations return
// models.ErrSeriesNotFound when the country has no data at all and an empty
// series when the range holds no bars.
type BarStore interface {
	Load(ctx context.Context, country string, start, end time.Time) (models.Series, error)
	Countries(ctx context.Context) ([]string, error)
}

// Publisher emits analysis results to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, r *models.AnalysisResult) error
	Close() error
}

type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreBatch(ctx context.Context, r *models.AnalysisResult) error
	Query(ctx context.Context, country string, kind models.PatternKind, from, to time.Time) ([]models.PatternMatch, error)
	Health(ctx context.Context) error
	Close() error
}

// ResultCache keeps finished analyses keyed by request.
type ResultCache interface {
	GetResult(ctx context.Context, key string) (*models.AnalysisResult, bool)
	SetResult(ctx context.Context, key string, r *models.AnalysisResult)
}

type Metrics interface {
	RecordRun(kind string, bars int, seconds float64)
	RecordMatches(kind string, n int)
	RecordCache(hit bool)
	RecordMessageSent(backend string, n int)
	RecordError(kind string)
}
