package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"CandleScan/internal/domain/models"
	drepo "CandleScan/internal/domain/repository"
	"CandleScan/internal/services/features"
	"CandleScan/internal/services/patterns"
	pkgcache "CandleScan/pkg/cache"
	applogger "CandleScan/pkg/logger"
)

// Analyze featurizes s and evaluates kind on it. The kind is checked
// before the series, so an unknown kind is reported even for empty input.
func Analyze(s models.Series, kind models.PatternKind, opts ...features.Option) ([]models.PatternMatch, error) {
	if _, err := patterns.Span(kind); err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, models.ErrEmptySeries
	}
	featured, err := features.NewEngine(opts...).Featurize(s)
	if err != nil {
		return nil, fmt.Errorf("featurize: %w", err)
	}
	return patterns.Evaluate(featured, kind)
}

// AnalysisParams selects a series and the extrema window.
type AnalysisParams struct {
	Country     string
	Kind        models.PatternKind
	Start       time.Time
	End         time.Time
	LookBack    int
	LookForward int
}

func (p AnalysisParams) cacheKey() string {
	return pkgcache.JoinKey(p.Country, p.Kind, p.Start.Format(models.DateLayout),
		p.End.Format(models.DateLayout), p.LookBack, p.LookForward)
}

// PatternAnalysis loads series, runs the engine and routes the results.
type PatternAnalysis struct {
	bars    drepo.BarStore
	router  *MatchRouter
	cache   drepo.ResultCache
	metrics drepo.Metrics
	l       *applogger.Logger

	lookBack    int
	lookForward int
	timeout     time.Duration
	now         func() time.Time
	newID       func() string
}

// NewPatternAnalysis wires the use case. lookBack and lookForward apply
// when a request leaves them at zero.
func NewPatternAnalysis(
	bars drepo.BarStore,
	router *MatchRouter,
	cache drepo.ResultCache,
	metrics drepo.Metrics,
	l *applogger.Logger,
	lookBack, lookForward int,
) *PatternAnalysis {
	if l == nil {
		l = applogger.Nop()
	}
	return &PatternAnalysis{
		bars:        bars,
		router:      router,
		cache:       cache,
		metrics:     metrics,
		l:           l,
		lookBack:    lookBack,
		lookForward: lookForward,
		timeout:     30 * time.Second,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (uc *PatternAnalysis) withDefaults(p AnalysisParams) AnalysisParams {
	if p.LookBack == 0 {
		p.LookBack = uc.lookBack
	}
	if p.LookForward == 0 {
		p.LookForward = uc.lookForward
	}
	return p
}

func (uc *PatternAnalysis) load(ctx context.Context, p AnalysisParams) (models.Series, error) {
	if p.Country == "" {
		return nil, fmt.Errorf("%w: country required", models.ErrSeriesNotFound)
	}
	if !p.End.IsZero() && p.Start.After(p.End) {
		return nil, fmt.Errorf("%w: start %s after end %s", models.ErrInvalidRange, p.Start.Format(models.DateLayout), p.End.Format(models.DateLayout))
	}
	s, err := uc.bars.Load(ctx, p.Country, p.Start, p.End)
	if err != nil {
		uc.metrics.RecordError("load")
		return nil, fmt.Errorf("load %s: %w", p.Country, err)
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: %s %s..%s", models.ErrEmptySeries, p.Country,
			p.Start.Format(models.DateLayout), p.End.Format(models.DateLayout))
	}
	return s, nil
}

// Run analyses one pattern kind over the selected series. Results are
// cached by request; a cached result is returned without routing again.
func (uc *PatternAnalysis) Run(ctx context.Context, p AnalysisParams) (*models.AnalysisResult, error) {
	p = uc.withDefaults(p)
	if _, err := patterns.Span(p.Kind); err != nil {
		return nil, err
	}

	key := p.cacheKey()
	if r, ok := uc.cache.GetResult(ctx, key); ok {
		uc.metrics.RecordCache(true)
		return r, nil
	}
	uc.metrics.RecordCache(false)

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	s, err := uc.load(ctx, p)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	matches, err := Analyze(s, p.Kind, features.WithWindow(p.LookBack, p.LookForward))
	if err != nil {
		uc.metrics.RecordError("analyze")
		return nil, err
	}
	uc.metrics.RecordRun(p.Kind.String(), len(s), time.Since(began).Seconds())
	uc.metrics.RecordMatches(p.Kind.String(), len(matches))

	res := &models.AnalysisResult{
		RunID:       uc.newID(),
		Country:     p.Country,
		Kind:        p.Kind,
		Start:       s[0].Date,
		End:         s[len(s)-1].Date,
		Bars:        len(s),
		Matches:     matches,
		GeneratedAt: uc.now().UTC(),
	}
	if err := uc.router.Route(ctx, res); err != nil {
		return nil, err
	}
	uc.cache.SetResult(ctx, key, res)

	uc.l.Info("analysis finished",
		applogger.String("run_id", res.RunID),
		applogger.String("country", p.Country),
		applogger.String("pattern", p.Kind.String()),
		applogger.Date("start", res.Start),
		applogger.Date("end", res.End),
		applogger.Int("bars", res.Bars),
		applogger.Int("matches", len(matches)),
		applogger.Time("generated_at", res.GeneratedAt),
		applogger.Duration("took_ms", time.Since(began)),
	)
	return res, nil
}

// ScanAll evaluates every implemented kind against one featured snapshot.
// Kinds run in parallel; each list stays in date order. A failing kind is
// reported in Errors and does not abort the others.
func (uc *PatternAnalysis) ScanAll(ctx context.Context, p AnalysisParams) (*models.ScanResult, error) {
	p = uc.withDefaults(p)
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	s, err := uc.load(ctx, p)
	if err != nil {
		return nil, err
	}
	began := time.Now()
	featured, err := features.NewEngine(features.WithWindow(p.LookBack, p.LookForward)).Featurize(s)
	if err != nil {
		uc.metrics.RecordError("featurize")
		return nil, fmt.Errorf("featurize: %w", err)
	}

	type item struct {
		kind    models.PatternKind
		matches []models.PatternMatch
		err     error
	}
	kinds := patterns.Implemented()
	ch := make(chan item, len(kinds))
	var wg sync.WaitGroup
	for _, k := range kinds {
		wg.Add(1)
		go func(k models.PatternKind) {
			defer wg.Done()
			m, err := patterns.Evaluate(featured, k)
			ch <- item{k, m, err}
		}(k)
	}
	go func() { wg.Wait(); close(ch) }()

	res := &models.ScanResult{
		RunID:       uc.newID(),
		Country:     p.Country,
		Start:       s[0].Date,
		End:         s[len(s)-1].Date,
		Bars:        len(s),
		Matches:     make(map[string][]models.PatternMatch, len(kinds)),
		Errors:      map[string]string{},
		GeneratedAt: uc.now().UTC(),
	}
	var all []models.PatternMatch
	for it := range ch {
		if it.err != nil {
			res.Errors[it.kind.String()] = it.err.Error()
			continue
		}
		res.Matches[it.kind.String()] = it.matches
		uc.metrics.RecordMatches(it.kind.String(), len(it.matches))
		all = append(all, it.matches...)
	}
	uc.metrics.RecordRun("all", len(s), time.Since(began).Seconds())

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Index != all[j].Index {
			return all[i].Index < all[j].Index
		}
		return all[i].Kind < all[j].Kind
	})
	routed := &models.AnalysisResult{
		RunID: res.RunID, Country: res.Country, Start: res.Start, End: res.End,
		Bars: res.Bars, Matches: all, GeneratedAt: res.GeneratedAt,
	}
	if err := uc.router.Route(ctx, routed); err != nil {
		return nil, err
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	fields := []applogger.Field{
		applogger.String("run_id", res.RunID),
		applogger.String("country", p.Country),
		applogger.Date("start", res.Start),
		applogger.Date("end", res.End),
		applogger.Int("bars", res.Bars),
		applogger.Int("matches", len(all)),
		applogger.Duration("took_ms", time.Since(began)),
	}
	if res.Errors != nil {
		fields = append(fields, applogger.Any("failed_kinds", res.Errors))
	}
	uc.l.Info("scan finished", fields...)
	return res, nil
}

// Featured returns the selected series with every derived field filled in.
func (uc *PatternAnalysis) Featured(ctx context.Context, p AnalysisParams) (models.Series, error) {
	p = uc.withDefaults(p)
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	s, err := uc.load(ctx, p)
	if err != nil {
		return nil, err
	}
	featured, err := features.NewEngine(features.WithWindow(p.LookBack, p.LookForward)).Featurize(s)
	if err != nil {
		return nil, fmt.Errorf("featurize: %w", err)
	}
	return featured, nil
}

// Countries lists the countries the bar store can serve.
func (uc *PatternAnalysis) Countries(ctx context.Context) ([]string, error) {
	return uc.bars.Countries(ctx)
}
