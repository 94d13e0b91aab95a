package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"CandleScan/internal/domain/models"
	icache "CandleScan/internal/service/cache"
	pkgcache "CandleScan/pkg/cache"
	"CandleScan/pkg/metrics"
)

func day(i int) time.Time {
	return time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func bar(i int, o, h, l, c float64) models.Bar {
	return models.Bar{Date: day(i), Open: o, High: h, Low: l, Close: c}
}

// hammerSeries has exactly one hammer, at index 4.
func hammerSeries() models.Series {
	return models.Series{
		bar(0, 120, 121, 114, 115),
		bar(1, 115, 116, 109, 110),
		bar(2, 110, 111, 104, 105),
		bar(3, 107, 108, 101, 102),
		bar(4, 100, 101.5, 90, 101),
		bar(5, 101, 107, 100, 106),
	}
}

type fakeBars struct {
	mu     sync.Mutex
	series map[string]models.Series
	err    error
	loads  int
}

func (f *fakeBars) Load(_ context.Context, country string, start, end time.Time) (models.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.series[country]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSeriesNotFound, country)
	}
	out := models.Series{}
	for _, b := range s {
		if (start.IsZero() || !b.Date.Before(start)) && (end.IsZero() || !b.Date.After(end)) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBars) Countries(context.Context) ([]string, error) {
	var out []string
	for c := range f.series {
		out = append(out, c)
	}
	return out, nil
}

type fakePublisher struct {
	mu      sync.Mutex
	results []*models.AnalysisResult
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, r *models.AnalysisResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.results = append(p.results, r)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeStorage struct {
	stored []*models.AnalysisResult
}

func (s *fakeStorage) Init(context.Context) error { return nil }
func (s *fakeStorage) StoreBatch(_ context.Context, r *models.AnalysisResult) error {
	s.stored = append(s.stored, r)
	return nil
}
func (s *fakeStorage) Query(context.Context, string, models.PatternKind, time.Time, time.Time) ([]models.PatternMatch, error) {
	return nil, nil
}
func (s *fakeStorage) Health(context.Context) error { return nil }
func (s *fakeStorage) Close() error                 { return nil }

func newAnalysis(t *testing.T, bars *fakeBars, pub *fakePublisher) *PatternAnalysis {
	t.Helper()
	router, err := NewMatchRouter(pub, nil, metrics.Nop{}, BackendKafka, nil)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	mem := pkgcache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })
	uc := NewPatternAnalysis(bars, router, icache.NewResultCache(mem, time.Minute, nil), metrics.Nop{}, nil, 3, 1)
	n := 0
	uc.newID = func() string { n++; return fmt.Sprintf("run-%d", n) }
	return uc
}

func TestAnalyzeHammer(t *testing.T) {
	ms, err := Analyze(hammerSeries(), models.Hammer)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(ms) != 1 || ms[0].Index != 4 || !ms[0].Date.Equal(day(4)) {
		t.Fatalf("want one hammer at 4, got %+v", ms)
	}
}

func TestAnalyzeNoMatchesIsEmptyList(t *testing.T) {
	ms, err := Analyze(hammerSeries(), models.ThreeWhiteSoldiers)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if ms == nil || len(ms) != 0 {
		t.Fatalf("want empty non-nil list, got %#v", ms)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	if _, err := Analyze(nil, models.Hammer); !errors.Is(err, models.ErrEmptySeries) {
		t.Fatalf("want ErrEmptySeries, got %v", err)
	}
	ms, err := Analyze(hammerSeries(), models.Doji)
	if !errors.Is(err, models.ErrUnrecognizedPattern) || ms != nil {
		t.Fatalf("doji: want ErrUnrecognizedPattern and no list, got %v %v", ms, err)
	}
	if _, err := Analyze(nil, models.Doji); !errors.Is(err, models.ErrUnrecognizedPattern) {
		t.Fatalf("kind is checked before the series, got %v", err)
	}
	unordered := hammerSeries()
	unordered[1], unordered[2] = unordered[2], unordered[1]
	if _, err := Analyze(unordered, models.Hammer); !errors.Is(err, models.ErrUnorderedSeries) {
		t.Fatalf("want ErrUnorderedSeries, got %v", err)
	}
	gap := hammerSeries()
	gap[3].Open = math.NaN()
	if ms, err := Analyze(gap, models.Hammer); !errors.Is(err, models.ErrInvalidBar) || ms != nil {
		t.Fatalf("want ErrInvalidBar and no list, got %v %v", ms, err)
	}
}

func TestRunRoutesAndCaches(t *testing.T) {
	bars := &fakeBars{series: map[string]models.Series{"us": hammerSeries()}}
	pub := &fakePublisher{}
	uc := newAnalysis(t, bars, pub)
	p := AnalysisParams{Country: "us", Kind: models.Hammer, Start: day(0), End: day(30)}

	res, err := uc.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.RunID != "run-1" || res.Bars != 6 || len(res.Matches) != 1 || res.Matches[0].Index != 4 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.Start.Equal(day(0)) || !res.End.Equal(day(5)) {
		t.Fatalf("result should carry the actual series bounds, got %v..%v", res.Start, res.End)
	}
	if len(pub.results) != 1 {
		t.Fatalf("want 1 routed result, got %d", len(pub.results))
	}

	again, err := uc.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.RunID != "run-1" || bars.loads != 1 || len(pub.results) != 1 {
		t.Fatalf("second run should be served from cache: id=%s loads=%d routed=%d", again.RunID, bars.loads, len(pub.results))
	}

	p.LookForward = 2
	if _, err := uc.Run(context.Background(), p); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if bars.loads != 2 {
		t.Fatalf("a different window must not hit the cache")
	}
}

func TestRunErrors(t *testing.T) {
	bars := &fakeBars{series: map[string]models.Series{"us": hammerSeries()}}
	uc := newAnalysis(t, bars, &fakePublisher{})
	ctx := context.Background()

	if _, err := uc.Run(ctx, AnalysisParams{Country: "xx", Kind: models.Hammer}); !errors.Is(err, models.ErrSeriesNotFound) {
		t.Fatalf("want ErrSeriesNotFound, got %v", err)
	}
	if _, err := uc.Run(ctx, AnalysisParams{Country: "us", Kind: models.Hammer, Start: day(100), End: day(200)}); !errors.Is(err, models.ErrEmptySeries) {
		t.Fatalf("want ErrEmptySeries, got %v", err)
	}
	if _, err := uc.Run(ctx, AnalysisParams{Country: "us", Kind: models.EveningStar}); !errors.Is(err, models.ErrUnrecognizedPattern) {
		t.Fatalf("want ErrUnrecognizedPattern, got %v", err)
	}
	inverted := AnalysisParams{Country: "us", Kind: models.Hammer, Start: day(5), End: day(1)}
	if _, err := uc.Run(ctx, inverted); !errors.Is(err, models.ErrInvalidRange) {
		t.Fatalf("want ErrInvalidRange, got %v", err)
	}
	if bars.loads != 2 {
		t.Fatalf("unrecognized kind and inverted range should fail before loading, loads=%d", bars.loads)
	}
}

func TestRunRoutingFailureIsNotCached(t *testing.T) {
	bars := &fakeBars{series: map[string]models.Series{"us": hammerSeries()}}
	pub := &fakePublisher{err: errors.New("broker down")}
	uc := newAnalysis(t, bars, pub)
	p := AnalysisParams{Country: "us", Kind: models.Hammer}

	if _, err := uc.Run(context.Background(), p); err == nil {
		t.Fatalf("expected routing error")
	}
	pub.err = nil
	if _, err := uc.Run(context.Background(), p); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if bars.loads != 2 || len(pub.results) != 1 {
		t.Fatalf("failed run must not be cached: loads=%d routed=%d", bars.loads, len(pub.results))
	}
}

func TestScanAll(t *testing.T) {
	s := hammerSeries()
	// append a bullish engulfing pair after the hammer history
	s = append(s, bar(6, 110, 111, 99, 100), bar(7, 95, 121, 94, 120))
	bars := &fakeBars{series: map[string]models.Series{"us": s}}
	pub := &fakePublisher{}
	uc := newAnalysis(t, bars, pub)

	res, err := uc.ScanAll(context.Background(), AnalysisParams{Country: "us"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(res.Matches) != 8 || res.Errors != nil {
		t.Fatalf("want lists for 8 kinds and no errors, got %d %v", len(res.Matches), res.Errors)
	}
	want, err := Analyze(s, models.BullishEngulfing)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	got := res.Matches["bull_engulf"]
	if len(got) != len(want) {
		t.Fatalf("scan and single-kind analysis disagree: %d vs %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Index != want[i].Index {
			t.Fatalf("match %d: %d vs %d", i, got[i].Index, want[i].Index)
		}
	}
	for kind, list := range res.Matches {
		for i := 1; i < len(list); i++ {
			if !list[i].Date.After(list[i-1].Date) {
				t.Fatalf("%s not chronological", kind)
			}
		}
	}
	if bars.loads != 1 {
		t.Fatalf("scan should load once, loaded %d", bars.loads)
	}
	if len(pub.results) != 1 {
		t.Fatalf("scan should route once, routed %d", len(pub.results))
	}
}

func TestFeatured(t *testing.T) {
	bars := &fakeBars{series: map[string]models.Series{"us": hammerSeries()}}
	uc := newAnalysis(t, bars, &fakePublisher{})
	s, err := uc.Featured(context.Background(), AnalysisParams{Country: "us"})
	if err != nil {
		t.Fatalf("featured: %v", err)
	}
	if len(s) != 6 || !s[4].IsLocalMin || s[4].Body != 1 {
		t.Fatalf("unexpected featured series %+v", s[4])
	}
}

func TestMatchRouterBackends(t *testing.T) {
	res := &models.AnalysisResult{Country: "us", Matches: []models.PatternMatch{{Kind: models.Hammer}}}
	ctx := context.Background()

	none, err := NewMatchRouter(nil, nil, metrics.Nop{}, "", nil)
	if err != nil || none.Backend() != BackendNone {
		t.Fatalf("empty backend should mean none: %v", err)
	}
	if err := none.Route(ctx, res); err != nil {
		t.Fatalf("none: %v", err)
	}

	store := &fakeStorage{}
	ch, err := NewMatchRouter(nil, store, metrics.Nop{}, BackendClickHouse, nil)
	if err != nil {
		t.Fatalf("clickhouse router: %v", err)
	}
	if err := ch.Route(ctx, res); err != nil || len(store.stored) != 1 {
		t.Fatalf("clickhouse route: %v, stored %d", err, len(store.stored))
	}
	if err := ch.Route(ctx, &models.AnalysisResult{}); err != nil || len(store.stored) != 1 {
		t.Fatalf("empty result should not be stored")
	}

	if _, err := NewMatchRouter(nil, nil, metrics.Nop{}, BackendKafka, nil); err == nil {
		t.Fatalf("kafka without publisher should fail")
	}
	if _, err := NewMatchRouter(nil, nil, metrics.Nop{}, "s3", nil); err == nil {
		t.Fatalf("unknown backend should fail")
	}
}
