package cache

import (
	"context"
	"testing"
	"time"

	"CandleScan/internal/domain/models"
	pkgcache "CandleScan/pkg/cache"
)

func TestResultCacheRoundTrip(t *testing.T) {
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()
	rc := NewResultCache(mem, time.Minute, nil)
	ctx := context.Background()

	if _, ok := rc.GetResult(ctx, "us:hammer"); ok {
		t.Fatalf("empty cache should miss")
	}

	d := time.Date(2021, 3, 5, 0, 0, 0, 0, time.UTC)
	in := &models.AnalysisResult{
		RunID:   "r1",
		Country: "us",
		Kind:    models.MorningStar,
		Bars:    10,
		Matches: []models.PatternMatch{{Date: d, Kind: models.MorningStar, Index: 7, Bars: []models.Bar{{Date: d, Close: 1}}}},
	}
	rc.SetResult(ctx, "us:morning", in)

	out, ok := rc.GetResult(ctx, "us:morning")
	if !ok {
		t.Fatalf("expected hit")
	}
	if out.Kind != models.MorningStar || len(out.Matches) != 1 || !out.Matches[0].Date.Equal(d) || out.Matches[0].Index != 7 {
		t.Fatalf("round trip lost data: %+v", out)
	}
}

func TestNoopNeverHits(t *testing.T) {
	var c Noop
	c.SetResult(context.Background(), "k", &models.AnalysisResult{})
	if _, ok := c.GetResult(context.Background(), "k"); ok {
		t.Fatalf("noop cache hit")
	}
}
