package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"CandleScan/internal/domain/models"
	domrepo "CandleScan/internal/domain/repository"
	icache "CandleScan/internal/service/cache"
	"CandleScan/internal/usecase"
	"CandleScan/pkg/metrics"
)

type memBars map[string]models.Series

func (m memBars) Load(_ context.Context, country string, start, end time.Time) (models.Series, error) {
	s, ok := m[country]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSeriesNotFound, country)
	}
	out := models.Series{}
	for _, b := range s {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m memBars) Countries(context.Context) ([]string, error) {
	return []string{"us"}, nil
}

func newEcho(t *testing.T) *echo.Echo {
	return newEchoWithHistory(t, nil)
}

func newEchoWithHistory(t *testing.T, history domrepo.Storage) *echo.Echo {
	t.Helper()
	d := func(i int) time.Time { return time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i) }
	bars := memBars{"us": {
		{Date: d(0), Open: 120, High: 121, Low: 114, Close: 115},
		{Date: d(1), Open: 115, High: 116, Low: 109, Close: 110},
		{Date: d(2), Open: 110, High: 111, Low: 104, Close: 105},
		{Date: d(3), Open: 107, High: 108, Low: 101, Close: 102},
		{Date: d(4), Open: 100, High: 101.5, Low: 90, Close: 101},
		{Date: d(5), Open: 101, High: 107, Low: 100, Close: 106},
	}}
	router, err := usecase.NewMatchRouter(nil, nil, metrics.Nop{}, usecase.BackendNone, nil)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	uc := usecase.NewPatternAnalysis(bars, router, icache.Noop{}, metrics.Nop{}, nil, 3, 1)
	e := echo.New()
	NewPatternsEchoHandler(nil, uc, history).RegisterRoutes(e)
	return e
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func get(t *testing.T, e *echo.Echo, target string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s: decode %q: %v", target, rec.Body.String(), err)
	}
	return rec.Code, env
}

func errorCode(t *testing.T, env envelope) string {
	t.Helper()
	var errs []struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(env.Data, &errs); err != nil || len(errs) == 0 {
		t.Fatalf("expected error list, got %s", env.Data)
	}
	return errs[0].Code
}

func TestScanHammer(t *testing.T) {
	e := newEcho(t)
	code, env := get(t, e, "/api/patterns/scan?country=us&pattern=hammer")
	if code != http.StatusOK {
		t.Fatalf("want 200, got %d %s", code, env.Data)
	}
	var res models.AnalysisResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Kind != models.Hammer || len(res.Matches) != 1 || res.Matches[0].Index != 4 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestScanErrorMapping(t *testing.T) {
	e := newEcho(t)
	cases := []struct {
		target string
		status int
		code   string
	}{
		{"/api/patterns/scan?country=us&pattern=triple_top", http.StatusBadRequest, "ERR_UNRECOGNIZED_PATTERN"},
		{"/api/patterns/scan?country=us&pattern=doji", http.StatusBadRequest, "ERR_NOT_IMPLEMENTED"},
		{"/api/patterns/scan?country=fr&pattern=hammer", http.StatusNotFound, "ERR_SERIES_NOT_FOUND"},
		{"/api/patterns/scan?country=us&pattern=hammer&start=2022-01-01&end=2022-02-01", http.StatusNotFound, "ERR_EMPTY_SERIES"},
		{"/api/patterns/scan?country=us&pattern=hammer&start=2022-01-01&end=2021-01-01", http.StatusBadRequest, "ERR_BAD_REQUEST"},
		{"/api/patterns/scan?country=us", http.StatusBadRequest, "ERR_REQUIRED"},
		{"/api/patterns/scan?country=us&pattern=hammer&look_back=0&look_forward=100", http.StatusBadRequest, "ERR_LTE"},
	}
	for _, tc := range cases {
		code, env := get(t, e, tc.target)
		if code != tc.status {
			t.Fatalf("%s: want %d, got %d %s", tc.target, tc.status, code, env.Data)
		}
		if got := errorCode(t, env); got != tc.code {
			t.Fatalf("%s: want %s, got %s", tc.target, tc.code, got)
		}
	}
}

func TestScanAllAndCatalogue(t *testing.T) {
	e := newEcho(t)
	code, env := get(t, e, "/api/patterns/scan-all?country=us")
	if code != http.StatusOK {
		t.Fatalf("scan-all: %d %s", code, env.Data)
	}
	var res models.ScanResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Matches) != 8 || len(res.Matches["hammer"]) != 1 {
		t.Fatalf("unexpected scan %+v", res.Matches)
	}

	code, env = get(t, e, "/api/patterns")
	if code != http.StatusOK {
		t.Fatalf("catalogue: %d", code)
	}
	var infos []models.PatternInfo
	if err := json.Unmarshal(env.Data, &infos); err != nil {
		t.Fatalf("decode catalogue: %v", err)
	}
	if len(infos) != len(models.AllPatternKinds()) || infos[0].Kind != models.Hammer || !infos[0].Implemented {
		t.Fatalf("unexpected catalogue %+v", infos)
	}
}

func TestFeaturesLimit(t *testing.T) {
	e := newEcho(t)
	code, env := get(t, e, "/api/series/features?country=us&limit=2")
	if code != http.StatusOK {
		t.Fatalf("features: %d %s", code, env.Data)
	}
	var list struct {
		Rows  []models.Bar `json:"rows"`
		Total int64        `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 6 || len(list.Rows) != 2 || list.Rows[0].Close != 101 || !list.Rows[0].IsLocalMin {
		t.Fatalf("unexpected features %+v", list)
	}
	if !strings.HasPrefix(list.Rows[1].Date.Format(models.DateLayout), "2021-03-06") {
		t.Fatalf("rows should end at the newest bar, got %v", list.Rows[1].Date)
	}
}

type storedMatches struct {
	country string
	kind    models.PatternKind
	from    time.Time
}

func (s *storedMatches) Init(context.Context) error { return nil }
func (s *storedMatches) StoreBatch(context.Context, *models.AnalysisResult) error {
	return nil
}
func (s *storedMatches) Query(_ context.Context, country string, kind models.PatternKind, from, _ time.Time) ([]models.PatternMatch, error) {
	s.country, s.kind, s.from = country, kind, from
	return []models.PatternMatch{{Kind: kind, Index: 7}}, nil
}
func (s *storedMatches) Health(context.Context) error { return nil }
func (s *storedMatches) Close() error                 { return nil }

func TestMatchesHistory(t *testing.T) {
	if code, env := get(t, newEcho(t), "/api/matches?country=us&pattern=hammer"); code != http.StatusNotFound {
		t.Fatalf("without storage want 404, got %d %s", code, env.Data)
	}

	store := &storedMatches{}
	e := newEchoWithHistory(t, store)
	code, env := get(t, e, "/api/matches?country=us&pattern=morning&start=2020-01-01")
	if code != http.StatusOK {
		t.Fatalf("matches: %d %s", code, env.Data)
	}
	if store.country != "us" || store.kind != models.MorningStar || store.from.Year() != 2020 {
		t.Fatalf("query got %+v", store)
	}
	if !strings.Contains(string(env.Data), `"total":1`) {
		t.Fatalf("unexpected body %s", env.Data)
	}
}
