package repository

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"CandleScan/internal/domain/models"
	domrepo "CandleScan/internal/domain/repository"
	"CandleScan/internal/services/prep"
	applogger "CandleScan/pkg/logger"
	"CandleScan/pkg/util"
)

// FileSuffix names the per-country bar files: <country>-bond-yield.csv.
const FileSuffix = "-bond-yield.csv"

// CSVBarStore reads daily bars from per-country CSV exports with a
// Date,Price,Open,High,Low[,Change %] header. Price is the close.
type CSVBarStore struct {
	dir string
	l   *applogger.Logger
}

func NewCSVBarStore(dir string, l *applogger.Logger) domrepo.BarStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVBarStore{dir: dir, l: l}
}

func (s *CSVBarStore) Load(ctx context.Context, country string, start, end time.Time) (models.Series, error) {
	path, err := s.path(country)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrSeriesNotFound, country)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, skipped, err := readBars(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	series, rep := prep.Clean(rows)
	out := prep.Restrict(series, start, end)

	s.l.Debug("csv bars loaded",
		applogger.String("country", country),
		applogger.Int("rows", rep.Input+skipped),
		applogger.Int("unparsable", skipped),
		applogger.Int("bad_values", rep.BadValues),
		applogger.Int("duplicates", rep.Duplicates),
		applogger.Int("selected", len(out)),
	)
	return out, nil
}

// Countries lists every country with a bar file, sorted.
func (s *CSVBarStore) Countries(_ context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+FileSuffix))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(filepath.Base(m), FileSuffix))
	}
	sort.Strings(out)
	return out, nil
}

func (s *CSVBarStore) path(country string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(country))
	if c == "" || strings.ContainsAny(c, `/\.`) {
		return "", fmt.Errorf("%w: invalid country %q", models.ErrSeriesNotFound, country)
	}
	return filepath.Join(s.dir, c+FileSuffix), nil
}

type columns struct {
	date, close, open, high, low int
}

func headerColumns(header []string) (columns, error) {
	idx := map[string]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		idx[h] = i
	}
	col := func(names ...string) int {
		for _, n := range names {
			if i, ok := idx[n]; ok {
				return i
			}
		}
		return -1
	}
	c := columns{
		date:  col("date"),
		close: col("price", "close"),
		open:  col("open"),
		high:  col("high"),
		low:   col("low"),
	}
	if c.date < 0 || c.close < 0 || c.open < 0 || c.high < 0 || c.low < 0 {
		return c, fmt.Errorf("header %v lacks one of date, price, open, high, low", header)
	}
	return c, nil
}

// readBars parses every record it can; malformed records are counted and
// skipped.
func readBars(ctx context.Context, r io.Reader) ([]models.Bar, int, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("header: %w", err)
	}
	col, err := headerColumns(header)
	if err != nil {
		return nil, 0, err
	}
	need := max(col.date, col.close, col.open, col.high, col.low) + 1

	var (
		out     []models.Bar
		skipped int
	)
	for line := 1; ; line++ {
		if line%4096 == 0 && ctx.Err() != nil {
			return nil, skipped, ctx.Err()
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil || len(rec) < need {
			skipped++
			continue
		}
		b, ok := parseRecord(rec, col)
		if !ok {
			skipped++
			continue
		}
		out = append(out, b)
	}
	return out, skipped, nil
}

func parseRecord(rec []string, col columns) (models.Bar, bool) {
	date, ok := util.ParseDate(rec[col.date])
	if !ok {
		return models.Bar{}, false
	}
	var vals [4]float64
	for i, c := range []int{col.open, col.high, col.low, col.close} {
		v, err := util.ParseNumber(rec[c])
		if err != nil {
			return models.Bar{}, false
		}
		vals[i] = v
	}
	return models.Bar{Date: date, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}, true
}
