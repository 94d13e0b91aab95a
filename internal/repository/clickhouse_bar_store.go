package repository

import (
	"context"
	"fmt"
	"time"

	"CandleScan/internal/domain/models"
	domrepo "CandleScan/internal/domain/repository"
	"CandleScan/internal/services/prep"
	pkgch "CandleScan/pkg/clickhouse"
	applogger "CandleScan/pkg/logger"
)

// CHBarStore reads daily bars from a ClickHouse table keyed by
// (country, date).
type CHBarStore struct {
	ch    *pkgch.Client
	table string
	l     *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, table string, l *applogger.Logger) domrepo.BarStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHBarStore{ch: ch, table: ch.Table(table), l: l}
}

func (s *CHBarStore) Load(ctx context.Context, country string, start, end time.Time) (models.Series, error) {
	began := time.Now()
	if end.IsZero() {
		end = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	q := fmt.Sprintf(`
        SELECT date, open, high, low, close
        FROM %s FINAL
        WHERE country = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `, s.table)
	rows, err := s.ch.DB().QueryContext(ctx, q, country, start, end)
	if err != nil {
		s.l.Error("clickhouse load bars query error",
			applogger.String("table", s.table),
			applogger.String("country", country),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer rows.Close()

	raw := make([]models.Bar, 0, 1024)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = b.Date.UTC()
		raw = append(raw, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if len(raw) == 0 {
		known, err := s.hasCountry(ctx, country)
		if err != nil {
			return nil, err
		}
		if !known {
			return nil, fmt.Errorf("%w: %s", models.ErrSeriesNotFound, country)
		}
	}

	series, rep := prep.Clean(raw)
	s.l.Debug("clickhouse bars loaded",
		applogger.String("country", country),
		applogger.Int("rows", rep.Input),
		applogger.Int("bad_values", rep.BadValues),
		applogger.Int("selected", len(series)),
		applogger.Duration("took_ms", time.Since(began)),
	)
	return series, nil
}

func (s *CHBarStore) hasCountry(ctx context.Context, country string) (bool, error) {
	var n uint64
	q := fmt.Sprintf("SELECT count() FROM %s WHERE country = ?", s.table)
	if err := s.ch.DB().QueryRowContext(ctx, q, country).Scan(&n); err != nil {
		return false, fmt.Errorf("count bars: %w", err)
	}
	return n > 0, nil
}

func (s *CHBarStore) Countries(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT country FROM %s ORDER BY country", s.table)
	rows, err := s.ch.DB().QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
