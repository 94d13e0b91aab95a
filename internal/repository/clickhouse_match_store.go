package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CandleScan/internal/domain/models"
	domrepo "CandleScan/internal/domain/repository"
	pkgch "CandleScan/pkg/clickhouse"
)

const matchColumns = "run_id, country, pattern, date, idx, open, high, low, close, body, q25_body, q50_body, generated_at"

// CHMatchStore implements Storage on a ReplacingMergeTree table; rerunning
// an analysis replaces earlier rows for the same (country, pattern, date).
type CHMatchStore struct {
	ch        *pkgch.Client
	table     string
	chunkSize int
	schema    []string
}

// NewCHMatchStore stores matches in table. schema holds the DDL Init runs.
func NewCHMatchStore(ch *pkgch.Client, table string, chunkSize int, schema []string) domrepo.Storage {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &CHMatchStore{ch: ch, table: ch.Table(table), chunkSize: chunkSize, schema: schema}
}

func (s *CHMatchStore) Init(ctx context.Context) error {
	if err := s.ch.InitSchema(ctx, s.schema); err != nil {
		return err
	}
	return s.ch.Health(ctx)
}

func (s *CHMatchStore) StoreBatch(ctx context.Context, r *models.AnalysisResult) error {
	events := r.Events()
	q := fmt.Sprintf("INSERT INTO %s (%s)", s.table, matchColumns)
	for start := 0; start < len(events); start += s.chunkSize {
		end := min(start+s.chunkSize, len(events))
		err := s.ch.InBatch(ctx, q, func(stmt *sql.Stmt) error {
			for _, ev := range events[start:end] {
				date, err := time.Parse(models.DateLayout, ev.Date)
				if err != nil {
					return fmt.Errorf("match date %q: %w", ev.Date, err)
				}
				if _, err := stmt.ExecContext(ctx,
					ev.RunID, ev.Country, ev.Pattern.String(), date, uint32(ev.Index),
					ev.Open, ev.High, ev.Low, ev.Close, ev.Body, ev.Q25Body, ev.Q50Body,
					ev.GeneratedAt,
				); err != nil {
					return fmt.Errorf("append match: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("store matches: %w", err)
		}
	}
	return nil
}

// Query returns stored matches in date order. Only the defining bar is
// kept in storage, so each match carries a single bar.
func (s *CHMatchStore) Query(ctx context.Context, country string, kind models.PatternKind, from, to time.Time) ([]models.PatternMatch, error) {
	q := fmt.Sprintf(`
        SELECT date, idx, open, high, low, close, body, q25_body, q50_body
        FROM %s FINAL
        WHERE country = ? AND pattern = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `, s.table)
	rows, err := s.ch.DB().QueryContext(ctx, q, country, kind.String(), from, to)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	out := make([]models.PatternMatch, 0)
	for rows.Next() {
		var (
			b   models.Bar
			idx uint32
		)
		if err := rows.Scan(&b.Date, &idx, &b.Open, &b.High, &b.Low, &b.Close, &b.Body, &b.Q25Body, &b.Q50Body); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		b.Date = b.Date.UTC()
		out = append(out, models.PatternMatch{Date: b.Date, Kind: kind, Index: int(idx), Bars: []models.Bar{b}})
	}
	return out, rows.Err()
}

func (s *CHMatchStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHMatchStore) Close() error {
	return nil // pool owned by pkg/clickhouse.Client
}
