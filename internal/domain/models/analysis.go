package models

import "time"

// AnalysisResult is what one analysis request produces.
type AnalysisResult struct {
	RunID       string         `json:"run_id"`
	Country     string         `json:"country"`
	Kind        PatternKind    `json:"pattern"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Bars        int            `json:"bars"`
	Matches     []PatternMatch `json:"matches"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// ScanResult holds the per-kind match lists of a full catalogue scan.
// Each list is in chronological order.
type ScanResult struct {
	RunID       string                    `json:"run_id"`
	Country     string                    `json:"country"`
	Start       time.Time                 `json:"start"`
	End         time.Time                 `json:"end"`
	Bars        int                       `json:"bars"`
	Matches     map[string][]PatternMatch `json:"matches"`
	Errors      map[string]string         `json:"errors,omitempty"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// MatchEvent is the flat record of one match sent to Kafka and stored in
// ClickHouse. Prices are those of the defining bar.
type MatchEvent struct {
	RunID       string      `json:"run_id"`
	Country     string      `json:"country"`
	Pattern     PatternKind `json:"pattern"`
	Date        string      `json:"date"`
	Index       int         `json:"index"`
	Open        float64     `json:"open"`
	High        float64     `json:"high"`
	Low         float64     `json:"low"`
	Close       float64     `json:"close"`
	Body        float64     `json:"body"`
	Q25Body     float64     `json:"q25_body"`
	Q50Body     float64     `json:"q50_body"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// Events flattens r into one event per match, in match order.
func (r *AnalysisResult) Events() []MatchEvent {
	out := make([]MatchEvent, 0, len(r.Matches))
	for _, m := range r.Matches {
		ev := MatchEvent{
			RunID:       r.RunID,
			Country:     r.Country,
			Pattern:     m.Kind,
			Date:        m.Date.Format(DateLayout),
			Index:       m.Index,
			GeneratedAt: r.GeneratedAt,
		}
		if n := len(m.Bars); n > 0 {
			b := m.Bars[n-1]
			ev.Open, ev.High, ev.Low, ev.Close = b.Open, b.High, b.Low, b.Close
			ev.Body, ev.Q25Body, ev.Q50Body = b.Body, b.Q25Body, b.Q50Body
		}
		out = append(out, ev)
	}
	return out
}
