package models

import (
	"fmt"
	"math"
	"time"
)

// Bar is one trading day of the series. The OHLC fields come from the data
// source; the remaining fields are derived by the feature engine.
type Bar struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`

	Body       float64 `json:"body"`
	LowerWick  float64 `json:"lower_wick"`
	UpperWick  float64 `json:"upper_wick"`
	Q25Body    float64 `json:"q25_body"`
	Q50Body    float64 `json:"q50_body"`
	IsLocalMin bool    `json:"is_local_min"`
	IsLocalMax bool    `json:"is_local_max"`
}

// Green reports a close above the open.
func (b Bar) Green() bool { return b.Close > b.Open }

// Red reports an open above the close.
func (b Bar) Red() bool { return b.Open > b.Close }

// Series is an ordered run of bars, strictly increasing by date.
type Series []Bar

// Validate checks the invariants the core relies on: finite prices and
// strictly increasing dates.
func (s Series) Validate() error {
	for i, b := range s {
		if !finite(b.Open) || !finite(b.High) || !finite(b.Low) || !finite(b.Close) {
			return fmt.Errorf("%w: bar %d (%s) has a non-finite price",
				ErrInvalidBar, i, b.Date.Format(DateLayout))
		}
		if i > 0 && !b.Date.After(s[i-1].Date) {
			return fmt.Errorf("%w: bar %d (%s) not after bar %d (%s)",
				ErrUnorderedSeries, i, b.Date.Format(DateLayout), i-1, s[i-1].Date.Format(DateLayout))
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Closes returns the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Clone returns a copy that shares no backing array with s.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// DateLayout is the canonical calendar date format used on every surface.
const DateLayout = "2006-01-02"
