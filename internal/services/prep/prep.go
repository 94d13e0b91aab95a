// Package prep turns raw bar rows into a series the feature engine accepts.
package prep

import (
	"math"
	"sort"
	"time"

	"CandleScan/internal/domain/models"
)

// Report counts what Clean removed.
type Report struct {
	Input      int `json:"input"`
	BadValues  int `json:"bad_values"`
	Duplicates int `json:"duplicates"`
	Kept       int `json:"kept"`
}

// Clean drops rows with non-finite prices, a zero date or high < low,
// sorts by date and removes repeated dates. Of two rows sharing a date the
// one that came first in rows is kept. rows is not modified.
func Clean(rows []models.Bar) (models.Series, Report) {
	rep := Report{Input: len(rows)}

	out := make(models.Series, 0, len(rows))
	for _, b := range rows {
		if !usable(b) {
			rep.BadValues++
			continue
		}
		out = append(out, models.Bar{
			Date:  b.Date,
			Open:  b.Open,
			High:  b.High,
			Low:   b.Low,
			Close: b.Close,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	uniq := out[:0]
	for i, b := range out {
		if i > 0 && b.Date.Equal(uniq[len(uniq)-1].Date) {
			rep.Duplicates++
			continue
		}
		uniq = append(uniq, b)
	}
	rep.Kept = len(uniq)
	return uniq, rep
}

// Restrict keeps the bars dated within [start, end]. A zero bound is open.
// The result shares no memory with s.
func Restrict(s models.Series, start, end time.Time) models.Series {
	lo := 0
	if !start.IsZero() {
		lo = sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(start) })
	}
	hi := len(s)
	if !end.IsZero() {
		hi = sort.Search(len(s), func(i int) bool { return s[i].Date.After(end) })
	}
	if hi < lo {
		hi = lo
	}
	out := make(models.Series, hi-lo)
	copy(out, s[lo:hi])
	return out
}

func usable(b models.Bar) bool {
	if b.Date.IsZero() {
		return false
	}
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.High >= b.Low
}
