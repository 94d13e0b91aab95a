package features

import (
	"math"

	"CandleScan/internal/domain/models"
)

// BodySize is |open - close|.
func BodySize(b models.Bar) float64 {
	return math.Abs(b.Open - b.Close)
}

// LowerWick is the part of the range below the body.
func LowerWick(b models.Bar) float64 {
	return math.Min(b.Open, b.Close) - b.Low
}

// UpperWick is the part of the range above the body.
func UpperWick(b models.Bar) float64 {
	return b.High - math.Max(b.Open, b.Close)
}

// applyGeometry writes body and wick lengths into every bar of s.
func applyGeometry(s models.Series) {
	for i := range s {
		s[i].Body = BodySize(s[i])
		s[i].LowerWick = LowerWick(s[i])
		s[i].UpperWick = UpperWick(s[i])
	}
}
