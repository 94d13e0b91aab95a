package features

import (
	"fmt"

	"CandleScan/internal/domain/models"
)

const (
	// DefaultLookBack and DefaultLookForward are the catalogue's extrema window.
	DefaultLookBack    = 3
	DefaultLookForward = 1

	Q25 = 0.25
	Q50 = 0.50
)

// Engine derives every per-bar feature the pattern rules read.
type Engine struct {
	lookBack    int
	lookForward int
}

// Option configures Engine.
type Option func(*Engine)

// WithWindow sets the extrema window.
func WithWindow(lookBack, lookForward int) Option {
	return func(e *Engine) {
		e.lookBack = lookBack
		e.lookForward = lookForward
	}
}

// NewEngine creates an engine with the catalogue defaults unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{lookBack: DefaultLookBack, lookForward: DefaultLookForward}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LookBack returns the configured look-back.
func (e *Engine) LookBack() int { return e.lookBack }

// LookForward returns the configured look-forward.
func (e *Engine) LookForward() int { return e.lookForward }

// Featurize returns a copy of s with geometry, body percentile bands and
// extrema flags filled in. Derived fields are always recomputed from OHLC,
// so featurizing an already featured series gives identical results.
func (e *Engine) Featurize(s models.Series) (models.Series, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	out := s.Clone()
	applyGeometry(out)

	bodies := make([]float64, len(out))
	for i := range out {
		bodies[i] = out[i].Body
	}
	bands, err := ExpandingQuantiles(bodies, Q25, Q50)
	if err != nil {
		return nil, fmt.Errorf("body quantiles: %w", err)
	}

	closes := out.Closes()
	minima, err := RollingExtremum(closes, e.lookBack, e.lookForward, true)
	if err != nil {
		return nil, err
	}
	maxima, err := RollingExtremum(closes, e.lookBack, e.lookForward, false)
	if err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Q25Body = bands[0][i]
		out[i].Q50Body = bands[1][i]
		out[i].IsLocalMin = minima[i]
		out[i].IsLocalMax = maxima[i]
	}
	return out, nil
}
