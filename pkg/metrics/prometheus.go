package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	seriesBars   prometheus.Histogram
	matches      *prometheus.CounterVec
	cache        *prometheus.CounterVec
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
}

// New registers the recorder's collectors with reg. A nil reg uses the
// default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlescan_analysis_runs_total",
				Help: "Analyses run, by pattern",
			},
			[]string{"pattern"},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlescan_analysis_duration_seconds",
				Help:    "Featurize plus evaluate time per analysis",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"pattern"},
		),
		seriesBars: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "candlescan_series_bars",
				Help:    "Bars per analysed series",
				Buckets: prometheus.ExponentialBuckets(16, 2, 12),
			},
		),
		matches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlescan_pattern_matches_total",
				Help: "Detected pattern occurrences",
			},
			[]string{"pattern"},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlescan_result_cache_total",
				Help: "Result cache lookups by outcome",
			},
			[]string{"result"},
		),
		messagesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlescan_matches_routed_total",
				Help: "Matches handed to a backend",
			},
			[]string{"backend"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlescan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordRun records one finished analysis.
func (r *Recorder) RecordRun(kind string, bars int, seconds float64) {
	r.runs.WithLabelValues(kind).Inc()
	r.runDuration.WithLabelValues(kind).Observe(seconds)
	r.seriesBars.Observe(float64(bars))
}

// RecordMatches adds n detected occurrences of kind.
func (r *Recorder) RecordMatches(kind string, n int) {
	r.matches.WithLabelValues(kind).Add(float64(n))
}

// RecordCache records a result cache hit or miss.
func (r *Recorder) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}

// RecordMessageSent records n matches sent to a backend.
func (r *Recorder) RecordMessageSent(backend string, n int) {
	r.messagesSent.WithLabelValues(backend).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop satisfies repository.Metrics and records nothing.
type Nop struct{}

func (Nop) RecordRun(string, int, float64) {}
func (Nop) RecordMatches(string, int)      {}
func (Nop) RecordCache(bool)               {}
func (Nop) RecordMessageSent(string, int)  {}
func (Nop) RecordError(string)             {}
