package di

import (
	"CandleScan/internal/domain/repository"
	"CandleScan/internal/usecase"
	"CandleScan/pkg/metrics"
)

// Scanner is the one-shot analysis graph used by the CLI. Its resources are
// released by the cleanup InitializeScanner returns.
type Scanner struct {
	Analysis *usecase.PatternAnalysis
}

// ProvideNopMetrics is used where nothing scrapes the process.
func ProvideNopMetrics() repository.Metrics {
	return metrics.Nop{}
}

func ProvideScanner(uc *usecase.PatternAnalysis) *Scanner {
	return &Scanner{Analysis: uc}
}
