//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"CandleScan/pkg/config"
	"CandleScan/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCacheService,

		// Repositories
		ProvideBarStore,
		ProvideMatchStorage,
		ProvideMatchPublisher,
		ProvideResultCache,

		// Use cases
		ProvideMatchRouter,
		ProvidePatternAnalysis,
		ProvideScanRequestHandler,

		// HTTP
		ProvideRateLimiter,
		ProvidePatternsHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeScanner wires the analysis graph without HTTP, the request
// consumer or Prometheus.
func InitializeScanner(cfg *config.Config) (*Scanner, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideNopMetrics,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCacheService,
		ProvideBarStore,
		ProvideMatchStorage,
		ProvideMatchPublisher,
		ProvideResultCache,
		ProvideMatchRouter,
		ProvidePatternAnalysis,
		ProvideScanner,
	)
	return nil, nil, nil
}
