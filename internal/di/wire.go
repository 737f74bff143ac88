//go:build wireinject
// +build wireinject

package di

import (
	"ZPulse/pkg/config"
	"ZPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideAlertStore,
		ProvideAlertPublisher,
		ProvideAlertCache,
		ProvideObservationSource,

		// Use cases
		ProvideAlertDispatcher,
		ProvideEngine,
		ProvideCollector,
		ProvideKafkaAlertsHandler,

		// HTTP and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
