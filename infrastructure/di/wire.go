//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"catalog/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideClock,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideStorage,
	ProvideCache,
	ProvideSlugRegistry,
	ProvideEventPublisher,
	ProvidePrometheusMetrics,
	ProvideMetricsRecorder,
	ProvideTracer,
	ProvideHierarchyService,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
