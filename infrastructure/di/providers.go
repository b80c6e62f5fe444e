package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"catalog/application/commands/bus"
	commandhandlers "catalog/application/commands/handlers"
	"catalog/application/ports"
	querybus "catalog/application/queries/bus"
	queryhandlers "catalog/application/queries/handlers"
	domainconfig "catalog/domain/config"
	"catalog/domain/services"
	"catalog/infrastructure/cache"
	"catalog/infrastructure/config"
	"catalog/infrastructure/messaging/eventbridge"
	"catalog/infrastructure/persistence/dynamodb"
	"catalog/infrastructure/persistence/memory"
	"catalog/infrastructure/persistence/postgres"
	"catalog/interfaces/http/rest"
	"catalog/pkg/observability"
	"catalog/pkg/utils"
)

// Storage groups the category store with the transaction runner that
// carries its transactions.
type Storage struct {
	Store ports.CategoryTreeStore
	Tx    ports.TxRunner
	Ready rest.ReadinessCheck

	pool *pgxpool.Pool
	pgTx *postgres.TxRunner
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	var logger *zap.Logger
	var err error

	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, nil, err
	}

	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideDomainConfig applies the configured overrides to the domain limits
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return cfg.DomainConfig()
}

// ProvideClock provides the wall clock
func ProvideClock() ports.Clock {
	return utils.SystemClock{}
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideStorage opens the configured category storage. The postgres
// backend connects, optionally migrates, and closes the pool on cleanup.
func ProvideStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Storage, func(), error) {
	if cfg.StorageBackend == config.BackendMemory {
		store := memory.NewInMemoryCategoryStore()
		logger.Warn("Using in-memory category storage")
		return &Storage{Store: store, Tx: memory.NewTxRunner(store)}, func() {}, nil
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}

	tx := postgres.NewTxRunner(pool, logger)
	return &Storage{
		Store: postgres.NewCategoryStore(pool),
		Tx:    tx,
		Ready: pool.Ping,
		pool:  pool,
		pgTx:  tx,
	}, pool.Close, nil
}

// ProvideCache creates the Redis cache when REDIS_ADDR is set and an
// in-process cache otherwise.
func ProvideCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.Cache, func(), error) {
	if cfg.RedisAddr == "" {
		c := cache.NewInMemoryCache()
		return c, func() { c.Close() }, nil
	}

	client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedisCache(client, "catalog:", logger), func() { client.Close() }, nil
}

// ProvideSlugRegistry builds the configured registry behind the resolution cache
func ProvideSlugRegistry(
	cfg *config.Config,
	storage *Storage,
	ddb *awsdynamodb.Client,
	c ports.Cache,
	logger *zap.Logger,
) (ports.SlugRegistry, error) {
	var registry ports.SlugRegistry
	switch cfg.SlugRegistryBackend {
	case config.BackendPostgres:
		if storage.pool == nil {
			return nil, fmt.Errorf("postgres slug registry requires postgres storage")
		}
		registry = postgres.NewSlugRegistry(storage.pool, storage.pgTx)
	case config.BackendDynamoDB:
		registry = dynamodb.NewSlugRegistry(ddb, cfg.DynamoDBSlugTable, logger)
	default:
		registry = memory.NewInMemorySlugRegistry()
	}
	return cache.NewCachingSlugRegistry(registry, c, cfg.SlugCacheTTL, logger), nil
}

// ProvideEventPublisher returns the EventBridge publisher, or nil when
// events are disabled.
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if !cfg.EnableEvents {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, cfg.EventSource, logger)
}

// ProvidePrometheusMetrics creates the registry served on /metrics
func ProvidePrometheusMetrics(cfg *config.Config) *observability.PrometheusMetrics {
	return observability.NewPrometheusMetrics("catalog")
}

// ProvideMetricsRecorder fans out to Prometheus, and to CloudWatch when enabled
func ProvideMetricsRecorder(
	cfg *config.Config,
	client *awscloudwatch.Client,
	prom *observability.PrometheusMetrics,
	logger *zap.Logger,
) ports.MetricsRecorder {
	recorders := observability.MultiRecorder{prom}
	if cfg.EnableMetrics {
		namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
		recorders = append(recorders, observability.NewMetrics(namespace, client, logger))
	}
	return recorders
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("catalog", cfg.EnableTracing)
}

// ProvideHierarchyService creates the domain service
func ProvideHierarchyService(domain *domainconfig.DomainConfig) *services.CategoryHierarchyService {
	return services.NewCategoryHierarchyService(domain)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	storage *Storage,
	slugs ports.SlugRegistry,
	hierarchy *services.CategoryHierarchyService,
	publisher ports.EventPublisher,
	recorder ports.MetricsRecorder,
	tracer *observability.Tracer,
	clock ports.Clock,
	domain *domainconfig.DomainConfig,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.TracingMiddleware(tracer),
		bus.MetricsMiddleware(recorder),
		bus.ValidationMiddleware(),
	)

	err := commandhandlers.RegisterAll(commandBus, commandhandlers.Dependencies{
		Store:     storage.Store,
		Slugs:     slugs,
		Tx:        storage.Tx,
		Hierarchy: hierarchy,
		Events:    publisher,
		Metrics:   recorder,
		Clock:     clock,
		Config:    domain,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	storage *Storage,
	slugs ports.SlugRegistry,
	recorder ports.MetricsRecorder,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(
		querybus.LoggingMiddleware(logger),
		querybus.MetricsMiddleware(recorder),
	)
	if err := queryhandlers.RegisterAll(queryBus, storage.Store, slugs, logger); err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	storage *Storage,
	prom *observability.PrometheusMetrics,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(commandBus, queryBus, logger, rest.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        prom,
		Tracer:         tracer,
		Ready:          storage.Ready,
		Debug:          cfg.IsDevelopment(),
	})
}
