package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/config"
	"github.com/jm289765/concept-graph-web/internal/graphstore"
	"github.com/jm289765/concept-graph-web/internal/graphstore/dynamodb"
	"github.com/jm289765/concept-graph-web/internal/graphstore/memory"
	"github.com/jm289765/concept-graph-web/internal/logging"
	"github.com/jm289765/concept-graph-web/internal/messaging"
	"github.com/jm289765/concept-graph-web/internal/messaging/eventbridge"
	"github.com/jm289765/concept-graph-web/internal/observability"
	"github.com/jm289765/concept-graph-web/internal/provider"
	"github.com/jm289765/concept-graph-web/internal/provider/rest"
	"github.com/jm289765/concept-graph-web/internal/server"
	"github.com/jm289765/concept-graph-web/internal/viewer"
	"github.com/jm289765/concept-graph-web/internal/workspace"
)

// Logging is the process logger together with its adjustable level.
type Logging struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel
}

// ServerContainer holds the graph server's dependencies.
type ServerContainer struct {
	Config    *config.Config
	Logging   Logging
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Tracing   *observability.TracerProvider
	Store     graphstore.Store
	Publisher messaging.Publisher
	Server    *server.Server
}

// ClientContainer holds an editing session talking to a remote server.
type ClientContainer struct {
	Config    *config.Config
	Logging   Logging
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Provider  provider.Provider
	Workspace *workspace.Workspace
}

// ProvideLogging creates the logger from configuration.
func ProvideLogging(cfg *config.Config) (Logging, error) {
	logger, level, err := logging.New(cfg)
	if err != nil {
		return Logging{}, err
	}
	return Logging{Logger: logger, Level: level}, nil
}

// ProvideLogger extracts the logger.
func ProvideLogger(l Logging) *zap.Logger {
	return l.Logger
}

// ProvideMetrics creates the metrics collector, or nil when metrics are
// disabled. Every recording method accepts a nil collector.
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector(cfg.Metrics.Namespace)
}

// ProvideTracing installs the OTLP tracer provider when tracing is enabled.
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.Tracing.Enabled {
		return nil, func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Server.Region),
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

// ProvideGraphStore selects the backend named by the configuration. The
// DynamoDB store gets its root node before it is returned.
func ProvideGraphStore(ctx context.Context, client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) (graphstore.Store, error) {
	switch cfg.Server.Store {
	case "", "memory":
		return memory.New(logger), nil
	case "dynamodb":
		store := dynamodb.New(client, cfg.Server.TableName, logger)
		if err := store.EnsureRoot(ctx); err != nil {
			return nil, fmt.Errorf("failed to seed root node: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown graph store %q", cfg.Server.Store)
	}
}

// ProvidePublisher returns the EventBridge publisher, or a no-op publisher
// when no event bus is configured.
func ProvidePublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) messaging.Publisher {
	if cfg.Server.EventBusName == "" {
		return messaging.Noop{}
	}
	return eventbridge.NewPublisher(client, cfg.Server.EventBusName, logger)
}

// ProvideServer creates the HTTP graph server.
func ProvideServer(
	store graphstore.Store,
	publisher messaging.Publisher,
	metrics *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *server.Server {
	return server.New(store, publisher, metrics, cfg.Server, logger)
}

// ProvideRESTProvider creates the client editors use to reach the server.
func ProvideRESTProvider(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (provider.Provider, error) {
	client, err := rest.New(cfg.Provider, metrics, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ProvideWorkspace assembles the editing session.
func ProvideWorkspace(
	p provider.Provider,
	confirm viewer.Confirmer,
	metrics *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *workspace.Workspace {
	return workspace.New(p, cfg.Editor, confirm, metrics, logger)
}
