//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/jm289765/concept-graph-web/internal/config"
	"github.com/jm289765/concept-graph-web/internal/viewer"
)

// CommonSet provides logging and metrics to every binary.
var CommonSet = wire.NewSet(
	ProvideLogging,
	ProvideLogger,
	ProvideMetrics,
)

// ServerSet is the provider set behind the graph server.
var ServerSet = wire.NewSet(
	CommonSet,
	ProvideTracing,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideGraphStore,
	ProvidePublisher,
	ProvideServer,
	wire.Struct(new(ServerContainer), "*"),
)

// ClientSet is the provider set behind an editing session.
var ClientSet = wire.NewSet(
	CommonSet,
	ProvideRESTProvider,
	ProvideWorkspace,
	wire.Struct(new(ClientContainer), "*"),
)

// InitializeServer creates a fully wired graph server.
func InitializeServer(ctx context.Context, cfg *config.Config) (*ServerContainer, func(), error) {
	wire.Build(ServerSet)
	return nil, nil, nil
}

// InitializeClient creates a fully wired editing session.
func InitializeClient(cfg *config.Config, confirm viewer.Confirmer) (*ClientContainer, error) {
	wire.Build(ClientSet)
	return nil, nil
}
