// Command lambda serves the concept graph from AWS Lambda behind an API
// Gateway HTTP API.
package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/config"
	"github.com/jm289765/concept-graph-web/internal/di"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	container *di.ServerContainer
	coldStart = true
)

func init() {
	started := time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Server.Store == "memory" {
		log.Printf("GRAPH_STORE is memory; data will not survive the execution environment")
	}

	// execution environments are frozen rather than stopped, so there is no
	// point at which to run the cleanup
	container, _, err = di.InitializeServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	chiLambda = chiadapter.NewV2(container.Server.Router())

	container.Logger.Info("Lambda cold start completed", zap.Duration("duration", time.Since(started)))
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	container.Logger.Debug("Lambda received request",
		zap.String("path", req.RequestContext.HTTP.Path),
		zap.String("method", req.RequestContext.HTTP.Method),
		zap.String("requestID", req.RequestContext.RequestID),
		zap.Bool("coldStart", coldStart),
	)
	coldStart = false

	resp, err := chiLambda.ProxyWithContextV2(ctx, req)
	if err != nil {
		container.Logger.Error("Lambda proxy failed", zap.Error(err))
	}
	_ = container.Logger.Sync()
	return resp, err
}

func main() {
	lambda.Start(Handler)
}
