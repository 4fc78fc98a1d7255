// Package eventbridge publishes graph events to an AWS EventBridge bus.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	apperrors "github.com/jm289765/concept-graph-web/internal/errors"
	"github.com/jm289765/concept-graph-web/internal/messaging"
)

// EventBridge limits PutEvents to 10 entries.
const batchSize = 10

// Client is the subset of the EventBridge API the publisher uses.
type Client interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher implements messaging.Publisher on EventBridge.
type Publisher struct {
	client       Client
	eventBusName string
	logger       *zap.Logger
}

var _ messaging.Publisher = (*Publisher)(nil)

// NewPublisher creates a new EventBridge publisher
func NewPublisher(client Client, eventBusName string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, eventBusName: eventBusName, logger: logger}
}

// Publish sends events in batches of ten.
func (p *Publisher) Publish(ctx context.Context, events ...messaging.GraphEvent) error {
	for i := 0; i < len(events); i += batchSize {
		end := i + batchSize
		if end > len(events) {
			end = len(events)
		}
		if err := p.publishBatch(ctx, events[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishBatch(ctx context.Context, events []messaging.GraphEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(events))
	sent := make([]messaging.GraphEvent, 0, len(events))

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal event", zap.Error(err), zap.String("eventType", event.Type))
			continue
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(messaging.Source),
			DetailType:   aws.String(event.Type),
			Detail:       aws.String(string(data)),
			Time:         aws.Time(event.Timestamp),
			Resources:    []string{fmt.Sprintf("concept-graph:node/%s", event.AggregateID())},
		})
		sent = append(sent, event)
	}
	if len(entries) == 0 {
		return nil
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return apperrors.Transport(apperrors.CodeEventPublishFailed, "failed to publish events to EventBridge").
			WithOperation("Publish").
			WithCause(err).
			Build()
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil && i < len(sent) {
				p.logger.Error("Failed to publish event",
					zap.String("eventType", sent[i].Type),
					zap.String("eventID", sent[i].EventID),
					zap.String("errorCode", *entry.ErrorCode),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return apperrors.Transport(apperrors.CodeEventPublishFailed,
			fmt.Sprintf("%d events failed to publish", result.FailedEntryCount)).
			WithOperation("Publish").
			Build()
	}

	p.logger.Debug("Events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}
