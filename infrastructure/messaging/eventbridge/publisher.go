package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"catalog/domain/events"
)

// EventBridge limits PutEvents to 10 entries per call.
const batchSize = 10

// API is the subset of the EventBridge client the publisher uses
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// ErrPartialFailure is returned when EventBridge rejects some entries
var ErrPartialFailure = errors.New("some events failed to publish")

// Publisher implements ports.EventPublisher on EventBridge. Calls go
// through a circuit breaker that opens after five consecutive failures.
type Publisher struct {
	client       API
	eventBusName string
	source       string
	breaker      *gobreaker.CircuitBreaker
	logger       *zap.Logger
}

// NewPublisher creates a new EventBridge publisher
func NewPublisher(client API, eventBusName, source string, logger *zap.Logger) *Publisher {
	p := &Publisher{
		client:       client,
		eventBusName: eventBusName,
		source:       source,
		logger:       logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "eventbridge",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return p
}

// Publish sends a single event to EventBridge
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events in chunks of ten. It stops at the first failed chunk.
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for i := 0; i < len(domainEvents); i += batchSize {
		end := i + batchSize
		if end > len(domainEvents) {
			end = len(domainEvents)
		}

		batch := domainEvents[i:end]
		_, err := p.breaker.Execute(func() (interface{}, error) {
			return nil, p.publishBatch(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("publish events to %s: %w", p.eventBusName, err)
		}
	}

	return nil
}

func (p *Publisher) publishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(domainEvents))

	for _, event := range domainEvents {
		eventData, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", event.GetEventType(), err)
		}

		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(p.source),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(eventData)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources:    []string{"category/" + event.GetAggregateID()},
		})
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return err
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil && i < len(domainEvents) {
				p.logger.Error("Failed to publish event",
					zap.String("event_type", domainEvents[i].GetEventType()),
					zap.String("event_id", domainEvents[i].GetEventID()),
					zap.String("error_code", *entry.ErrorCode),
					zap.String("error_message", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%w: %d of %d", ErrPartialFailure, result.FailedEntryCount, len(entries))
	}

	p.logger.Debug("Events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("event_bus", p.eventBusName),
	)
	return nil
}
