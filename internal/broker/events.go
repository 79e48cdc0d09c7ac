package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"pawnshop-service/internal/models"
	"pawnshop-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventWriter is the write side of a topic
type EventWriter interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer EventWriter
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer EventWriter) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishItemsImported publishes ItemsImported event
func (ep *EventPublisher) PublishItemsImported(ctx context.Context, event *models.ItemsImportedEvent) error {
	return ep.producer.PublishEvent(ctx, "inventory", event)
}

// PublishEnrichmentRequested publishes EnrichmentRequested event
func (ep *EventPublisher) PublishEnrichmentRequested(ctx context.Context, event *models.EnrichmentRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, "batch-"+event.BatchID, event)
}

// PublishItemEnriched publishes ItemEnriched event
func (ep *EventPublisher) PublishItemEnriched(ctx context.Context, event *models.ItemEnrichedEvent) error {
	return ep.producer.PublishEvent(ctx, "item-"+event.ItemID, event)
}

// PublishItemEnrichmentFailed publishes ItemEnrichmentFailed event
func (ep *EventPublisher) PublishItemEnrichmentFailed(ctx context.Context, event *models.ItemEnrichmentFailedEvent) error {
	return ep.producer.PublishEvent(ctx, "item-"+event.ItemID, event)
}

// PublishBatchCompleted publishes BatchCompleted event
func (ep *EventPublisher) PublishBatchCompleted(ctx context.Context, event *models.BatchCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, "batch-"+event.BatchID, event)
}

// PublishPriceAlertCreated publishes PriceAlertCreated event
func (ep *EventPublisher) PublishPriceAlertCreated(ctx context.Context, event *models.PriceAlertCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, "alert-"+event.AlertID, event)
}

// PublishPriceAlertTriggered publishes PriceAlertTriggered event
func (ep *EventPublisher) PublishPriceAlertTriggered(ctx context.Context, event *models.PriceAlertTriggeredEvent) error {
	return ep.producer.PublishEvent(ctx, "alert-"+event.AlertID, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onEnrichmentRequested func(context.Context, *models.EnrichmentRequestedEvent) error
	logger                *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnEnrichmentRequested registers a handler for EnrichmentRequested events
func (eh *EventHandler) OnEnrichmentRequested(handler func(context.Context, *models.EnrichmentRequestedEvent) error) {
	eh.onEnrichmentRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeEnrichmentRequested:
		if eh.onEnrichmentRequested != nil {
			var event models.EnrichmentRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal EnrichmentRequested event: %w", err)
			}
			return eh.onEnrichmentRequested(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
