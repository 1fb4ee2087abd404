package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"market-service/internal/models"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes an OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderShipped publishes an OrderShipped event
func (ep *EventPublisher) PublishOrderShipped(ctx context.Context, event *models.OrderShippedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSubscriptionRequested publishes a SubscriptionRequested event
func (ep *EventPublisher) PublishSubscriptionRequested(ctx context.Context, event *models.SubscriptionRequestedEvent) error {
	key := fmt.Sprintf("subscription-%d", event.ProgramID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSubscriptionQuoted publishes a SubscriptionQuoted event
func (ep *EventPublisher) PublishSubscriptionQuoted(ctx context.Context, event *models.SubscriptionQuotedEvent) error {
	key := fmt.Sprintf("subscription-%d", event.ProgramID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSubscriptionCancelled publishes a SubscriptionCancelled event
func (ep *EventPublisher) PublishSubscriptionCancelled(ctx context.Context, event *models.SubscriptionCancelledEvent) error {
	key := fmt.Sprintf("subscription-%d", event.ProgramID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSubscriptionFulfilled publishes a SubscriptionFulfilled event
func (ep *EventPublisher) PublishSubscriptionFulfilled(ctx context.Context, event *models.SubscriptionFulfilledEvent) error {
	key := fmt.Sprintf("subscription-%d", event.ProgramID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes consumed events to registered callbacks
type EventHandler struct {
	onOrderPlaced           func(context.Context, *models.OrderPlacedEvent) error
	onSubscriptionFulfilled func(context.Context, *models.SubscriptionFulfilledEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderPlaced registers a handler for OrderPlaced events
func (eh *EventHandler) OnOrderPlaced(handler func(context.Context, *models.OrderPlacedEvent) error) {
	eh.onOrderPlaced = handler
}

// OnSubscriptionFulfilled registers a handler for SubscriptionFulfilled events
func (eh *EventHandler) OnSubscriptionFulfilled(handler func(context.Context, *models.SubscriptionFulfilledEvent) error) {
	eh.onSubscriptionFulfilled = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOrderPlaced:
		if eh.onOrderPlaced != nil {
			var event models.OrderPlacedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
			}
			return eh.onOrderPlaced(ctx, &event)
		}

	case models.EventTypeSubscriptionFulfilled:
		if eh.onSubscriptionFulfilled != nil {
			var event models.SubscriptionFulfilledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SubscriptionFulfilled event: %w", err)
			}
			return eh.onSubscriptionFulfilled(ctx, &event)
		}
	}

	return nil
}
