package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"market-service/internal/broker"
	"market-service/internal/models"
	"market-service/internal/redisclient"
	"market-service/internal/store"
	"market-service/internal/util"
)

const availabilityTTL = 5 * time.Minute

// AvailabilityWorker refreshes the cached batch quantities whenever a
// placement or subscription fulfillment decrements inventory. Events are
// deduplicated through the processed_events table so a redelivered message
// does not refresh twice.
type AvailabilityWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	redis        *redisclient.Client
	logger       *zap.Logger
}

// NewAvailabilityWorker creates a new availability worker
func NewAvailabilityWorker(
	consumer *broker.Consumer,
	st *store.Store,
	redis *redisclient.Client,
) *AvailabilityWorker {
	w := &AvailabilityWorker{
		consumer: consumer,
		store:    st,
		redis:    redis,
		logger:   util.NamedLogger("worker"),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(func(ctx context.Context, event *models.OrderPlacedEvent) error {
		return w.refreshBatch(ctx, event.EventID, event.EventType, event.BatchID)
	})
	eventHandler.OnSubscriptionFulfilled(func(ctx context.Context, event *models.SubscriptionFulfilledEvent) error {
		return w.refreshBatch(ctx, event.EventID, event.EventType, event.BatchID)
	})
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *AvailabilityWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting availability worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AvailabilityWorker) Stop() error {
	w.logger.Info("Stopping availability worker")
	return w.consumer.Close()
}

func (w *AvailabilityWorker) refreshBatch(ctx context.Context, eventID, eventType string, batchID int64) error {
	processed, err := w.store.IsEventProcessed(ctx, eventID)
	if err != nil {
		return err
	}
	if processed {
		w.logger.Debug("Skipping already-processed event", zap.String("event_id", eventID))
		return nil
	}

	batch, err := w.store.GetBatch(ctx, batchID)
	if err != nil {
		// The batch may have been removed after the event was published
		w.logger.Warn("Batch lookup failed during refresh",
			zap.Int64("batch_id", batchID), zap.Error(err))
		return w.store.MarkEventProcessed(ctx, eventID, eventType)
	}

	if err := w.redis.SetBatchAvailability(ctx, batchID, batch.Quantity, availabilityTTL); err != nil {
		return err
	}
	w.logger.Debug("Refreshed batch availability",
		zap.Int64("batch_id", batchID),
		zap.Int("quantity", batch.Quantity))

	return w.store.MarkEventProcessed(ctx, eventID, eventType)
}
