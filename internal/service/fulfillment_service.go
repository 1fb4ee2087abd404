package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"market-service/internal/broker"
	"market-service/internal/models"
	"market-service/internal/redisclient"
	"market-service/internal/util"
)

// FulfillmentService handles farmer-side dispatch of orders and
// subscription instances.
type FulfillmentService struct {
	ledger         models.Ledger
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewFulfillmentService creates a new fulfillment service
func NewFulfillmentService(
	ledger models.Ledger,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *FulfillmentService {
	return &FulfillmentService{
		ledger:         ledger,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// DispatchOrderRequest optionally revises the delivery promise at dispatch
type DispatchOrderRequest struct {
	DueBy *time.Time `json:"due_by,omitempty"`
}

// DispatchOrderResponse reports the shipped order
type DispatchOrderResponse struct {
	OrderID     int64     `json:"order_id"`
	ShippedDate time.Time `json:"shipped_date"`
	DueBy       time.Time `json:"due_by"`
}

// DispatchOrder marks a pending order shipped. The order row is locked so
// the pending check and the flip happen atomically; a second dispatch of
// the same order fails with ErrAlreadyShipped and changes nothing.
func (s *FulfillmentService) DispatchOrder(ctx context.Context, farmID, orderID int64, req *DispatchOrderRequest) (*DispatchOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "FulfillmentService.DispatchOrder")
	defer span.End()

	shipped := time.Now()
	var (
		dueBy   time.Time
		batchID int64
	)

	err := s.ledger.InTx(ctx, func(tx models.LedgerTx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		batch, err := tx.GetBatchForUpdate(ctx, order.BatchID)
		if err != nil {
			return err
		}
		batchID = batch.ID
		if batch.FarmID != farmID {
			return fmt.Errorf("%w: order %d", models.ErrForbidden, orderID)
		}
		if order.Shipped() {
			return fmt.Errorf("%w: order %d shipped on %s", models.ErrAlreadyShipped,
				orderID, order.ShippedDate.Format("2006-01-02"))
		}

		dueBy = order.DueBy
		if req != nil && req.DueBy != nil {
			if req.DueBy.Before(startOfDay(shipped)) {
				return fmt.Errorf("%w: revised due date %s", models.ErrInvalidDate,
					req.DueBy.Format("2006-01-02"))
			}
			dueBy = *req.DueBy
		}

		return tx.MarkOrderShipped(ctx, orderID, shipped, dueBy)
	})
	if err != nil {
		return nil, err
	}

	util.OrdersShippedTotal.Inc()
	util.FulfillmentsTotal.WithLabelValues("order").Inc()
	s.logger.Info("Order dispatched",
		zap.Int64("order_id", orderID),
		zap.Int64("farm_id", farmID))

	s.publishOrderShipped(ctx, farmID, orderID, batchID, shipped)

	return &DispatchOrderResponse{
		OrderID:     orderID,
		ShippedDate: shipped,
		DueBy:       dueBy,
	}, nil
}

// DispatchSubscriptionRequest selects the batch serving a subscription
// instance. Quantity and DueBy override the program defaults when set.
type DispatchSubscriptionRequest struct {
	BatchID  int64      `json:"batch_id" binding:"required"`
	Quantity *int       `json:"quantity,omitempty"`
	DueBy    *time.Time `json:"due_by,omitempty"`
}

// DispatchSubscriptionResponse reports the shipped instance
type DispatchSubscriptionResponse struct {
	ProgramID   int64     `json:"program_id"`
	OrderID     int64     `json:"order_id"`
	Quantity    int       `json:"quantity"`
	ShippedDate time.Time `json:"shipped_date"`
	DueBy       time.Time `json:"due_by"`
	Activated   bool      `json:"activated"`
}

// DispatchSubscription ships one instance of a program from a chosen batch.
// The program and batch rows are both locked; the first fulfillment of a
// QUOTED program flips it to ACTIVE inside the same transaction.
func (s *FulfillmentService) DispatchSubscription(ctx context.Context, farmID, programID int64, req *DispatchSubscriptionRequest) (*DispatchSubscriptionResponse, error) {
	ctx, span := util.StartSpan(ctx, "FulfillmentService.DispatchSubscription")
	defer span.End()

	shipped := time.Now()
	var (
		order     *models.Order
		quantity  int
		activated bool
	)

	err := s.ledger.InTx(ctx, func(tx models.LedgerTx) error {
		sub, err := tx.GetSubscriptionForUpdate(ctx, programID)
		if err != nil {
			return err
		}
		if sub.FarmID != farmID {
			return fmt.Errorf("%w: program %d", models.ErrForbidden, programID)
		}
		switch sub.Status {
		case models.SubscriptionActive:
		case models.SubscriptionQuoted:
			if sub.Price == nil {
				return fmt.Errorf("%w: program %d", models.ErrMissingQuote, programID)
			}
		default:
			return fmt.Errorf("%w: program %d is %s", models.ErrNotActive, programID, sub.Status)
		}

		quantity = sub.Quantity
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		if quantity < 1 {
			return fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidInput)
		}

		batch, err := tx.GetBatchForUpdate(ctx, req.BatchID)
		if err != nil {
			return err
		}
		if batch.FarmID != farmID {
			return fmt.Errorf("%w: batch %d", models.ErrOwnershipMismatch, req.BatchID)
		}
		if batch.ProductID != sub.ProductID {
			return fmt.Errorf("%w: batch %d stocks product %d, program needs %d",
				models.ErrProductMismatch, batch.ID, batch.ProductID, sub.ProductID)
		}
		if batch.Quantity < quantity {
			return fmt.Errorf("%w: batch %d holds %d", models.ErrInsufficientStock, batch.ID, batch.Quantity)
		}

		// Without an override the instance is promised one interval out,
		// when the next delivery of the program comes due.
		dueBy := shipped.AddDate(0, 0, sub.IntervalDays)
		if req.DueBy != nil {
			if req.DueBy.Before(startOfDay(shipped)) {
				return fmt.Errorf("%w: due date %s", models.ErrInvalidDate, req.DueBy.Format("2006-01-02"))
			}
			dueBy = *req.DueBy
		}

		if err := tx.DecrementBatch(ctx, req.BatchID, quantity); err != nil {
			return err
		}

		order = &models.Order{
			ClientID:    sub.ClientID,
			BatchID:     req.BatchID,
			LocationID:  sub.LocationID,
			OrderDate:   shipped,
			Quantity:    quantity,
			ShippedDate: &shipped,
			DueBy:       dueBy,
			ProgramID:   &programID,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		if sub.Status == models.SubscriptionQuoted {
			if err := tx.SetSubscriptionStatus(ctx, programID, models.SubscriptionActive); err != nil {
				return err
			}
			activated = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.FulfillmentsTotal.WithLabelValues("subscription").Inc()
	util.OrdersShippedTotal.Inc()
	if activated {
		util.SubscriptionTransitionsTotal.WithLabelValues(models.SubscriptionActive).Inc()
	}
	s.logger.Info("Subscription instance dispatched",
		zap.Int64("program_id", programID),
		zap.Int64("order_id", order.ID),
		zap.Bool("activated", activated))

	if s.redis != nil {
		if err := s.redis.InvalidateBatch(ctx, req.BatchID); err != nil {
			s.logger.Warn("Failed to invalidate batch cache", zap.Int64("batch_id", req.BatchID), zap.Error(err))
		}
	}

	if s.eventPublisher != nil {
		event := &models.SubscriptionFulfilledEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeSubscriptionFulfilled,
				Timestamp: time.Now(),
			},
			ProgramID: programID,
			OrderID:   order.ID,
			BatchID:   req.BatchID,
			Quantity:  quantity,
			Activated: activated,
		}
		if err := s.eventPublisher.PublishSubscriptionFulfilled(ctx, event); err != nil {
			s.logger.Error("Failed to publish SubscriptionFulfilled event", zap.Error(err))
		}
	}

	return &DispatchSubscriptionResponse{
		ProgramID:   programID,
		OrderID:     order.ID,
		Quantity:    quantity,
		ShippedDate: shipped,
		DueBy:       order.DueBy,
		Activated:   activated,
	}, nil
}

func (s *FulfillmentService) publishOrderShipped(ctx context.Context, farmID, orderID, batchID int64, shipped time.Time) {
	if s.eventPublisher == nil {
		return
	}
	event := &models.OrderShippedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderShipped,
			Timestamp: time.Now(),
		},
		OrderID:     orderID,
		FarmID:      farmID,
		BatchID:     batchID,
		ShippedDate: shipped,
	}
	if err := s.eventPublisher.PublishOrderShipped(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderShipped event", zap.Error(err))
	}
}
