package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"market-service/internal/broker"
	"market-service/internal/models"
	"market-service/internal/redisclient"
	"market-service/internal/util"
)

// OrderService places customer orders against farm inventory
type OrderService struct {
	ledger         models.Ledger
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewOrderService creates a new order service. Redis and the event
// publisher may be nil; placement then runs without the cache fast path
// and without event emission.
func NewOrderService(
	ledger models.Ledger,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	idempotencyTTL time.Duration,
) *OrderService {
	return &OrderService{
		ledger:         ledger,
		redis:          redis,
		eventPublisher: eventPublisher,
		idempotencyTTL: idempotencyTTL,
		logger:         util.GetLogger(),
	}
}

// PlaceOrderRequest represents a request to place an order. Delivery goes
// to LocationID when set, to a freshly registered NewLocation when that is
// set, and to the client's stored address otherwise.
type PlaceOrderRequest struct {
	BatchID        int64                  `json:"batch_id" binding:"required"`
	Quantity       int                    `json:"quantity" binding:"required,min=1"`
	DueBy          time.Time              `json:"due_by" binding:"required"`
	LoyaltySpend   int64                  `json:"loyalty_points"`
	LocationID     *int64                 `json:"location_id,omitempty"`
	NewLocation    *CreateLocationRequest `json:"location,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
}

// PlaceOrderResponse reports the priced outcome of a placement. The full
// receipt is issued once, when the order is created; a replayed request
// carries only the stored facts of the original order (id, settled
// discount, due date) with Replayed set, since the loyalty balance has
// moved on since settlement.
type PlaceOrderResponse struct {
	OrderID      int64     `json:"order_id"`
	Subtotal     float64   `json:"subtotal"`
	Discount     int64     `json:"discount"`
	Total        float64   `json:"total"`
	PointsEarned int64     `json:"points_earned"`
	NewBalance   int64     `json:"new_balance"`
	DueBy        time.Time `json:"due_by"`
	Replayed     bool      `json:"replayed,omitempty"`
}

// startOfDay truncates a moment to midnight in its own location
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// PlaceOrder reserves inventory, settles loyalty points and writes the
// pending order inside one transaction. The batch and client rows are both
// locked so concurrent placements serialize instead of overselling or
// double-spending points.
func (s *OrderService) PlaceOrder(ctx context.Context, clientID int64, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	if req.Quantity < 1 {
		util.OrdersFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidInput)
	}
	if req.DueBy.Before(startOfDay(time.Now())) {
		util.OrdersFailedTotal.WithLabelValues("invalid_date").Inc()
		return nil, fmt.Errorf("%w: due date %s", models.ErrInvalidDate, req.DueBy.Format("2006-01-02"))
	}

	if req.LocationID != nil && req.NewLocation != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_location").Inc()
		return nil, fmt.Errorf("%w: location_id and location are mutually exclusive", models.ErrInvalidInput)
	}

	if req.IdempotencyKey != "" {
		if resp, err := s.replayOrder(ctx, clientID, req.IdempotencyKey); err != nil || resp != nil {
			return resp, err
		}
	}

	// An inline address is registered up front; the row is harmless if the
	// placement itself fails.
	deliverTo := req.LocationID
	if req.NewLocation != nil {
		loc := &models.Location{
			Continent: req.NewLocation.Continent,
			Country:   req.NewLocation.Country,
			State:     req.NewLocation.State,
			City:      req.NewLocation.City,
			Street:    req.NewLocation.Street,
		}
		if err := s.ledger.CreateLocation(ctx, loc); err != nil {
			util.OrdersFailedTotal.WithLabelValues("invalid_location").Inc()
			return nil, err
		}
		deliverTo = &loc.ID
	}

	var (
		order *models.Order
		quote LoyaltyQuote
	)

	start := time.Now()
	err := s.ledger.InTx(ctx, func(tx models.LedgerTx) error {
		batch, err := tx.GetBatchForUpdate(ctx, req.BatchID)
		if err != nil {
			return err
		}
		client, err := tx.GetClientForUpdate(ctx, clientID)
		if err != nil {
			return err
		}

		if batch.Quantity < req.Quantity {
			return fmt.Errorf("%w: batch %d holds %d", models.ErrInsufficientStock, batch.ID, batch.Quantity)
		}

		locationID := client.LocationID
		if deliverTo != nil {
			loc, err := tx.GetLocation(ctx, *deliverTo)
			if err != nil {
				return fmt.Errorf("delivery location %d: %w", *deliverTo, err)
			}
			locationID = loc.ID
		}

		subtotal := batch.Price * float64(req.Quantity)
		quote = QuoteLoyalty(client.LoyaltyPoints, subtotal, req.LoyaltySpend)

		order = &models.Order{
			ClientID:    clientID,
			BatchID:     req.BatchID,
			LocationID:  locationID,
			OrderDate:   time.Now(),
			Quantity:    req.Quantity,
			DueBy:       req.DueBy,
			LoyaltyUsed: quote.Discount,
		}
		if req.IdempotencyKey != "" {
			order.IdempotencyKey = &req.IdempotencyKey
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.DecrementBatch(ctx, req.BatchID, req.Quantity); err != nil {
			return err
		}
		return tx.UpdateClientPoints(ctx, clientID, quote.NewBalance)
	})
	util.InventoryReserveLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	util.OrdersPlacedTotal.Inc()
	util.LoyaltyPointsSpentTotal.Add(float64(quote.Discount))
	util.LoyaltyPointsEarnedTotal.Add(float64(quote.PointsEarned))
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("client_id", clientID),
		zap.Int64("batch_id", req.BatchID),
		zap.Float64("total", quote.Total))

	if s.redis != nil {
		if req.IdempotencyKey != "" {
			if err := s.redis.SetIdempotencyKey(ctx, req.IdempotencyKey, order.ID, s.idempotencyTTL); err != nil {
				s.logger.Warn("Failed to cache idempotency key", zap.Error(err))
			}
		}
		if err := s.redis.InvalidateBatch(ctx, req.BatchID); err != nil {
			s.logger.Warn("Failed to invalidate batch cache", zap.Int64("batch_id", req.BatchID), zap.Error(err))
		}
	}

	if s.eventPublisher != nil {
		event := &models.OrderPlacedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderPlaced,
				Timestamp: time.Now(),
			},
			OrderID:      order.ID,
			ClientID:     clientID,
			BatchID:      req.BatchID,
			Quantity:     req.Quantity,
			Total:        quote.Total,
			PointsEarned: quote.PointsEarned,
		}
		if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
		}
	}

	return &PlaceOrderResponse{
		OrderID:      order.ID,
		Subtotal:     quote.Subtotal,
		Discount:     quote.Discount,
		Total:        quote.Total,
		PointsEarned: quote.PointsEarned,
		NewBalance:   quote.NewBalance,
		DueBy:        order.DueBy,
	}, nil
}

// replayOrder resolves a repeated idempotency key to its original order.
// It returns (nil, nil) when the key is fresh.
func (s *OrderService) replayOrder(ctx context.Context, clientID int64, key string) (*PlaceOrderResponse, error) {
	// The cache is only a hint; the unique column on orders is authoritative
	// and survives key expiry.
	if s.redis != nil {
		if orderID, found, err := s.redis.CheckIdempotencyKey(ctx, key); err != nil {
			s.logger.Warn("Idempotency cache lookup failed", zap.Error(err))
		} else if found {
			s.logger.Debug("Idempotency key seen in cache", zap.Int64("order_id", orderID))
		}
	}

	existing, err := s.ledger.GetOrderByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing == nil {
		return nil, nil
	}
	if existing.ClientID != clientID {
		return nil, fmt.Errorf("%w: idempotency key belongs to another client", models.ErrConflict)
	}

	s.logger.Info("Duplicate order request detected",
		zap.String("idempotency_key", key),
		zap.Int64("order_id", existing.ID))

	// Stored facts only; see PlaceOrderResponse.
	return &PlaceOrderResponse{
		OrderID:  existing.ID,
		Discount: existing.LoyaltyUsed,
		DueBy:    existing.DueBy,
		Replayed: true,
	}, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	default:
		return "db_error"
	}
}
