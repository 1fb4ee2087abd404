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
	"market-service/internal/util"
)

// SubscriptionService drives the recurring-delivery program lifecycle:
// AWAITING_QUOTE -> QUOTED -> ACTIVE -> CANCELLED, with cancellation
// reachable from any non-terminal state by the right caller.
type SubscriptionService struct {
	ledger         models.Ledger
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(ledger models.Ledger, eventPublisher *broker.EventPublisher) *SubscriptionService {
	return &SubscriptionService{
		ledger:         ledger,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// RequestSubscriptionRequest asks a farm to supply a product on a cadence
type RequestSubscriptionRequest struct {
	ProductID    int64     `json:"product_id" binding:"required"`
	FarmID       int64     `json:"farm_id" binding:"required"`
	IntervalDays int       `json:"order_interval_days" binding:"required,min=1"`
	StartDate    time.Time `json:"start_date" binding:"required"`
	Quantity     int       `json:"quantity" binding:"required,min=1"`
	LocationID   *int64    `json:"location_id,omitempty"`
}

// RequestSubscription opens a program in AWAITING_QUOTE. The farm must
// already offer the product; delivery defaults to the client's own location.
func (s *SubscriptionService) RequestSubscription(ctx context.Context, clientID int64, req *RequestSubscriptionRequest) (*models.Subscription, error) {
	ctx, span := util.StartSpan(ctx, "SubscriptionService.RequestSubscription")
	defer span.End()

	if req.IntervalDays < 1 || req.Quantity < 1 {
		return nil, fmt.Errorf("%w: interval and quantity must be at least 1", models.ErrInvalidInput)
	}
	if req.StartDate.Before(startOfDay(time.Now())) {
		return nil, fmt.Errorf("%w: start date %s", models.ErrInvalidDate, req.StartDate.Format("2006-01-02"))
	}

	client, err := s.ledger.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	locationID := client.LocationID
	if req.LocationID != nil {
		locationID = *req.LocationID
	}

	sub := &models.Subscription{
		ProductID:    req.ProductID,
		FarmID:       req.FarmID,
		ClientID:     clientID,
		IntervalDays: req.IntervalDays,
		StartDate:    req.StartDate,
		Quantity:     req.Quantity,
		LocationID:   locationID,
		Status:       models.SubscriptionAwaitingQuote,
	}

	err = s.ledger.InTx(ctx, func(tx models.LedgerTx) error {
		if _, err := tx.GetProduct(ctx, req.ProductID); err != nil {
			return err
		}
		if _, err := tx.GetFarmProduct(ctx, req.FarmID, req.ProductID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("%w: farm %d does not offer product %d",
					models.ErrInvalidInput, req.FarmID, req.ProductID)
			}
			return err
		}
		return tx.InsertSubscription(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	util.SubscriptionTransitionsTotal.WithLabelValues(models.SubscriptionAwaitingQuote).Inc()
	s.logger.Info("Subscription requested",
		zap.Int64("program_id", sub.ProgramID),
		zap.Int64("client_id", clientID),
		zap.Int64("farm_id", req.FarmID))

	if s.eventPublisher != nil {
		event := &models.SubscriptionRequestedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeSubscriptionRequested,
				Timestamp: time.Now(),
			},
			ProgramID: sub.ProgramID,
			ClientID:  clientID,
			FarmID:    req.FarmID,
			ProductID: req.ProductID,
		}
		if err := s.eventPublisher.PublishSubscriptionRequested(ctx, event); err != nil {
			s.logger.Error("Failed to publish SubscriptionRequested event", zap.Error(err))
		}
	}

	return sub, nil
}

// QuoteSubscriptionRequest carries the farmer's unit price. A nil price
// reuses one stored earlier.
type QuoteSubscriptionRequest struct {
	Price *float64 `json:"price,omitempty"`
}

// QuoteSubscription prices a program and moves it to QUOTED. Only the
// supplying farm may quote, and only from AWAITING_QUOTE.
func (s *SubscriptionService) QuoteSubscription(ctx context.Context, farmID, programID int64, req *QuoteSubscriptionRequest) (float64, error) {
	ctx, span := util.StartSpan(ctx, "SubscriptionService.QuoteSubscription")
	defer span.End()

	var price float64
	err := s.ledger.InTx(ctx, func(tx models.LedgerTx) error {
		sub, err := tx.GetSubscriptionForUpdate(ctx, programID)
		if err != nil {
			return err
		}
		if sub.FarmID != farmID {
			return fmt.Errorf("%w: program %d", models.ErrForbidden, programID)
		}
		if sub.Status != models.SubscriptionAwaitingQuote {
			return fmt.Errorf("%w: cannot quote from %s", models.ErrInvalidTransition, sub.Status)
		}

		switch {
		case req != nil && req.Price != nil:
			if *req.Price <= 0 {
				return fmt.Errorf("%w: price must be positive", models.ErrInvalidInput)
			}
			price = *req.Price
			if err := tx.SetSubscriptionPrice(ctx, programID, price); err != nil {
				return err
			}
		case sub.Price != nil:
			price = *sub.Price
		default:
			return fmt.Errorf("%w: program %d", models.ErrMissingQuote, programID)
		}

		return tx.SetSubscriptionStatus(ctx, programID, models.SubscriptionQuoted)
	})
	if err != nil {
		return 0, err
	}

	util.SubscriptionTransitionsTotal.WithLabelValues(models.SubscriptionQuoted).Inc()
	s.logger.Info("Subscription quoted",
		zap.Int64("program_id", programID),
		zap.Float64("price", price))

	if s.eventPublisher != nil {
		event := &models.SubscriptionQuotedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeSubscriptionQuoted,
				Timestamp: time.Now(),
			},
			ProgramID: programID,
			FarmID:    farmID,
			Price:     price,
		}
		if err := s.eventPublisher.PublishSubscriptionQuoted(ctx, event); err != nil {
			s.logger.Error("Failed to publish SubscriptionQuoted event", zap.Error(err))
		}
	}

	return price, nil
}

// CancelSubscription retires a program. Customers may cancel any of their
// non-terminal programs; farmers only while a quote is pending or the
// program is active. Inventory already shipped is never restocked.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, role string, callerID, programID int64) error {
	ctx, span := util.StartSpan(ctx, "SubscriptionService.CancelSubscription")
	defer span.End()

	err := s.ledger.InTx(ctx, func(tx models.LedgerTx) error {
		sub, err := tx.GetSubscriptionForUpdate(ctx, programID)
		if err != nil {
			return err
		}

		switch role {
		case models.RoleCustomer:
			if sub.ClientID != callerID {
				return fmt.Errorf("%w: program %d", models.ErrForbidden, programID)
			}
		case models.RoleFarmer:
			if sub.FarmID != callerID {
				return fmt.Errorf("%w: program %d", models.ErrForbidden, programID)
			}
		default:
			return fmt.Errorf("%w: role %q cannot cancel", models.ErrForbidden, role)
		}

		if sub.Status == models.SubscriptionCancelled {
			return fmt.Errorf("%w: program %d is already cancelled", models.ErrInvalidTransition, programID)
		}
		if role == models.RoleFarmer &&
			sub.Status != models.SubscriptionAwaitingQuote && sub.Status != models.SubscriptionActive {
			return fmt.Errorf("%w: farmer cannot cancel from %s", models.ErrInvalidTransition, sub.Status)
		}

		return tx.SetSubscriptionStatus(ctx, programID, models.SubscriptionCancelled)
	})
	if err != nil {
		return err
	}

	util.SubscriptionTransitionsTotal.WithLabelValues(models.SubscriptionCancelled).Inc()
	s.logger.Info("Subscription cancelled",
		zap.Int64("program_id", programID),
		zap.String("cancelled_by", role))

	if s.eventPublisher != nil {
		event := &models.SubscriptionCancelledEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeSubscriptionCancelled,
				Timestamp: time.Now(),
			},
			ProgramID:   programID,
			CancelledBy: role,
		}
		if err := s.eventPublisher.PublishSubscriptionCancelled(ctx, event); err != nil {
			s.logger.Error("Failed to publish SubscriptionCancelled event", zap.Error(err))
		}
	}

	return nil
}
