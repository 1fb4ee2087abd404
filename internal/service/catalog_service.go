package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"market-service/internal/models"
	"market-service/internal/redisclient"
	"market-service/internal/store"
	"market-service/internal/util"
)

const availabilityTTL = 30 * time.Second

// CatalogService serves the storefront and dashboard reads
type CatalogService struct {
	store  *store.Store
	ledger models.Ledger
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(st *store.Store, ledger models.Ledger, redis *redisclient.Client) *CatalogService {
	return &CatalogService{
		store:  st,
		ledger: ledger,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// ListProducts retrieves the raw product catalog
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.RawProduct, error) {
	return s.store.ListProducts(ctx)
}

// ListOpenBatches retrieves every batch with stock remaining
func (s *CatalogService) ListOpenBatches(ctx context.Context) ([]models.BatchDetail, error) {
	return s.store.ListOpenBatches(ctx)
}

// GetBatch retrieves one storefront batch, preferring the cached quantity
// when present and warming the cache on a miss.
func (s *CatalogService) GetBatch(ctx context.Context, batchID int64) (*models.BatchDetail, error) {
	detail, err := s.store.GetBatchDetail(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		quantity, found, err := s.redis.GetBatchAvailability(ctx, batchID)
		switch {
		case err != nil:
			s.logger.Warn("Availability cache read failed", zap.Int64("batch_id", batchID), zap.Error(err))
		case found:
			detail.Quantity = quantity
		default:
			if err := s.redis.SetBatchAvailability(ctx, batchID, detail.Quantity, availabilityTTL); err != nil {
				s.logger.Warn("Availability cache write failed", zap.Int64("batch_id", batchID), zap.Error(err))
			}
		}
	}

	return detail, nil
}

// GetClientProfile retrieves a client row with its loyalty balance
func (s *CatalogService) GetClientProfile(ctx context.Context, clientID int64) (*models.Client, error) {
	return s.ledger.GetClient(ctx, clientID)
}

// GetFarm retrieves a farm's public profile
func (s *CatalogService) GetFarm(ctx context.Context, farmID int64) (*models.Farm, error) {
	return s.store.GetFarm(ctx, farmID)
}

// GetLocation retrieves a stored address
func (s *CatalogService) GetLocation(ctx context.Context, locationID int64) (*models.Location, error) {
	return s.store.GetLocation(ctx, locationID)
}

// ListClientOrders retrieves a customer's order history
func (s *CatalogService) ListClientOrders(ctx context.Context, clientID int64) ([]models.OrderDetail, error) {
	return s.store.ListClientOrders(ctx, clientID)
}

// GetOrder retrieves one order, enforcing that the caller is the ordering
// customer or the supplying farm.
func (s *CatalogService) GetOrder(ctx context.Context, role string, callerID, orderID int64) (*models.OrderDetail, error) {
	detail, err := s.store.GetOrderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch role {
	case models.RoleAdmin:
	case models.RoleCustomer:
		if detail.ClientID != callerID {
			return nil, fmt.Errorf("%w: order %d", models.ErrForbidden, orderID)
		}
	case models.RoleFarmer:
		if detail.FarmID != callerID {
			return nil, fmt.Errorf("%w: order %d", models.ErrForbidden, orderID)
		}
	default:
		return nil, fmt.Errorf("%w: order %d", models.ErrForbidden, orderID)
	}
	return detail, nil
}

// ListClientSubscriptions retrieves a customer's programs
func (s *CatalogService) ListClientSubscriptions(ctx context.Context, clientID int64) ([]models.SubscriptionDetail, error) {
	return s.store.ListClientSubscriptions(ctx, clientID)
}

// ListFarmSubscriptions retrieves the programs a farm supplies
func (s *CatalogService) ListFarmSubscriptions(ctx context.Context, farmID int64) ([]models.SubscriptionDetail, error) {
	return s.store.ListFarmSubscriptions(ctx, farmID)
}

// GetSubscription retrieves one program, visible only to its customer, its
// farm, or an admin.
func (s *CatalogService) GetSubscription(ctx context.Context, role string, callerID, programID int64) (*models.SubscriptionDetail, error) {
	detail, err := s.store.GetSubscriptionDetail(ctx, programID)
	if err != nil {
		return nil, err
	}

	switch role {
	case models.RoleAdmin:
	case models.RoleCustomer:
		if detail.ClientID != callerID {
			return nil, fmt.Errorf("%w: program %d", models.ErrForbidden, programID)
		}
	case models.RoleFarmer:
		if detail.FarmID != callerID {
			return nil, fmt.Errorf("%w: program %d", models.ErrForbidden, programID)
		}
	default:
		return nil, fmt.Errorf("%w: program %d", models.ErrForbidden, programID)
	}
	return detail, nil
}

// ListFarmOrders retrieves a farm's worklist, pending orders first
func (s *CatalogService) ListFarmOrders(ctx context.Context, farmID int64) ([]models.OrderDetail, error) {
	return s.store.ListFarmOrders(ctx, farmID)
}

// CreateLocationRequest registers a delivery or farm address
type CreateLocationRequest struct {
	Continent string  `json:"continent" binding:"required"`
	Country   string  `json:"country" binding:"required"`
	State     *string `json:"state,omitempty"`
	City      string  `json:"city" binding:"required"`
	Street    string  `json:"street" binding:"required"`
}

// CreateLocation stores a new address and returns it with its generated ID
func (s *CatalogService) CreateLocation(ctx context.Context, req *CreateLocationRequest) (*models.Location, error) {
	loc := &models.Location{
		Continent: req.Continent,
		Country:   req.Country,
		State:     req.State,
		City:      req.City,
		Street:    req.Street,
	}
	if err := s.ledger.CreateLocation(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}
