package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"market-service/internal/models"
	"market-service/internal/redisclient"
	"market-service/internal/store"
	"market-service/internal/util"
)

// InventoryService manages a farm's offerings and stocked batches
type InventoryService struct {
	ledger models.Ledger
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(ledger models.Ledger, st *store.Store, redis *redisclient.Client) *InventoryService {
	return &InventoryService{
		ledger: ledger,
		store:  st,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// StockBatchRequest stocks a new batch of a declared offering
type StockBatchRequest struct {
	ProductID int64     `json:"product_id" binding:"required"`
	Price     float64   `json:"price" binding:"required,gt=0"`
	Weight    float64   `json:"weight" binding:"required,gt=0"`
	Notes     *string   `json:"notes,omitempty"`
	ExpDate   time.Time `json:"exp_date" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// StockBatch adds inventory for a product the farm has declared as an
// offering. Expired-at-stocking batches are rejected.
func (s *InventoryService) StockBatch(ctx context.Context, farmID int64, req *StockBatchRequest) (*models.Batch, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.StockBatch")
	defer span.End()

	if req.Price <= 0 || req.Weight <= 0 || req.Quantity < 1 {
		return nil, fmt.Errorf("%w: price, weight and quantity must be positive", models.ErrInvalidInput)
	}
	if req.ExpDate.Before(startOfDay(time.Now())) {
		return nil, fmt.Errorf("%w: expiry %s", models.ErrInvalidDate, req.ExpDate.Format("2006-01-02"))
	}

	batch := &models.Batch{
		ProductID: req.ProductID,
		FarmID:    farmID,
		Price:     req.Price,
		Weight:    req.Weight,
		Notes:     req.Notes,
		ExpDate:   req.ExpDate,
		Quantity:  req.Quantity,
	}

	err := s.ledger.InTx(ctx, func(tx models.LedgerTx) error {
		if _, err := tx.GetFarmProduct(ctx, farmID, req.ProductID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("%w: product %d is not declared by farm %d",
					models.ErrOwnershipMismatch, req.ProductID, farmID)
			}
			return err
		}
		return tx.InsertBatch(ctx, batch)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Batch stocked",
		zap.Int64("batch_id", batch.ID),
		zap.Int64("farm_id", farmID),
		zap.Int("quantity", batch.Quantity))
	return batch, nil
}

// UpdateBatchRequest revises the mutable fields of a batch
type UpdateBatchRequest struct {
	Price    float64   `json:"price" binding:"required,gt=0"`
	Weight   float64   `json:"weight" binding:"required,gt=0"`
	Notes    *string   `json:"notes,omitempty"`
	ExpDate  time.Time `json:"exp_date" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=0"`
}

// UpdateBatch edits a batch the farm owns and drops its cached availability
func (s *InventoryService) UpdateBatch(ctx context.Context, farmID, batchID int64, req *UpdateBatchRequest) error {
	if req.Price <= 0 || req.Weight <= 0 || req.Quantity < 0 {
		return fmt.Errorf("%w: price and weight must be positive", models.ErrInvalidInput)
	}

	batch := &models.Batch{
		ID:       batchID,
		Price:    req.Price,
		Weight:   req.Weight,
		Notes:    req.Notes,
		ExpDate:  req.ExpDate,
		Quantity: req.Quantity,
	}
	if err := s.store.UpdateBatch(ctx, farmID, batch); err != nil {
		return err
	}
	s.invalidate(ctx, batchID)
	return nil
}

// RemoveBatch deletes a batch the farm owns. Batches with orders against
// them surface ErrConflict.
func (s *InventoryService) RemoveBatch(ctx context.Context, farmID, batchID int64) error {
	if err := s.store.DeleteBatch(ctx, farmID, batchID); err != nil {
		return err
	}
	s.invalidate(ctx, batchID)
	return nil
}

// ListBatches retrieves every batch the farm has stocked
func (s *InventoryService) ListBatches(ctx context.Context, farmID int64) ([]models.BatchDetail, error) {
	return s.store.ListFarmBatches(ctx, farmID)
}

// OfferingRequest declares or revises a farm's offering of a product
type OfferingRequest struct {
	ProductID      int64  `json:"product_id" binding:"required"`
	Population     int    `json:"population" binding:"required,min=0"`
	PopulationUnit string `json:"population_unit" binding:"required"`
}

// ListOfferings retrieves the farm's declared offerings
func (s *InventoryService) ListOfferings(ctx context.Context, farmID int64) ([]models.FarmOffering, error) {
	return s.store.ListFarmOfferings(ctx, farmID)
}

// DeclareOffering registers that the farm grows a product
func (s *InventoryService) DeclareOffering(ctx context.Context, farmID int64, req *OfferingRequest) error {
	fp := &models.FarmProduct{
		ProductID:      req.ProductID,
		FarmID:         farmID,
		Population:     req.Population,
		PopulationUnit: req.PopulationUnit,
	}
	return s.store.InsertFarmProduct(ctx, fp)
}

// ReviseOffering updates the population declaration of an offering
func (s *InventoryService) ReviseOffering(ctx context.Context, farmID int64, req *OfferingRequest) error {
	fp := &models.FarmProduct{
		ProductID:      req.ProductID,
		FarmID:         farmID,
		Population:     req.Population,
		PopulationUnit: req.PopulationUnit,
	}
	return s.store.UpdateFarmProduct(ctx, fp)
}

// WithdrawOffering removes an offering the farm no longer grows
func (s *InventoryService) WithdrawOffering(ctx context.Context, farmID, productID int64) error {
	return s.store.DeleteFarmProduct(ctx, farmID, productID)
}

func (s *InventoryService) invalidate(ctx context.Context, batchID int64) {
	if s.redis == nil {
		return
	}
	if err := s.redis.InvalidateBatch(ctx, batchID); err != nil {
		s.logger.Warn("Failed to invalidate batch cache", zap.Int64("batch_id", batchID), zap.Error(err))
	}
}
