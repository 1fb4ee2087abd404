package store

import (
	"context"
	"fmt"

	"market-service/internal/models"
)

const batchDetailColumns = `
	inv.batch_id, inv.product_id, inv.farm_id, inv.price, inv.weight,
	inv.notes, inv.exp_date, inv.quantity,
	rp.product_name, rp.product_type, rp.grade,
	f.name AS farm_name, loc.city, loc.country`

const batchDetailJoins = `
	FROM inventory inv
	JOIN raw_products rp ON rp.product_id = inv.product_id
	JOIN farms f ON f.farm_id = inv.farm_id
	LEFT JOIN locations loc ON loc.location_id = f.location_id`

// GetBatch retrieves a batch by ID
func (s *Store) GetBatch(ctx context.Context, batchID int64) (*models.Batch, error) {
	var batch models.Batch
	err := s.db.GetContext(ctx, &batch,
		"SELECT * FROM inventory WHERE batch_id = $1", batchID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &batch, nil
}

// GetBatchDetail retrieves a batch joined with product and farm rows
func (s *Store) GetBatchDetail(ctx context.Context, batchID int64) (*models.BatchDetail, error) {
	var detail models.BatchDetail
	query := "SELECT " + batchDetailColumns + batchDetailJoins + " WHERE inv.batch_id = $1"
	err := s.db.GetContext(ctx, &detail, query, batchID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &detail, nil
}

// ListOpenBatches retrieves all batches with stock remaining, soonest expiry
// first, for the storefront.
func (s *Store) ListOpenBatches(ctx context.Context) ([]models.BatchDetail, error) {
	var batches []models.BatchDetail
	query := "SELECT " + batchDetailColumns + batchDetailJoins +
		" WHERE inv.quantity > 0 ORDER BY inv.exp_date ASC"
	err := s.db.SelectContext(ctx, &batches, query)
	return batches, err
}

// ListFarmBatches retrieves every batch a farm has stocked
func (s *Store) ListFarmBatches(ctx context.Context, farmID int64) ([]models.BatchDetail, error) {
	var batches []models.BatchDetail
	query := "SELECT " + batchDetailColumns + batchDetailJoins +
		" WHERE inv.farm_id = $1 ORDER BY inv.exp_date ASC"
	err := s.db.SelectContext(ctx, &batches, query, farmID)
	return batches, err
}

// GetBatchForUpdate locks the batch row. The quantity read here is the one
// the reservation decision is made on; no other transaction can decrement
// it until this one commits.
func (tx *Tx) GetBatchForUpdate(ctx context.Context, batchID int64) (*models.Batch, error) {
	var batch models.Batch
	err := tx.tx.GetContext(ctx, &batch,
		"SELECT * FROM inventory WHERE batch_id = $1 FOR UPDATE", batchID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &batch, nil
}

// DecrementBatch subtracts a reserved quantity from a batch. Callers must
// hold the row lock from GetBatchForUpdate and have verified sufficiency.
func (tx *Tx) DecrementBatch(ctx context.Context, batchID int64, quantity int) error {
	_, err := tx.tx.ExecContext(ctx,
		"UPDATE inventory SET quantity = quantity - $1 WHERE batch_id = $2",
		quantity, batchID)
	if err != nil {
		return fmt.Errorf("failed to decrement batch: %w", err)
	}
	return nil
}

// InsertBatch stocks a new inventory batch and fills in its generated ID
func (tx *Tx) InsertBatch(ctx context.Context, batch *models.Batch) error {
	query := `
		INSERT INTO inventory (product_id, farm_id, price, weight, notes, exp_date, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING batch_id`

	err := tx.tx.GetContext(ctx, &batch.ID, query,
		batch.ProductID, batch.FarmID, batch.Price, batch.Weight,
		batch.Notes, batch.ExpDate, batch.Quantity)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", mapStoreErr(err))
	}
	return nil
}

// UpdateBatch overwrites the mutable fields of a batch owned by the farm
func (s *Store) UpdateBatch(ctx context.Context, farmID int64, batch *models.Batch) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET price = $1, weight = $2, notes = $3, exp_date = $4, quantity = $5
		WHERE batch_id = $6 AND farm_id = $7`,
		batch.Price, batch.Weight, batch.Notes, batch.ExpDate, batch.Quantity,
		batch.ID, farmID)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteBatch removes an unreferenced batch owned by the farm. A batch that
// orders point at surfaces ErrConflict from the foreign key.
func (s *Store) DeleteBatch(ctx context.Context, farmID, batchID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM inventory WHERE batch_id = $1 AND farm_id = $2",
		batchID, farmID)
	if err != nil {
		return mapStoreErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}
