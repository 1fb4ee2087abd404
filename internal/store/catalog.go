package store

import (
	"context"
	"fmt"

	"market-service/internal/models"
)

// ListProducts retrieves the raw product catalog
func (s *Store) ListProducts(ctx context.Context) ([]models.RawProduct, error) {
	var products []models.RawProduct
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM raw_products ORDER BY product_name ASC")
	return products, err
}

// GetProduct retrieves a raw product inside a transaction
func (tx *Tx) GetProduct(ctx context.Context, productID int64) (*models.RawProduct, error) {
	var product models.RawProduct
	err := tx.tx.GetContext(ctx, &product,
		"SELECT * FROM raw_products WHERE product_id = $1", productID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &product, nil
}

// GetFarmProduct retrieves an offering row inside a transaction. Absence
// means the farm does not offer the product.
func (tx *Tx) GetFarmProduct(ctx context.Context, farmID, productID int64) (*models.FarmProduct, error) {
	var fp models.FarmProduct
	err := tx.tx.GetContext(ctx, &fp,
		"SELECT * FROM farm_products WHERE farm_id = $1 AND product_id = $2",
		farmID, productID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &fp, nil
}

// ListFarmOfferings retrieves a farm's declared offerings with product names
func (s *Store) ListFarmOfferings(ctx context.Context, farmID int64) ([]models.FarmOffering, error) {
	var offerings []models.FarmOffering
	err := s.db.SelectContext(ctx, &offerings, `
		SELECT fp.product_id, fp.farm_id, fp.population, fp.population_unit,
			rp.product_name, rp.product_type, rp.grade
		FROM farm_products fp
		JOIN raw_products rp ON rp.product_id = fp.product_id
		WHERE fp.farm_id = $1
		ORDER BY rp.product_name ASC`, farmID)
	return offerings, err
}

// InsertFarmProduct declares a new offering. A duplicate (farm, product)
// pair surfaces ErrConflict.
func (s *Store) InsertFarmProduct(ctx context.Context, fp *models.FarmProduct) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO farm_products (product_id, farm_id, population, population_unit)
		VALUES ($1, $2, $3, $4)`,
		fp.ProductID, fp.FarmID, fp.Population, fp.PopulationUnit)
	if err != nil {
		return fmt.Errorf("failed to insert offering: %w", mapStoreErr(err))
	}
	return nil
}

// UpdateFarmProduct edits the population declaration of an offering
func (s *Store) UpdateFarmProduct(ctx context.Context, fp *models.FarmProduct) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE farm_products SET population = $1, population_unit = $2
		WHERE product_id = $3 AND farm_id = $4`,
		fp.Population, fp.PopulationUnit, fp.ProductID, fp.FarmID)
	if err != nil {
		return fmt.Errorf("failed to update offering: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteFarmProduct removes an offering; batches or subscriptions still
// referencing the product surface ErrConflict from the foreign keys.
func (s *Store) DeleteFarmProduct(ctx context.Context, farmID, productID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM farm_products WHERE product_id = $1 AND farm_id = $2",
		productID, farmID)
	if err != nil {
		return mapStoreErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}
