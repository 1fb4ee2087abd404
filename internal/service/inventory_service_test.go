package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-service/internal/models"
)

func TestStockBatch(t *testing.T) {
	ledger := newMemLedger()
	ledger.seedOffering(models.FarmProduct{ProductID: 3, FarmID: 2, Population: 500, PopulationUnit: "plants"})
	svc := NewInventoryService(ledger, nil, nil)

	batch, err := svc.StockBatch(context.Background(), 2, &StockBatchRequest{
		ProductID: 3,
		Price:     40,
		Weight:    1.2,
		ExpDate:   time.Now().AddDate(0, 1, 0),
		Quantity:  10,
	})
	require.NoError(t, err)
	assert.NotZero(t, batch.ID)
	assert.Equal(t, 10, ledger.batch(batch.ID).Quantity)
}

func TestStockBatchUndeclaredOffering(t *testing.T) {
	ledger := newMemLedger()
	svc := NewInventoryService(ledger, nil, nil)

	_, err := svc.StockBatch(context.Background(), 2, &StockBatchRequest{
		ProductID: 3,
		Price:     40,
		Weight:    1.2,
		ExpDate:   time.Now().AddDate(0, 1, 0),
		Quantity:  10,
	})
	assert.ErrorIs(t, err, models.ErrOwnershipMismatch)
}

func TestStockBatchValidation(t *testing.T) {
	ledger := newMemLedger()
	ledger.seedOffering(models.FarmProduct{ProductID: 3, FarmID: 2, Population: 500, PopulationUnit: "plants"})
	svc := NewInventoryService(ledger, nil, nil)

	_, err := svc.StockBatch(context.Background(), 2, &StockBatchRequest{
		ProductID: 3, Price: 0, Weight: 1.2, ExpDate: time.Now().AddDate(0, 1, 0), Quantity: 10,
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.StockBatch(context.Background(), 2, &StockBatchRequest{
		ProductID: 3, Price: 40, Weight: 1.2, ExpDate: time.Now().AddDate(0, 0, -1), Quantity: 10,
	})
	assert.ErrorIs(t, err, models.ErrInvalidDate)
}
