package store

import (
	"context"
	"fmt"

	"market-service/internal/models"
)

const subscriptionDetailColumns = `
	s.program_id, s.product_id, s.farm_id, s.client_id, s.order_interval_days,
	s.start_date, s.quantity, s.location_id, s.price, s.status,
	rp.product_name, f.name AS farm_name`

const subscriptionDetailJoins = `
	FROM subscriptions s
	JOIN raw_products rp ON rp.product_id = s.product_id
	JOIN farms f ON f.farm_id = s.farm_id`

// GetSubscriptionDetail retrieves one program joined with product and farm
func (s *Store) GetSubscriptionDetail(ctx context.Context, programID int64) (*models.SubscriptionDetail, error) {
	var detail models.SubscriptionDetail
	query := "SELECT " + subscriptionDetailColumns + subscriptionDetailJoins +
		" WHERE s.program_id = $1"
	err := s.db.GetContext(ctx, &detail, query, programID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &detail, nil
}

// ListClientSubscriptions retrieves a customer's programs
func (s *Store) ListClientSubscriptions(ctx context.Context, clientID int64) ([]models.SubscriptionDetail, error) {
	var subs []models.SubscriptionDetail
	query := "SELECT " + subscriptionDetailColumns + subscriptionDetailJoins +
		" WHERE s.client_id = $1 ORDER BY s.program_id ASC"
	err := s.db.SelectContext(ctx, &subs, query, clientID)
	return subs, err
}

// ListFarmSubscriptions retrieves the programs a farm supplies, newest first
func (s *Store) ListFarmSubscriptions(ctx context.Context, farmID int64) ([]models.SubscriptionDetail, error) {
	var subs []models.SubscriptionDetail
	query := "SELECT " + subscriptionDetailColumns + subscriptionDetailJoins +
		" WHERE s.farm_id = $1 ORDER BY s.program_id DESC"
	err := s.db.SelectContext(ctx, &subs, query, farmID)
	return subs, err
}

// GetSubscriptionForUpdate locks the program row so status decisions hold
// until commit. Two concurrent fulfillments of one program serialize here.
func (tx *Tx) GetSubscriptionForUpdate(ctx context.Context, programID int64) (*models.Subscription, error) {
	var sub models.Subscription
	err := tx.tx.GetContext(ctx, &sub,
		"SELECT * FROM subscriptions WHERE program_id = $1 FOR UPDATE", programID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &sub, nil
}

// SetSubscriptionStatus writes a lifecycle transition decided under the row lock
func (tx *Tx) SetSubscriptionStatus(ctx context.Context, programID int64, status string) error {
	res, err := tx.tx.ExecContext(ctx,
		"UPDATE subscriptions SET status = $1 WHERE program_id = $2",
		status, programID)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetSubscriptionPrice stores a farmer quote
func (tx *Tx) SetSubscriptionPrice(ctx context.Context, programID int64, price float64) error {
	res, err := tx.tx.ExecContext(ctx,
		"UPDATE subscriptions SET price = $1 WHERE program_id = $2",
		price, programID)
	if err != nil {
		return fmt.Errorf("failed to update subscription price: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// InsertSubscription writes a new program. The unique (client_id, product_id)
// key rejects a second program for the same pairing as ErrConflict.
func (tx *Tx) InsertSubscription(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (product_id, farm_id, client_id, order_interval_days,
			start_date, quantity, location_id, price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING program_id`

	err := tx.tx.GetContext(ctx, &sub.ProgramID, query,
		sub.ProductID, sub.FarmID, sub.ClientID, sub.IntervalDays,
		sub.StartDate, sub.Quantity, sub.LocationID, sub.Price, sub.Status)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", mapStoreErr(err))
	}
	return nil
}
