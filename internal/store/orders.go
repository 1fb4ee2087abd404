package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"market-service/internal/models"
)

const orderDetailColumns = `
	o.order_id, o.client_id, o.batch_id, o.location_id, o.order_date,
	o.quantity, o.shipped_date, o.due_by, o.loyalty_points_used,
	o.program_id, o.idempotency_key,
	inv.price AS unit_price, inv.farm_id,
	rp.product_name, f.name AS farm_name`

const orderDetailJoins = `
	FROM orders o
	JOIN inventory inv ON inv.batch_id = o.batch_id
	JOIN raw_products rp ON rp.product_id = inv.product_id
	JOIN farms f ON f.farm_id = inv.farm_id`

// GetOrderByIdempotencyKey retrieves an order by idempotency key, returning
// (nil, nil) when none carries it.
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderDetail retrieves one order joined with its batch, product and farm
func (s *Store) GetOrderDetail(ctx context.Context, orderID int64) (*models.OrderDetail, error) {
	var detail models.OrderDetail
	query := "SELECT " + orderDetailColumns + orderDetailJoins + " WHERE o.order_id = $1"
	err := s.db.GetContext(ctx, &detail, query, orderID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &detail, nil
}

// ListClientOrders retrieves a customer's order history, newest first
func (s *Store) ListClientOrders(ctx context.Context, clientID int64) ([]models.OrderDetail, error) {
	var orders []models.OrderDetail
	query := "SELECT " + orderDetailColumns + orderDetailJoins +
		" WHERE o.client_id = $1 ORDER BY o.order_date DESC, o.order_id DESC"
	err := s.db.SelectContext(ctx, &orders, query, clientID)
	return orders, err
}

// ListFarmOrders retrieves orders against a farm's batches, pending first
// by due date.
func (s *Store) ListFarmOrders(ctx context.Context, farmID int64) ([]models.OrderDetail, error) {
	var orders []models.OrderDetail
	query := "SELECT " + orderDetailColumns + orderDetailJoins +
		" WHERE inv.farm_id = $1 ORDER BY o.shipped_date NULLS FIRST, o.due_by ASC"
	err := s.db.SelectContext(ctx, &orders, query, farmID)
	return orders, err
}

// InsertOrder writes a new order row and fills in its generated ID
func (tx *Tx) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (client_id, batch_id, location_id, order_date, quantity,
			shipped_date, due_by, loyalty_points_used, program_id, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING order_id`

	err := tx.tx.GetContext(ctx, &order.ID, query,
		order.ClientID, order.BatchID, order.LocationID, order.OrderDate,
		order.Quantity, order.ShippedDate, order.DueBy, order.LoyaltyUsed,
		order.ProgramID, order.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", mapStoreErr(err))
	}
	return nil
}

// GetOrderForUpdate locks the order row so the shipped check and the flip
// to shipped happen under one lock.
func (tx *Tx) GetOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := tx.tx.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE order_id = $1 FOR UPDATE", orderID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &order, nil
}

// MarkOrderShipped performs the one-way pending -> shipped transition
func (tx *Tx) MarkOrderShipped(ctx context.Context, orderID int64, shipped, dueBy time.Time) error {
	res, err := tx.tx.ExecContext(ctx,
		"UPDATE orders SET shipped_date = $1, due_by = $2 WHERE order_id = $3",
		shipped, dueBy, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order shipped: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// IsEventProcessed checks whether a broker event was already consumed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed records a consumed broker event for worker dedup
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
