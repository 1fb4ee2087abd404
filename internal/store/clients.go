package store

import (
	"context"
	"fmt"

	"market-service/internal/models"
)

// GetClient retrieves a client by ID
func (s *Store) GetClient(ctx context.Context, clientID int64) (*models.Client, error) {
	var client models.Client
	err := s.db.GetContext(ctx, &client,
		"SELECT * FROM clients WHERE client_id = $1", clientID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &client, nil
}

// GetClientForUpdate locks the client row so the loyalty balance read here
// stays valid until the enclosing transaction commits.
func (tx *Tx) GetClientForUpdate(ctx context.Context, clientID int64) (*models.Client, error) {
	var client models.Client
	err := tx.tx.GetContext(ctx, &client,
		"SELECT * FROM clients WHERE client_id = $1 FOR UPDATE", clientID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &client, nil
}

// UpdateClientPoints writes a new loyalty balance
func (tx *Tx) UpdateClientPoints(ctx context.Context, clientID int64, points int64) error {
	res, err := tx.tx.ExecContext(ctx,
		"UPDATE clients SET loyalty_points = $1 WHERE client_id = $2",
		points, clientID)
	if err != nil {
		return fmt.Errorf("failed to update loyalty balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}
