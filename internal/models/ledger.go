package models

import (
	"context"
	"time"
)

// Ledger is the write-side port onto the relational store. The engines in
// internal/service depend on it instead of a concrete store handle so the
// transactional invariants can be exercised without a live database.
type Ledger interface {
	// InTx runs fn inside one transaction. Every statement issued through
	// the LedgerTx commits or rolls back together; fn returning an error
	// rolls back everything.
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error

	GetClient(ctx context.Context, clientID int64) (*Client, error)

	// GetOrderByIdempotencyKey returns (nil, nil) when no order carries the key.
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*Order, error)

	// CreateLocation inserts a delivery address and fills in its ID.
	CreateLocation(ctx context.Context, loc *Location) error
}

// LedgerTx is the set of statements available inside one transaction.
// Every ForUpdate read takes a row lock; decisions about the value read
// must be made and written before the transaction ends.
type LedgerTx interface {
	GetBatchForUpdate(ctx context.Context, batchID int64) (*Batch, error)
	DecrementBatch(ctx context.Context, batchID int64, quantity int) error
	InsertBatch(ctx context.Context, batch *Batch) error

	GetClientForUpdate(ctx context.Context, clientID int64) (*Client, error)
	UpdateClientPoints(ctx context.Context, clientID int64, points int64) error

	InsertOrder(ctx context.Context, order *Order) error
	GetOrderForUpdate(ctx context.Context, orderID int64) (*Order, error)
	MarkOrderShipped(ctx context.Context, orderID int64, shipped, dueBy time.Time) error

	GetSubscriptionForUpdate(ctx context.Context, programID int64) (*Subscription, error)
	SetSubscriptionStatus(ctx context.Context, programID int64, status string) error
	SetSubscriptionPrice(ctx context.Context, programID int64, price float64) error
	InsertSubscription(ctx context.Context, sub *Subscription) error

	GetProduct(ctx context.Context, productID int64) (*RawProduct, error)
	GetFarmProduct(ctx context.Context, farmID, productID int64) (*FarmProduct, error)
	GetLocation(ctx context.Context, locationID int64) (*Location, error)
}
