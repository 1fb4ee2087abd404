package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"market-service/internal/models"
)

// memLedger is an in-memory Ledger for engine tests. Transactions run one
// at a time against a deep copy of the state; the copy replaces the live
// state only when the transaction function returns nil, so failed
// transactions leave nothing behind.
type memLedger struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	clients   map[int64]models.Client
	batches   map[int64]models.Batch
	orders    map[int64]models.Order
	subs      map[int64]models.Subscription
	products  map[int64]models.RawProduct
	offerings map[offeringKey]models.FarmProduct
	locations map[int64]models.Location

	nextOrderID    int64
	nextProgramID  int64
	nextBatchID    int64
	nextLocationID int64
}

type offeringKey struct {
	farmID    int64
	productID int64
}

func newMemLedger() *memLedger {
	return &memLedger{state: &memState{
		clients:        map[int64]models.Client{},
		batches:        map[int64]models.Batch{},
		orders:         map[int64]models.Order{},
		subs:           map[int64]models.Subscription{},
		products:       map[int64]models.RawProduct{},
		offerings:      map[offeringKey]models.FarmProduct{},
		locations:      map[int64]models.Location{},
		nextOrderID:    1,
		nextProgramID:  1,
		nextBatchID:    1,
		nextLocationID: 1,
	}}
}

func (s *memState) clone() *memState {
	out := &memState{
		clients:        make(map[int64]models.Client, len(s.clients)),
		batches:        make(map[int64]models.Batch, len(s.batches)),
		orders:         make(map[int64]models.Order, len(s.orders)),
		subs:           make(map[int64]models.Subscription, len(s.subs)),
		products:       make(map[int64]models.RawProduct, len(s.products)),
		offerings:      make(map[offeringKey]models.FarmProduct, len(s.offerings)),
		locations:      make(map[int64]models.Location, len(s.locations)),
		nextOrderID:    s.nextOrderID,
		nextProgramID:  s.nextProgramID,
		nextBatchID:    s.nextBatchID,
		nextLocationID: s.nextLocationID,
	}
	for k, v := range s.clients {
		out.clients[k] = v
	}
	for k, v := range s.batches {
		out.batches[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.subs {
		out.subs[k] = v
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.offerings {
		out.offerings[k] = v
	}
	for k, v := range s.locations {
		out.locations[k] = v
	}
	return out
}

func (l *memLedger) InTx(_ context.Context, fn func(tx models.LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	working := l.state.clone()
	if err := fn(&memTx{state: working}); err != nil {
		return err
	}
	l.state = working
	return nil
}

func (l *memLedger) GetClient(_ context.Context, clientID int64) (*models.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.state.clients[clientID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (l *memLedger) GetOrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, o := range l.state.orders {
		if o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			order := o
			return &order, nil
		}
	}
	return nil, nil
}

func (l *memLedger) CreateLocation(_ context.Context, loc *models.Location) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	loc.ID = l.state.nextLocationID
	l.state.nextLocationID++
	l.state.locations[loc.ID] = *loc
	return nil
}

// Seed helpers. IDs are assigned by the caller so tests read naturally.

func (l *memLedger) seedClient(c models.Client) {
	l.state.clients[c.ID] = c
}

func (l *memLedger) seedBatch(b models.Batch) {
	l.state.batches[b.ID] = b
	if b.ID >= l.state.nextBatchID {
		l.state.nextBatchID = b.ID + 1
	}
}

func (l *memLedger) seedOrder(o models.Order) {
	l.state.orders[o.ID] = o
	if o.ID >= l.state.nextOrderID {
		l.state.nextOrderID = o.ID + 1
	}
}

func (l *memLedger) seedSubscription(sub models.Subscription) {
	l.state.subs[sub.ProgramID] = sub
	if sub.ProgramID >= l.state.nextProgramID {
		l.state.nextProgramID = sub.ProgramID + 1
	}
}

func (l *memLedger) seedLocation(loc models.Location) {
	l.state.locations[loc.ID] = loc
	if loc.ID >= l.state.nextLocationID {
		l.state.nextLocationID = loc.ID + 1
	}
}

func (l *memLedger) seedProduct(p models.RawProduct) {
	l.state.products[p.ID] = p
}

func (l *memLedger) seedOffering(fp models.FarmProduct) {
	l.state.offerings[offeringKey{fp.FarmID, fp.ProductID}] = fp
}

func (l *memLedger) client(id int64) models.Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.clients[id]
}

func (l *memLedger) batch(id int64) models.Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.batches[id]
}

func (l *memLedger) order(id int64) models.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.orders[id]
}

func (l *memLedger) subscription(id int64) models.Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.subs[id]
}

func (l *memLedger) location(id int64) models.Location {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.locations[id]
}

func (l *memLedger) orderCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.state.orders)
}

// memTx mutates the working copy of the state
type memTx struct {
	state *memState
}

func (t *memTx) GetBatchForUpdate(_ context.Context, batchID int64) (*models.Batch, error) {
	b, ok := t.state.batches[batchID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &b, nil
}

func (t *memTx) DecrementBatch(_ context.Context, batchID int64, quantity int) error {
	b, ok := t.state.batches[batchID]
	if !ok {
		return models.ErrNotFound
	}
	b.Quantity -= quantity
	t.state.batches[batchID] = b
	return nil
}

func (t *memTx) InsertBatch(_ context.Context, batch *models.Batch) error {
	batch.ID = t.state.nextBatchID
	t.state.nextBatchID++
	t.state.batches[batch.ID] = *batch
	return nil
}

func (t *memTx) GetClientForUpdate(_ context.Context, clientID int64) (*models.Client, error) {
	c, ok := t.state.clients[clientID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (t *memTx) UpdateClientPoints(_ context.Context, clientID, points int64) error {
	c, ok := t.state.clients[clientID]
	if !ok {
		return models.ErrNotFound
	}
	c.LoyaltyPoints = points
	t.state.clients[clientID] = c
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, order *models.Order) error {
	if order.IdempotencyKey != nil {
		for _, existing := range t.state.orders {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *order.IdempotencyKey {
				return fmt.Errorf("%w: orders_idempotency_key_key", models.ErrConflict)
			}
		}
	}
	order.ID = t.state.nextOrderID
	t.state.nextOrderID++
	t.state.orders[order.ID] = *order
	return nil
}

func (t *memTx) GetOrderForUpdate(_ context.Context, orderID int64) (*models.Order, error) {
	o, ok := t.state.orders[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &o, nil
}

func (t *memTx) MarkOrderShipped(_ context.Context, orderID int64, shipped, dueBy time.Time) error {
	o, ok := t.state.orders[orderID]
	if !ok {
		return models.ErrNotFound
	}
	o.ShippedDate = &shipped
	o.DueBy = dueBy
	t.state.orders[orderID] = o
	return nil
}

func (t *memTx) GetSubscriptionForUpdate(_ context.Context, programID int64) (*models.Subscription, error) {
	sub, ok := t.state.subs[programID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &sub, nil
}

func (t *memTx) SetSubscriptionStatus(_ context.Context, programID int64, status string) error {
	sub, ok := t.state.subs[programID]
	if !ok {
		return models.ErrNotFound
	}
	sub.Status = status
	t.state.subs[programID] = sub
	return nil
}

func (t *memTx) SetSubscriptionPrice(_ context.Context, programID int64, price float64) error {
	sub, ok := t.state.subs[programID]
	if !ok {
		return models.ErrNotFound
	}
	sub.Price = &price
	t.state.subs[programID] = sub
	return nil
}

func (t *memTx) InsertSubscription(_ context.Context, sub *models.Subscription) error {
	for _, existing := range t.state.subs {
		if existing.ClientID == sub.ClientID && existing.ProductID == sub.ProductID {
			return fmt.Errorf("%w: subscriptions_client_product_key", models.ErrConflict)
		}
	}
	sub.ProgramID = t.state.nextProgramID
	t.state.nextProgramID++
	t.state.subs[sub.ProgramID] = *sub
	return nil
}

func (t *memTx) GetProduct(_ context.Context, productID int64) (*models.RawProduct, error) {
	p, ok := t.state.products[productID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (t *memTx) GetFarmProduct(_ context.Context, farmID, productID int64) (*models.FarmProduct, error) {
	fp, ok := t.state.offerings[offeringKey{farmID, productID}]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &fp, nil
}

func (t *memTx) GetLocation(_ context.Context, locationID int64) (*models.Location, error) {
	loc, ok := t.state.locations[locationID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &loc, nil
}

var _ models.Ledger = (*memLedger)(nil)
var _ models.LedgerTx = (*memTx)(nil)
