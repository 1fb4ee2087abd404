package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-service/internal/models"
)

func seedFulfillmentFixture(ledger *memLedger) {
	ledger.seedClient(models.Client{ID: 1, FirstName: "Mina", LastName: "Okafor",
		Email: "mina@example.com", LocationID: 10})
	ledger.seedBatch(models.Batch{ID: 7, ProductID: 3, FarmID: 2,
		Price: 40, Weight: 1.2, ExpDate: time.Now().AddDate(0, 1, 0), Quantity: 10})
	ledger.seedOrder(models.Order{ID: 100, ClientID: 1, BatchID: 7, LocationID: 10,
		OrderDate: time.Now(), Quantity: 2, DueBy: tomorrow()})
}

func TestDispatchOrder(t *testing.T) {
	ledger := newMemLedger()
	seedFulfillmentFixture(ledger)
	svc := NewFulfillmentService(ledger, nil, nil)

	resp, err := svc.DispatchOrder(context.Background(), 2, 100, nil)
	require.NoError(t, err)

	order := ledger.order(100)
	require.True(t, order.Shipped())
	assert.WithinDuration(t, resp.ShippedDate, *order.ShippedDate, time.Second)
	assert.Equal(t, 10, ledger.batch(7).Quantity, "dispatch must not touch inventory again")
}

func TestDispatchOrderRevisedDueDate(t *testing.T) {
	ledger := newMemLedger()
	seedFulfillmentFixture(ledger)
	svc := NewFulfillmentService(ledger, nil, nil)

	revised := time.Now().AddDate(0, 0, 3)
	resp, err := svc.DispatchOrder(context.Background(), 2, 100, &DispatchOrderRequest{DueBy: &revised})
	require.NoError(t, err)
	assert.WithinDuration(t, revised, resp.DueBy, time.Second)
}

func TestDispatchOrderRejectsPastDueDate(t *testing.T) {
	ledger := newMemLedger()
	seedFulfillmentFixture(ledger)
	svc := NewFulfillmentService(ledger, nil, nil)

	past := time.Now().AddDate(0, 0, -3)
	_, err := svc.DispatchOrder(context.Background(), 2, 100, &DispatchOrderRequest{DueBy: &past})
	assert.ErrorIs(t, err, models.ErrInvalidDate)
	assert.False(t, ledger.order(100).Shipped())
}

func TestDispatchOrderAlreadyShipped(t *testing.T) {
	ledger := newMemLedger()
	seedFulfillmentFixture(ledger)
	svc := NewFulfillmentService(ledger, nil, nil)

	_, err := svc.DispatchOrder(context.Background(), 2, 100, nil)
	require.NoError(t, err)
	firstShipped := *ledger.order(100).ShippedDate

	_, err = svc.DispatchOrder(context.Background(), 2, 100, nil)
	assert.ErrorIs(t, err, models.ErrAlreadyShipped)
	assert.Equal(t, firstShipped, *ledger.order(100).ShippedDate, "shipped date must not move")
}

func TestDispatchOrderWrongFarm(t *testing.T) {
	ledger := newMemLedger()
	seedFulfillmentFixture(ledger)
	svc := NewFulfillmentService(ledger, nil, nil)

	_, err := svc.DispatchOrder(context.Background(), 5, 100, nil)
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.False(t, ledger.order(100).Shipped())
}

func quotedPrice(p float64) *float64 { return &p }

func seedSubscriptionFixture(ledger *memLedger, status string) {
	ledger.seedClient(models.Client{ID: 1, FirstName: "Mina", LastName: "Okafor",
		Email: "mina@example.com", LocationID: 10})
	ledger.seedBatch(models.Batch{ID: 7, ProductID: 3, FarmID: 2,
		Price: 40, Weight: 1.2, ExpDate: time.Now().AddDate(0, 1, 0), Quantity: 10})
	ledger.seedSubscription(models.Subscription{ProgramID: 50, ProductID: 3, FarmID: 2,
		ClientID: 1, IntervalDays: 14, StartDate: time.Now(), Quantity: 4,
		LocationID: 10, Price: quotedPrice(35), Status: status})
}

func TestDispatchSubscriptionFromActive(t *testing.T) {
	ledger := newMemLedger()
	seedSubscriptionFixture(ledger, models.SubscriptionActive)
	svc := NewFulfillmentService(ledger, nil, nil)

	resp, err := svc.DispatchSubscription(context.Background(), 2, 50, &DispatchSubscriptionRequest{BatchID: 7})
	require.NoError(t, err)

	assert.False(t, resp.Activated)
	assert.Equal(t, 4, resp.Quantity)
	assert.Equal(t, 6, ledger.batch(7).Quantity)
	assert.WithinDuration(t, resp.ShippedDate.AddDate(0, 0, 14), resp.DueBy, time.Second,
		"default due date falls one interval after shipment")

	order := ledger.order(resp.OrderID)
	require.NotNil(t, order.ProgramID)
	assert.Equal(t, int64(50), *order.ProgramID)
	assert.True(t, order.Shipped(), "subscription instances ship at dispatch")
	assert.Equal(t, models.SubscriptionActive, ledger.subscription(50).Status)
}

func TestDispatchSubscriptionActivatesQuoted(t *testing.T) {
	ledger := newMemLedger()
	seedSubscriptionFixture(ledger, models.SubscriptionQuoted)
	svc := NewFulfillmentService(ledger, nil, nil)

	resp, err := svc.DispatchSubscription(context.Background(), 2, 50, &DispatchSubscriptionRequest{BatchID: 7})
	require.NoError(t, err)
	assert.True(t, resp.Activated)
	assert.Equal(t, models.SubscriptionActive, ledger.subscription(50).Status)

	// Second fulfillment finds the program already active
	resp, err = svc.DispatchSubscription(context.Background(), 2, 50, &DispatchSubscriptionRequest{BatchID: 7})
	require.NoError(t, err)
	assert.False(t, resp.Activated)
}

func TestDispatchSubscriptionQuantityOverride(t *testing.T) {
	ledger := newMemLedger()
	seedSubscriptionFixture(ledger, models.SubscriptionActive)
	svc := NewFulfillmentService(ledger, nil, nil)

	two := 2
	resp, err := svc.DispatchSubscription(context.Background(), 2, 50,
		&DispatchSubscriptionRequest{BatchID: 7, Quantity: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Quantity)
	assert.Equal(t, 8, ledger.batch(7).Quantity)

	zero := 0
	_, err = svc.DispatchSubscription(context.Background(), 2, 50,
		&DispatchSubscriptionRequest{BatchID: 7, Quantity: &zero})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestDispatchSubscriptionNotActive(t *testing.T) {
	for _, status := range []string{models.SubscriptionAwaitingQuote, models.SubscriptionCancelled} {
		ledger := newMemLedger()
		seedSubscriptionFixture(ledger, status)
		svc := NewFulfillmentService(ledger, nil, nil)

		_, err := svc.DispatchSubscription(context.Background(), 2, 50, &DispatchSubscriptionRequest{BatchID: 7})
		assert.ErrorIs(t, err, models.ErrNotActive, "status %s", status)
		assert.Equal(t, 10, ledger.batch(7).Quantity)
	}
}

func TestDispatchSubscriptionWrongFarm(t *testing.T) {
	ledger := newMemLedger()
	seedSubscriptionFixture(ledger, models.SubscriptionActive)
	svc := NewFulfillmentService(ledger, nil, nil)

	_, err := svc.DispatchSubscription(context.Background(), 9, 50, &DispatchSubscriptionRequest{BatchID: 7})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestDispatchSubscriptionForeignBatch(t *testing.T) {
	ledger := newMemLedger()
	seedSubscriptionFixture(ledger, models.SubscriptionActive)
	ledger.seedBatch(models.Batch{ID: 8, ProductID: 3, FarmID: 9,
		Price: 38, Weight: 1.0, ExpDate: time.Now().AddDate(0, 1, 0), Quantity: 10})
	svc := NewFulfillmentService(ledger, nil, nil)

	_, err := svc.DispatchSubscription(context.Background(), 2, 50, &DispatchSubscriptionRequest{BatchID: 8})
	assert.ErrorIs(t, err, models.ErrOwnershipMismatch)
	assert.Equal(t, 10, ledger.batch(8).Quantity)
}

func TestDispatchSubscriptionProductMismatch(t *testing.T) {
	ledger := newMemLedger()
	seedSubscriptionFixture(ledger, models.SubscriptionActive)
	ledger.seedBatch(models.Batch{ID: 9, ProductID: 4, FarmID: 2,
		Price: 22, Weight: 0.5, ExpDate: time.Now().AddDate(0, 1, 0), Quantity: 10})
	svc := NewFulfillmentService(ledger, nil, nil)

	_, err := svc.DispatchSubscription(context.Background(), 2, 50, &DispatchSubscriptionRequest{BatchID: 9})
	assert.ErrorIs(t, err, models.ErrProductMismatch)

	assert.Equal(t, 10, ledger.batch(9).Quantity, "rejected dispatch must not decrement")
	assert.Equal(t, models.SubscriptionActive, ledger.subscription(50).Status)
	assert.Zero(t, ledger.orderCount())
}

func TestDispatchSubscriptionInsufficientStock(t *testing.T) {
	ledger := newMemLedger()
	seedSubscriptionFixture(ledger, models.SubscriptionActive)
	svc := NewFulfillmentService(ledger, nil, nil)

	twenty := 20
	_, err := svc.DispatchSubscription(context.Background(), 2, 50,
		&DispatchSubscriptionRequest{BatchID: 7, Quantity: &twenty})
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	assert.Equal(t, 10, ledger.batch(7).Quantity)
	assert.Zero(t, ledger.orderCount())
}
