package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-service/internal/models"
)

func seedRequestFixture(ledger *memLedger) {
	ledger.seedClient(models.Client{ID: 1, FirstName: "Mina", LastName: "Okafor",
		Email: "mina@example.com", LocationID: 10})
	ledger.seedProduct(models.RawProduct{ID: 3, Name: "Heirloom Tomato", Type: "vegetable", Grade: "A"})
	ledger.seedOffering(models.FarmProduct{ProductID: 3, FarmID: 2, Population: 500, PopulationUnit: "plants"})
}

func TestRequestSubscription(t *testing.T) {
	ledger := newMemLedger()
	seedRequestFixture(ledger)
	svc := NewSubscriptionService(ledger, nil)

	sub, err := svc.RequestSubscription(context.Background(), 1, &RequestSubscriptionRequest{
		ProductID:    3,
		FarmID:       2,
		IntervalDays: 14,
		StartDate:    tomorrow(),
		Quantity:     4,
	})
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionAwaitingQuote, sub.Status)
	assert.Equal(t, int64(10), sub.LocationID, "delivery defaults to the client's location")
	assert.Nil(t, sub.Price)

	stored := ledger.subscription(sub.ProgramID)
	assert.Equal(t, models.SubscriptionAwaitingQuote, stored.Status)
}

func TestRequestSubscriptionValidation(t *testing.T) {
	ledger := newMemLedger()
	seedRequestFixture(ledger)
	svc := NewSubscriptionService(ledger, nil)

	_, err := svc.RequestSubscription(context.Background(), 1, &RequestSubscriptionRequest{
		ProductID: 3, FarmID: 2, IntervalDays: 0, StartDate: tomorrow(), Quantity: 4,
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.RequestSubscription(context.Background(), 1, &RequestSubscriptionRequest{
		ProductID: 3, FarmID: 2, IntervalDays: 14, StartDate: time.Now().AddDate(0, 0, -2), Quantity: 4,
	})
	assert.ErrorIs(t, err, models.ErrInvalidDate)

	// Unknown product
	_, err = svc.RequestSubscription(context.Background(), 1, &RequestSubscriptionRequest{
		ProductID: 99, FarmID: 2, IntervalDays: 14, StartDate: tomorrow(), Quantity: 4,
	})
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Farm does not offer the product
	ledger.seedProduct(models.RawProduct{ID: 4, Name: "Rhubarb", Type: "vegetable", Grade: "B"})
	_, err = svc.RequestSubscription(context.Background(), 1, &RequestSubscriptionRequest{
		ProductID: 4, FarmID: 2, IntervalDays: 14, StartDate: tomorrow(), Quantity: 4,
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRequestSubscriptionDuplicatePairing(t *testing.T) {
	ledger := newMemLedger()
	seedRequestFixture(ledger)
	svc := NewSubscriptionService(ledger, nil)

	req := &RequestSubscriptionRequest{
		ProductID: 3, FarmID: 2, IntervalDays: 14, StartDate: tomorrow(), Quantity: 4,
	}
	_, err := svc.RequestSubscription(context.Background(), 1, req)
	require.NoError(t, err)

	_, err = svc.RequestSubscription(context.Background(), 1, req)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestQuoteSubscription(t *testing.T) {
	ledger := newMemLedger()
	ledger.seedSubscription(models.Subscription{ProgramID: 50, ProductID: 3, FarmID: 2,
		ClientID: 1, IntervalDays: 14, StartDate: tomorrow(), Quantity: 4,
		LocationID: 10, Status: models.SubscriptionAwaitingQuote})
	svc := NewSubscriptionService(ledger, nil)

	price, err := svc.QuoteSubscription(context.Background(), 2, 50, &QuoteSubscriptionRequest{Price: quotedPrice(35)})
	require.NoError(t, err)
	assert.Equal(t, 35.0, price)

	stored := ledger.subscription(50)
	assert.Equal(t, models.SubscriptionQuoted, stored.Status)
	require.NotNil(t, stored.Price)
	assert.Equal(t, 35.0, *stored.Price)

	// Quoting is only valid once
	_, err = svc.QuoteSubscription(context.Background(), 2, 50, &QuoteSubscriptionRequest{Price: quotedPrice(30)})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestQuoteSubscriptionGuards(t *testing.T) {
	ledger := newMemLedger()
	ledger.seedSubscription(models.Subscription{ProgramID: 50, ProductID: 3, FarmID: 2,
		ClientID: 1, IntervalDays: 14, StartDate: tomorrow(), Quantity: 4,
		LocationID: 10, Status: models.SubscriptionAwaitingQuote})
	svc := NewSubscriptionService(ledger, nil)

	_, err := svc.QuoteSubscription(context.Background(), 9, 50, &QuoteSubscriptionRequest{Price: quotedPrice(35)})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.QuoteSubscription(context.Background(), 2, 50, &QuoteSubscriptionRequest{Price: quotedPrice(-1)})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.QuoteSubscription(context.Background(), 2, 50, nil)
	assert.ErrorIs(t, err, models.ErrMissingQuote)

	assert.Equal(t, models.SubscriptionAwaitingQuote, ledger.subscription(50).Status)
}

func TestCancelSubscriptionByCustomer(t *testing.T) {
	for _, status := range []string{
		models.SubscriptionAwaitingQuote, models.SubscriptionQuoted, models.SubscriptionActive,
	} {
		ledger := newMemLedger()
		ledger.seedSubscription(models.Subscription{ProgramID: 50, ProductID: 3, FarmID: 2,
			ClientID: 1, IntervalDays: 14, StartDate: tomorrow(), Quantity: 4,
			LocationID: 10, Status: status})
		svc := NewSubscriptionService(ledger, nil)

		err := svc.CancelSubscription(context.Background(), models.RoleCustomer, 1, 50)
		require.NoError(t, err, "customer cancel from %s", status)
		assert.Equal(t, models.SubscriptionCancelled, ledger.subscription(50).Status)
	}
}

func TestCancelSubscriptionByFarmer(t *testing.T) {
	cases := []struct {
		status  string
		allowed bool
	}{
		{models.SubscriptionAwaitingQuote, true},
		{models.SubscriptionQuoted, false},
		{models.SubscriptionActive, true},
	}
	for _, tc := range cases {
		ledger := newMemLedger()
		ledger.seedSubscription(models.Subscription{ProgramID: 50, ProductID: 3, FarmID: 2,
			ClientID: 1, IntervalDays: 14, StartDate: tomorrow(), Quantity: 4,
			LocationID: 10, Status: tc.status})
		svc := NewSubscriptionService(ledger, nil)

		err := svc.CancelSubscription(context.Background(), models.RoleFarmer, 2, 50)
		if tc.allowed {
			require.NoError(t, err, "farmer cancel from %s", tc.status)
			assert.Equal(t, models.SubscriptionCancelled, ledger.subscription(50).Status)
		} else {
			assert.ErrorIs(t, err, models.ErrInvalidTransition, "farmer cancel from %s", tc.status)
			assert.Equal(t, tc.status, ledger.subscription(50).Status)
		}
	}
}

func TestCancelSubscriptionTerminal(t *testing.T) {
	ledger := newMemLedger()
	ledger.seedSubscription(models.Subscription{ProgramID: 50, ProductID: 3, FarmID: 2,
		ClientID: 1, IntervalDays: 14, StartDate: tomorrow(), Quantity: 4,
		LocationID: 10, Status: models.SubscriptionCancelled})
	svc := NewSubscriptionService(ledger, nil)

	err := svc.CancelSubscription(context.Background(), models.RoleCustomer, 1, 50)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCancelSubscriptionOwnership(t *testing.T) {
	ledger := newMemLedger()
	ledger.seedSubscription(models.Subscription{ProgramID: 50, ProductID: 3, FarmID: 2,
		ClientID: 1, IntervalDays: 14, StartDate: tomorrow(), Quantity: 4,
		LocationID: 10, Status: models.SubscriptionActive})
	svc := NewSubscriptionService(ledger, nil)

	err := svc.CancelSubscription(context.Background(), models.RoleCustomer, 9, 50)
	assert.ErrorIs(t, err, models.ErrForbidden)

	err = svc.CancelSubscription(context.Background(), models.RoleFarmer, 9, 50)
	assert.ErrorIs(t, err, models.ErrForbidden)

	assert.Equal(t, models.SubscriptionActive, ledger.subscription(50).Status)
}

// Walks the whole lifecycle: request, quote, first fulfillment activating
// the program, a repeat fulfillment, then cancellation by the customer.
// No cancellation restocks inventory already shipped.
func TestSubscriptionLifecycle(t *testing.T) {
	ledger := newMemLedger()
	seedRequestFixture(ledger)
	ledger.seedBatch(models.Batch{ID: 7, ProductID: 3, FarmID: 2,
		Price: 40, Weight: 1.2, ExpDate: time.Now().AddDate(0, 1, 0), Quantity: 10})

	subs := NewSubscriptionService(ledger, nil)
	fulfill := NewFulfillmentService(ledger, nil, nil)

	sub, err := subs.RequestSubscription(context.Background(), 1, &RequestSubscriptionRequest{
		ProductID: 3, FarmID: 2, IntervalDays: 7, StartDate: tomorrow(), Quantity: 3,
	})
	require.NoError(t, err)

	_, err = subs.QuoteSubscription(context.Background(), 2, sub.ProgramID,
		&QuoteSubscriptionRequest{Price: quotedPrice(36)})
	require.NoError(t, err)

	first, err := fulfill.DispatchSubscription(context.Background(), 2, sub.ProgramID,
		&DispatchSubscriptionRequest{BatchID: 7})
	require.NoError(t, err)
	assert.True(t, first.Activated)

	second, err := fulfill.DispatchSubscription(context.Background(), 2, sub.ProgramID,
		&DispatchSubscriptionRequest{BatchID: 7})
	require.NoError(t, err)
	assert.False(t, second.Activated)
	assert.Equal(t, 4, ledger.batch(7).Quantity)

	require.NoError(t, subs.CancelSubscription(context.Background(), models.RoleCustomer, 1, sub.ProgramID))
	assert.Equal(t, models.SubscriptionCancelled, ledger.subscription(sub.ProgramID).Status)
	assert.Equal(t, 4, ledger.batch(7).Quantity, "cancellation never restocks")

	_, err = fulfill.DispatchSubscription(context.Background(), 2, sub.ProgramID,
		&DispatchSubscriptionRequest{BatchID: 7})
	assert.ErrorIs(t, err, models.ErrNotActive)
}
