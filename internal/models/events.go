package models

import "time"

// Event types
const (
	EventTypeOrderPlaced           = "ORDER_PLACED"
	EventTypeOrderShipped          = "ORDER_SHIPPED"
	EventTypeSubscriptionRequested = "SUBSCRIPTION_REQUESTED"
	EventTypeSubscriptionQuoted    = "SUBSCRIPTION_QUOTED"
	EventTypeSubscriptionCancelled = "SUBSCRIPTION_CANCELLED"
	EventTypeSubscriptionFulfilled = "SUBSCRIPTION_FULFILLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published after a customer order commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID      int64   `json:"order_id"`
	ClientID     int64   `json:"client_id"`
	BatchID      int64   `json:"batch_id"`
	Quantity     int     `json:"quantity"`
	Total        float64 `json:"total"`
	PointsEarned int64   `json:"points_earned"`
}

// OrderShippedEvent published when a farmer marks an order shipped
type OrderShippedEvent struct {
	BaseEvent
	OrderID     int64     `json:"order_id"`
	FarmID      int64     `json:"farm_id"`
	BatchID     int64     `json:"batch_id"`
	ShippedDate time.Time `json:"shipped_date"`
}

// SubscriptionRequestedEvent published when a customer asks for a program
type SubscriptionRequestedEvent struct {
	BaseEvent
	ProgramID int64 `json:"program_id"`
	ClientID  int64 `json:"client_id"`
	FarmID    int64 `json:"farm_id"`
	ProductID int64 `json:"product_id"`
}

// SubscriptionQuotedEvent published when a farmer prices a program
type SubscriptionQuotedEvent struct {
	BaseEvent
	ProgramID int64   `json:"program_id"`
	FarmID    int64   `json:"farm_id"`
	Price     float64 `json:"price"`
}

// SubscriptionCancelledEvent published on any cancellation
type SubscriptionCancelledEvent struct {
	BaseEvent
	ProgramID   int64  `json:"program_id"`
	CancelledBy string `json:"cancelled_by"`
}

// SubscriptionFulfilledEvent published after a subscription instance ships.
// Activated reports whether this fulfillment flipped the program to ACTIVE.
type SubscriptionFulfilledEvent struct {
	BaseEvent
	ProgramID int64 `json:"program_id"`
	OrderID   int64 `json:"order_id"`
	BatchID   int64 `json:"batch_id"`
	Quantity  int   `json:"quantity"`
	Activated bool  `json:"activated"`
}
