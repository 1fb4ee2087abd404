package models

import "time"

// Client is a customer account with a loyalty point balance
type Client struct {
	ID            int64   `db:"client_id" json:"client_id"`
	CompanyName   *string `db:"company_name" json:"company_name,omitempty"`
	FirstName     string  `db:"first_name" json:"first_name"`
	LastName      string  `db:"last_name" json:"last_name"`
	Honorific     *string `db:"honorific" json:"honorific,omitempty"`
	Email         string  `db:"email" json:"email"`
	LocationID    int64   `db:"location_id" json:"location_id"`
	LoyaltyPoints int64   `db:"loyalty_points" json:"loyalty_points"`
}

// Farm is a producer account
type Farm struct {
	ID         int64  `db:"farm_id" json:"farm_id"`
	Name       string `db:"name" json:"name"`
	LocationID int64  `db:"location_id" json:"location_id"`
}

// Location is a delivery or farm address
type Location struct {
	ID        int64   `db:"location_id" json:"location_id"`
	Continent string  `db:"continent" json:"continent"`
	Country   string  `db:"country" json:"country"`
	State     *string `db:"state" json:"state,omitempty"`
	City      string  `db:"city" json:"city"`
	Street    string  `db:"street" json:"street"`
}

// RawProduct is a catalog entry farms can offer
type RawProduct struct {
	ID          int64      `db:"product_id" json:"product_id"`
	Name        string     `db:"product_name" json:"product_name"`
	Type        string     `db:"product_type" json:"product_type"`
	Grade       string     `db:"grade" json:"grade"`
	StartSeason *time.Time `db:"start_season" json:"start_season,omitempty"`
	EndSeason   *time.Time `db:"end_season" json:"end_season,omitempty"`
}

// FarmProduct declares that a farm offers a product. Batches may only be
// stocked for declared offerings.
type FarmProduct struct {
	ProductID      int64  `db:"product_id" json:"product_id"`
	FarmID         int64  `db:"farm_id" json:"farm_id"`
	Population     int    `db:"population" json:"population"`
	PopulationUnit string `db:"population_unit" json:"population_unit"`
}

// Batch is a priced, dated quantity of one product stocked by one farm.
// It is the unit of inventory reservation: quantity is decremented on
// every placement or fulfillment and never goes below zero.
type Batch struct {
	ID        int64     `db:"batch_id" json:"batch_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	FarmID    int64     `db:"farm_id" json:"farm_id"`
	Price     float64   `db:"price" json:"price"`
	Weight    float64   `db:"weight" json:"weight"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	ExpDate   time.Time `db:"exp_date" json:"exp_date"`
	Quantity  int       `db:"quantity" json:"quantity"`
}

// Order is one fulfillment event. Rows are immutable once written except
// for the one-way pending -> shipped transition.
type Order struct {
	ID             int64      `db:"order_id" json:"order_id"`
	ClientID       int64      `db:"client_id" json:"client_id"`
	BatchID        int64      `db:"batch_id" json:"batch_id"`
	LocationID     int64      `db:"location_id" json:"location_id"`
	OrderDate      time.Time  `db:"order_date" json:"order_date"`
	Quantity       int        `db:"quantity" json:"quantity"`
	ShippedDate    *time.Time `db:"shipped_date" json:"shipped_date,omitempty"`
	DueBy          time.Time  `db:"due_by" json:"due_by"`
	LoyaltyUsed    int64      `db:"loyalty_points_used" json:"loyalty_points_used"`
	ProgramID      *int64     `db:"program_id" json:"program_id,omitempty"`
	IdempotencyKey *string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
}

// Shipped reports whether the order left pending state.
func (o Order) Shipped() bool {
	return o.ShippedDate != nil
}

// Subscription is a recurring delivery program linking one client, farm
// and product.
type Subscription struct {
	ProgramID    int64     `db:"program_id" json:"program_id"`
	ProductID    int64     `db:"product_id" json:"product_id"`
	FarmID       int64     `db:"farm_id" json:"farm_id"`
	ClientID     int64     `db:"client_id" json:"client_id"`
	IntervalDays int       `db:"order_interval_days" json:"order_interval_days"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
	Quantity     int       `db:"quantity" json:"quantity"`
	LocationID   int64     `db:"location_id" json:"location_id"`
	Price        *float64  `db:"price" json:"price,omitempty"`
	Status       string    `db:"status" json:"status"`
}

// Subscription statuses
const (
	SubscriptionAwaitingQuote = "AWAITING_QUOTE"
	SubscriptionQuoted        = "QUOTED"
	SubscriptionActive        = "ACTIVE"
	SubscriptionCancelled     = "CANCELLED"
)

// Caller roles resolved by the session collaborator
const (
	RoleCustomer = "customer"
	RoleFarmer   = "farmer"
	RoleAdmin    = "admin"
)

// FarmOffering is an offering joined with its product row
type FarmOffering struct {
	FarmProduct
	ProductName string `db:"product_name" json:"product_name"`
	ProductType string `db:"product_type" json:"product_type"`
	Grade       string `db:"grade" json:"grade"`
}

// BatchDetail is a storefront read of a batch joined with its product and
// farm dimension rows.
type BatchDetail struct {
	Batch
	ProductName string  `db:"product_name" json:"product_name"`
	ProductType string  `db:"product_type" json:"product_type"`
	Grade       string  `db:"grade" json:"grade"`
	FarmName    string  `db:"farm_name" json:"farm_name"`
	City        *string `db:"city" json:"city,omitempty"`
	Country     *string `db:"country" json:"country,omitempty"`
}

// OrderDetail is an order joined with batch pricing and product naming for
// customer history and farmer worklists.
type OrderDetail struct {
	Order
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
	ProductName string  `db:"product_name" json:"product_name"`
	FarmID      int64   `db:"farm_id" json:"farm_id"`
	FarmName    string  `db:"farm_name" json:"farm_name"`
}

// SubscriptionDetail is a subscription joined with product and farm names.
type SubscriptionDetail struct {
	Subscription
	ProductName string `db:"product_name" json:"product_name"`
	FarmName    string `db:"farm_name" json:"farm_name"`
}

// ProcessedEvent records consumed broker events for worker dedup
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
