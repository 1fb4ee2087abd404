package service

import "math"

// pointsEarnDivisor converts order totals into earned points: one point per
// whole 100 of currency spent after discount.
const pointsEarnDivisor = 100

// LoyaltyQuote is the outcome of applying a client's point balance to an
// order subtotal. Whole points are a currency equivalent: one point is one
// unit of currency off the subtotal.
type LoyaltyQuote struct {
	Subtotal     float64 `json:"subtotal"`
	Discount     int64   `json:"discount"`
	Total        float64 `json:"total"`
	PointsEarned int64   `json:"points_earned"`
	NewBalance   int64   `json:"new_balance"`
}

// QuoteLoyalty computes the discount a client may take and the balance that
// results from the purchase. Pure computation, no I/O.
//
// Rounding is floor at every step, applied independently rather than
// compounded. Discount never exceeds the balance, so NewBalance cannot go
// negative.
func QuoteLoyalty(balance int64, subtotal float64, requestedSpend int64) LoyaltyQuote {
	if requestedSpend < 0 {
		requestedSpend = 0
	}

	maxDiscount := int64(math.Floor(subtotal))
	if balance < maxDiscount {
		maxDiscount = balance
	}

	discount := requestedSpend
	if discount > maxDiscount {
		discount = maxDiscount
	}

	total := subtotal - float64(discount)
	pointsEarned := int64(math.Floor(total / pointsEarnDivisor))

	return LoyaltyQuote{
		Subtotal:     subtotal,
		Discount:     discount,
		Total:        total,
		PointsEarned: pointsEarned,
		NewBalance:   balance - discount + pointsEarned,
	}
}
