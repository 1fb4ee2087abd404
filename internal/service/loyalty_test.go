package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteLoyalty(t *testing.T) {
	tests := []struct {
		name      string
		balance   int64
		subtotal  float64
		requested int64
		want      LoyaltyQuote
	}{
		{
			// price 100 x qty 2, balance 30, asks to spend 50
			name:      "spend capped by balance",
			balance:   30,
			subtotal:  200,
			requested: 50,
			want: LoyaltyQuote{
				Subtotal:     200,
				Discount:     30,
				Total:        170,
				PointsEarned: 1,
				NewBalance:   1,
			},
		},
		{
			name:      "spend capped by subtotal",
			balance:   500,
			subtotal:  120,
			requested: 400,
			want: LoyaltyQuote{
				Subtotal:     120,
				Discount:     120,
				Total:        0,
				PointsEarned: 0,
				NewBalance:   380,
			},
		},
		{
			name:      "no spend requested",
			balance:   80,
			subtotal:  350,
			requested: 0,
			want: LoyaltyQuote{
				Subtotal:     350,
				Discount:     0,
				Total:        350,
				PointsEarned: 3,
				NewBalance:   83,
			},
		},
		{
			name:      "fractional subtotal floors independently",
			balance:   10,
			subtotal:  99.75,
			requested: 99,
			want: LoyaltyQuote{
				Subtotal:     99.75,
				Discount:     10,
				Total:        89.75,
				PointsEarned: 0,
				NewBalance:   0,
			},
		},
		{
			name:      "negative request treated as zero",
			balance:   40,
			subtotal:  100,
			requested: -5,
			want: LoyaltyQuote{
				Subtotal:     100,
				Discount:     0,
				Total:        100,
				PointsEarned: 1,
				NewBalance:   41,
			},
		},
		{
			name:      "zero balance earns only",
			balance:   0,
			subtotal:  250,
			requested: 25,
			want: LoyaltyQuote{
				Subtotal:     250,
				Discount:     0,
				Total:        250,
				PointsEarned: 2,
				NewBalance:   2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuoteLoyalty(tt.balance, tt.subtotal, tt.requested)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoteLoyaltyNeverOverdraws(t *testing.T) {
	for balance := int64(0); balance <= 50; balance += 10 {
		for spend := int64(0); spend <= 100; spend += 25 {
			q := QuoteLoyalty(balance, 60, spend)
			assert.GreaterOrEqual(t, q.NewBalance, int64(0),
				"balance=%d spend=%d", balance, spend)
			assert.LessOrEqual(t, q.Discount, balance)
			assert.GreaterOrEqual(t, q.Total, 0.0)
		}
	}
}
