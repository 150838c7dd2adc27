package entity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTotals(t *testing.T) {
	tests := []struct {
		name    string
		items   []LineItem
		taxRate float64
		want    Totals
	}{
		{
			name:    "empty services",
			items:   nil,
			taxRate: 18,
			want:    Totals{},
		},
		{
			name: "two items with ten percent tax",
			items: []LineItem{
				{ID: "a", Description: "design", Hours: 2, Rate: 500},
				{ID: "b", Description: "build", Hours: 1.5, Rate: 1000},
			},
			taxRate: 10,
			want:    Totals{SubTotal: 2500, TaxAmount: 250, GrandTotal: 2750},
		},
		{
			name: "zero tax rate",
			items: []LineItem{
				{ID: "a", Description: "support", Hours: 3, Rate: 120},
			},
			taxRate: 0,
			want:    Totals{SubTotal: 360, TaxAmount: 0, GrandTotal: 360},
		},
		{
			name: "zero hours",
			items: []LineItem{
				{ID: "a", Description: "idle", Hours: 0, Rate: 999},
			},
			taxRate: 25,
			want:    Totals{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateTotals(tt.items, tt.taxRate)
			assert.InDelta(t, tt.want.SubTotal, got.SubTotal, 1e-9)
			assert.InDelta(t, tt.want.TaxAmount, got.TaxAmount, 1e-9)
			assert.InDelta(t, tt.want.GrandTotal, got.GrandTotal, 1e-9)
		})
	}
}

func TestCalculateTotals_Properties(t *testing.T) {
	// Deterministic pseudo-random sequences of non-negative hours and rates
	seed := uint64(42)
	next := func() float64 {
		seed = seed*6364136223846793005 + 1442695040888963407
		return float64(seed>>40) / float64(1<<24) * 200
	}

	for n := 0; n < 50; n++ {
		items := make([]LineItem, n%12)
		var want float64
		for i := range items {
			items[i] = LineItem{ID: string(rune('a' + i)), Hours: next(), Rate: next()}
			want += items[i].Hours * items[i].Rate
		}
		taxRate := math.Mod(next(), 100)

		got := CalculateTotals(items, taxRate)

		assert.InDelta(t, want, got.SubTotal, 1e-6)
		assert.InDelta(t, 0, got.GrandTotal-got.SubTotal-got.TaxAmount, 1e-6)

		zero := CalculateTotals(items, 0)
		assert.Equal(t, 0.0, zero.TaxAmount)
		assert.Equal(t, zero.SubTotal, zero.GrandTotal)
	}
}

func TestInvoiceTotals_TaxRateChange(t *testing.T) {
	inv := Invoice{
		Services: []LineItem{
			{ID: "a", Description: "design", Hours: 2, Rate: 500},
			{ID: "b", Description: "build", Hours: 1.5, Rate: 1000},
		},
		TaxRate: 10,
	}
	before := inv.Totals()

	inv.TaxRate = 0
	after := inv.Totals()

	assert.InDelta(t, before.TaxAmount, before.GrandTotal-after.GrandTotal, 1e-9)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "2750.00", FormatAmount(2750))
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "1.01", FormatAmount(1.005))
	assert.Equal(t, "33.33", FormatAmount(100.0/3))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "10", FormatRate(10))
	assert.Equal(t, "7.5", FormatRate(7.5))
	assert.Equal(t, "0", FormatRate(0))
}
