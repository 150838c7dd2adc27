package entity

import "github.com/shopspring/decimal"

// Totals holds the derived aggregate values of an invoice. Never persisted.
type Totals struct {
	SubTotal   float64 `json:"subTotal"`
	TaxAmount  float64 `json:"taxAmount"`
	GrandTotal float64 `json:"grandTotal"`
}

// CalculateTotals derives subtotal, tax amount and grand total.
// Full float64 precision is kept; rounding belongs to FormatAmount.
func CalculateTotals(items []LineItem, taxRate float64) Totals {
	var subTotal float64
	for _, item := range items {
		subTotal += item.Amount()
	}
	taxAmount := subTotal * taxRate / 100
	return Totals{
		SubTotal:   subTotal,
		TaxAmount:  taxAmount,
		GrandTotal: subTotal + taxAmount,
	}
}

// FormatAmount renders a value with exactly two decimals for display
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatRate renders a tax rate without trailing zeros (10 -> "10", 7.5 -> "7.5")
func FormatRate(rate float64) string {
	return decimal.NewFromFloat(rate).String()
}
