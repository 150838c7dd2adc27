package entity

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire and in documents
const DateLayout = "2006-01-02"

var (
	// ErrNotFound is returned when an invoice identifier is unknown
	ErrNotFound = errors.New("invoice not found")

	// ErrDuplicateNumber is returned when an invoice number is already taken
	ErrDuplicateNumber = errors.New("invoice number already exists")

	// ErrNegativeQuantity is returned when hours or rate would become negative
	ErrNegativeQuantity = errors.New("hours and rate must be non-negative")

	// ErrTaxRateOutOfRange is returned when a tax rate leaves the 0-100 range
	ErrTaxRateOutOfRange = errors.New("tax rate must be between 0 and 100")
)

// LineItem represents one billable entry of an invoice
type LineItem struct {
	ID          string  `json:"id" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Hours       float64 `json:"hours" validate:"gte=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
}

// NewLineItem builds a line item, rejecting negative hours or rate
func NewLineItem(id, description string, hours, rate float64) (LineItem, error) {
	if hours < 0 || rate < 0 {
		return LineItem{}, fmt.Errorf("%w: hours=%v rate=%v", ErrNegativeQuantity, hours, rate)
	}
	return LineItem{
		ID:          id,
		Description: description,
		Hours:       hours,
		Rate:        rate,
	}, nil
}

// Amount returns hours * rate
func (l LineItem) Amount() float64 {
	return l.Hours * l.Rate
}

// Invoice represents a billing record for hours worked by one employee
type Invoice struct {
	ID              string     `json:"id"`
	InvoiceNumber   string     `json:"invoiceNumber" validate:"required"`
	Date            string     `json:"date" validate:"required,datetime=2006-01-02"`
	EmployeeName    string     `json:"employeeName" validate:"required"`
	EmployeeID      string     `json:"employeeId" validate:"required"`
	EmployeeEmail   string     `json:"employeeEmail" validate:"required"`
	EmployeeAddress string     `json:"employeeAddress" validate:"required"`
	EmployeeMobile  string     `json:"employeeMobile" validate:"required"`
	Services        []LineItem `json:"services" validate:"min=1,dive"`
	TaxRate         float64    `json:"taxRate" validate:"gte=0,lte=100"`
}

// Totals re-derives subtotal, tax and grand total from the current services
func (i Invoice) Totals() Totals {
	return CalculateTotals(i.Services, i.TaxRate)
}

// Clone returns a copy that shares no line item storage with the receiver
func (i Invoice) Clone() Invoice {
	out := i
	if i.Services != nil {
		out.Services = make([]LineItem, len(i.Services))
		copy(out.Services, i.Services)
	}
	return out
}

// ParsedDate returns the invoice date as a time.Time in UTC
func (i Invoice) ParsedDate() (time.Time, error) {
	return time.Parse(DateLayout, i.Date)
}

// SortByDateDesc orders invoices newest first, keeping insertion order for equal dates.
// Unparseable dates sort last.
func SortByDateDesc(invoices []Invoice) {
	sort.SliceStable(invoices, func(a, b int) bool {
		da, errA := invoices[a].ParsedDate()
		db, errB := invoices[b].ParsedDate()
		switch {
		case errA != nil:
			return false
		case errB != nil:
			return true
		}
		return da.After(db)
	})
}
