package entity

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultTaxRate is applied to fresh drafts
	DefaultTaxRate = 10.0

	defaultLineItemHours = 1.0
)

var (
	// ErrEmployeeIDLocked is returned when changing the employee of a persisted invoice
	ErrEmployeeIDLocked = errors.New("employee id cannot change once the invoice exists")

	// ErrLineItemNotFound is returned when a line item id is unknown to the draft
	ErrLineItemNotFound = errors.New("line item not found")
)

// Draft is an invoice being composed or edited before the store confirms it.
// A draft for a new invoice carries a provisional ID; a draft reopened from
// the canonical collection remembers the persisted ID it edits.
type Draft struct {
	Invoice     Invoice `json:"invoice"`
	PersistedID string  `json:"persistedId,omitempty"`
}

// Employee groups the employee fields of an invoice
type Employee struct {
	Name    string
	Email   string
	Address string
	Mobile  string
}

// NewDraft returns an empty draft dated today with one blank line item
func NewDraft(gen *IdentityGenerator, now time.Time) Draft {
	return Draft{
		Invoice: Invoice{
			ID:            gen.ProvisionalID(),
			InvoiceNumber: gen.InvoiceNumber(),
			Date:          now.Format(DateLayout),
			Services: []LineItem{{
				ID:    gen.LineItemID(),
				Hours: defaultLineItemHours,
			}},
			TaxRate: DefaultTaxRate,
		},
	}
}

// OpenDraft reopens a persisted invoice for editing
func OpenDraft(inv Invoice) Draft {
	return Draft{
		Invoice:     inv.Clone(),
		PersistedID: inv.ID,
	}
}

// IsNew reports whether saving this draft creates a new invoice
func (d Draft) IsNew() bool {
	return d.PersistedID == ""
}

// Totals re-derives the draft totals
func (d Draft) Totals() Totals {
	return d.Invoice.Totals()
}

// Validate validates the invoice the draft would submit
func (d Draft) Validate() error {
	return d.Invoice.Validate()
}

// Submission returns the invoice to send to the store
func (d Draft) Submission() Invoice {
	inv := d.Invoice.Clone()
	if !d.IsNew() {
		inv.ID = d.PersistedID
	}
	return inv
}

// SetEmployee replaces the editable employee fields
func (d *Draft) SetEmployee(e Employee) {
	d.Invoice.EmployeeName = e.Name
	d.Invoice.EmployeeEmail = e.Email
	d.Invoice.EmployeeAddress = e.Address
	d.Invoice.EmployeeMobile = e.Mobile
}

// SetEmployeeID sets the employee identity; locked once the invoice exists
func (d *Draft) SetEmployeeID(id string) error {
	if !d.IsNew() && id != d.Invoice.EmployeeID {
		return fmt.Errorf("%w: %s", ErrEmployeeIDLocked, d.Invoice.EmployeeID)
	}
	d.Invoice.EmployeeID = id
	return nil
}

// SetDate sets the invoice date, which must be in YYYY-MM-DD form
func (d *Draft) SetDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	d.Invoice.Date = date
	return nil
}

// SetTaxRate sets the flat tax percentage
func (d *Draft) SetTaxRate(rate float64) error {
	if !(rate >= 0 && rate <= 100) {
		return fmt.Errorf("%w: %v", ErrTaxRateOutOfRange, rate)
	}
	d.Invoice.TaxRate = rate
	return nil
}

// AddLineItem appends a line item with a fresh identifier
func (d *Draft) AddLineItem(gen *IdentityGenerator, description string, hours, rate float64) (LineItem, error) {
	item, err := NewLineItem(gen.LineItemID(), description, hours, rate)
	if err != nil {
		return LineItem{}, err
	}
	d.Invoice.Services = append(d.Invoice.Services, item)
	return item, nil
}

// UpdateLineItem replaces description, hours and rate of an existing line item
func (d *Draft) UpdateLineItem(id, description string, hours, rate float64) error {
	for i := range d.Invoice.Services {
		if d.Invoice.Services[i].ID != id {
			continue
		}
		item, err := NewLineItem(id, description, hours, rate)
		if err != nil {
			return err
		}
		d.Invoice.Services[i] = item
		return nil
	}
	return fmt.Errorf("%w: %s", ErrLineItemNotFound, id)
}

// RemoveLineItem drops a line item. The draft may become empty transiently.
func (d *Draft) RemoveLineItem(id string) error {
	for i, item := range d.Invoice.Services {
		if item.ID == id {
			d.Invoice.Services = append(d.Invoice.Services[:i:i], d.Invoice.Services[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrLineItemNotFound, id)
}
