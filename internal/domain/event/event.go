package event

import (
	"time"

	"github.com/garyjia/invoice-manager/internal/domain/entity"
)

// Event is one input to the session reducer. Everything the reducer needs,
// including a replacement draft when the editor must reset, travels in the
// event so that reduction stays a pure function.
type Event struct {
	Type      Type             `json:"type"`
	InvoiceID string           `json:"invoice_id,omitempty"`
	Invoice   *entity.Invoice  `json:"invoice,omitempty"`
	Invoices  []entity.Invoice `json:"invoices,omitempty"`
	Draft     *entity.Draft    `json:"draft,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

func newEvent(t Type) Event {
	return Event{Type: t, Timestamp: time.Now()}
}

// Loaded carries the full listing returned by the store on mount
func Loaded(invoices []entity.Invoice) Event {
	e := newEvent(TypeInvoicesLoaded)
	e.Invoices = invoices
	return e
}

// LoadFailed reports that the initial listing failed
func LoadFailed(message string) Event {
	e := newEvent(TypeLoadFailed)
	e.Message = message
	return e
}

// Created carries the store-confirmed invoice and the fresh draft for the editor
func Created(inv entity.Invoice, fresh entity.Draft) Event {
	e := newEvent(TypeInvoiceCreated)
	e.Invoice = &inv
	e.InvoiceID = inv.ID
	e.Draft = &fresh
	return e
}

// Updated carries the store-confirmed replacement for the entry at previousID
func Updated(previousID string, inv entity.Invoice, fresh entity.Draft) Event {
	e := newEvent(TypeInvoiceUpdated)
	e.Invoice = &inv
	e.InvoiceID = previousID
	e.Draft = &fresh
	return e
}

// Deleted reports a confirmed deletion; fresh replaces the editor if it held the invoice
func Deleted(id string, fresh entity.Draft) Event {
	e := newEvent(TypeInvoiceDeleted)
	e.InvoiceID = id
	e.Draft = &fresh
	return e
}

// MutationFailed reports a failed store call; the collection stays unchanged
func MutationFailed(message string) Event {
	e := newEvent(TypeMutationFailed)
	e.Message = message
	return e
}

// SelectionOpened opens the canonical entry id for editing
func SelectionOpened(id string) Event {
	e := newEvent(TypeSelectionOpened)
	e.InvoiceID = id
	return e
}

// SelectionCleared drops the selection and installs a fresh draft
func SelectionCleared(fresh entity.Draft) Event {
	e := newEvent(TypeSelectionCleared)
	e.Draft = &fresh
	return e
}

// DraftEdited replaces the staged draft fields
func DraftEdited(d entity.Draft) Event {
	e := newEvent(TypeDraftEdited)
	e.Draft = &d
	return e
}

// ErrorDismissed clears the error flag
func ErrorDismissed() Event {
	return newEvent(TypeErrorDismissed)
}
