package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"github.com/garyjia/invoice-manager/internal/domain/event"
	"github.com/garyjia/invoice-manager/internal/domain/workflow"
)

// ErrMissingPayload is returned when an event lacks the data its type requires
var ErrMissingPayload = errors.New("event payload missing")

// State is the session state: the canonical collection, the selection and
// the staged draft. Err is independent of Phase and of the collection.
type State struct {
	Phase    workflow.State   `json:"phase"`
	Invoices []entity.Invoice `json:"invoices"`
	Selected string           `json:"selected,omitempty"`
	Draft    entity.Draft     `json:"draft"`
	Err      string           `json:"error,omitempty"`
}

// InitialState returns a loading session editing draft
func InitialState(draft entity.Draft) State {
	return State{
		Phase:    workflow.StateLoading,
		Invoices: []entity.Invoice{},
		Draft:    draft,
	}
}

// IndexOf returns the position of id in the collection or -1
func (s State) IndexOf(id string) int {
	for i := range s.Invoices {
		if s.Invoices[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the state
func (s State) Clone() State {
	c := s
	c.Invoices = make([]entity.Invoice, len(s.Invoices))
	for i, inv := range s.Invoices {
		c.Invoices[i] = inv.Clone()
	}
	c.Draft.Invoice = s.Draft.Invoice.Clone()
	return c
}

// Reduce applies one event and returns the next state. It never mutates its
// input; on error the returned state equals the input.
func Reduce(s State, e event.Event) (State, error) {
	next := s

	switch e.Type {
	case event.TypeInvoicesLoaded:
		phase, err := workflow.SessionLifecycle.Next(context.Background(), s.Phase, workflow.TriggerLoadSucceeded)
		if err != nil {
			return s, err
		}
		next.Phase = phase
		next.Invoices = append(make([]entity.Invoice, 0, len(e.Invoices)), e.Invoices...)
		if next.IndexOf(next.Selected) < 0 {
			next.Selected = ""
		}

	case event.TypeLoadFailed:
		phase, err := workflow.SessionLifecycle.Next(context.Background(), s.Phase, workflow.TriggerLoadFailed)
		if err != nil {
			return s, err
		}
		next.Phase = phase
		next.Invoices = []entity.Invoice{}
		next.Selected = ""
		next.Err = e.Message

	case event.TypeInvoiceCreated:
		if e.Invoice == nil || e.Draft == nil {
			return s, fmt.Errorf("%w: %s", ErrMissingPayload, e.Type)
		}
		// merge by store identifier only
		if i := s.IndexOf(e.Invoice.ID); i >= 0 {
			next.Invoices = replaceAt(s.Invoices, i, *e.Invoice)
		} else {
			next.Invoices = appendInvoice(s.Invoices, *e.Invoice)
		}
		next.Selected = ""
		next.Draft = *e.Draft
		next.Err = ""

	case event.TypeInvoiceUpdated:
		if e.Invoice == nil || e.Draft == nil {
			return s, fmt.Errorf("%w: %s", ErrMissingPayload, e.Type)
		}
		i := s.IndexOf(e.InvoiceID)
		if i < 0 {
			return s, fmt.Errorf("%w: %s", entity.ErrNotFound, e.InvoiceID)
		}
		next.Invoices = replaceAt(s.Invoices, i, *e.Invoice)
		next.Selected = ""
		next.Draft = *e.Draft
		next.Err = ""

	case event.TypeInvoiceDeleted:
		if i := s.IndexOf(e.InvoiceID); i >= 0 {
			next.Invoices = removeAt(s.Invoices, i)
		}
		if s.Selected == e.InvoiceID || s.Draft.PersistedID == e.InvoiceID {
			if e.Draft == nil {
				return s, fmt.Errorf("%w: %s", ErrMissingPayload, e.Type)
			}
			next.Selected = ""
			next.Draft = *e.Draft
		}
		next.Err = ""

	case event.TypeMutationFailed:
		next.Err = e.Message

	case event.TypeSelectionOpened:
		i := s.IndexOf(e.InvoiceID)
		if i < 0 {
			return s, fmt.Errorf("%w: %s", entity.ErrNotFound, e.InvoiceID)
		}
		next.Selected = e.InvoiceID
		next.Draft = entity.OpenDraft(s.Invoices[i])

	case event.TypeSelectionCleared:
		if e.Draft == nil {
			return s, fmt.Errorf("%w: %s", ErrMissingPayload, e.Type)
		}
		next.Selected = ""
		next.Draft = *e.Draft

	case event.TypeDraftEdited:
		if e.Draft == nil {
			return s, fmt.Errorf("%w: %s", ErrMissingPayload, e.Type)
		}
		if e.Draft.PersistedID != s.Draft.PersistedID {
			return s, fmt.Errorf("draft edit targets %q while %q is open", e.Draft.PersistedID, s.Draft.PersistedID)
		}
		next.Draft = *e.Draft

	case event.TypeErrorDismissed:
		next.Err = ""

	default:
		return s, fmt.Errorf("unknown event type: %s", e.Type)
	}

	return next, nil
}

func appendInvoice(invoices []entity.Invoice, inv entity.Invoice) []entity.Invoice {
	out := make([]entity.Invoice, 0, len(invoices)+1)
	out = append(out, invoices...)
	return append(out, inv)
}

func replaceAt(invoices []entity.Invoice, i int, inv entity.Invoice) []entity.Invoice {
	out := append([]entity.Invoice(nil), invoices...)
	out[i] = inv
	return out
}

func removeAt(invoices []entity.Invoice, i int) []entity.Invoice {
	out := make([]entity.Invoice, 0, len(invoices)-1)
	out = append(out, invoices[:i]...)
	return append(out, invoices[i+1:]...)
}
