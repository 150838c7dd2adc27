// Package controller reconciles the canonical invoice collection with the
// remote store.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/garyjia/invoice-manager/internal/application/port"
	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"github.com/garyjia/invoice-manager/internal/domain/event"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned when a response arrives after Close
var ErrSessionClosed = errors.New("session closed")

// Option configures a Controller
type Option func(*Controller)

// WithClock overrides the clock used to date fresh drafts
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller owns one session state. Store calls run on the caller's
// goroutine and may overlap; their results are applied through Reduce one at
// a time, in arrival order, and only while the session generation they
// started under is current.
type Controller struct {
	mu         sync.Mutex
	state      State
	generation uint64
	closed     bool

	store  port.InvoiceStore
	ids    *entity.IdentityGenerator
	now    func() time.Time
	logger *zap.Logger
}

// New creates a controller in the loading phase with a fresh draft
func New(store port.InvoiceStore, ids *entity.IdentityGenerator, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		ids:    ids,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = InitialState(c.freshDraft())
	return c
}

// Mount loads the canonical collection. The session reaches Ready either way;
// a failed listing leaves an empty collection and sets the error flag.
func (c *Controller) Mount(ctx context.Context) error {
	gen := c.currentGeneration()

	invoices, err := c.store.List(ctx)
	if err != nil {
		c.logger.Error("Failed to load invoices", zap.Error(err))
		if applyErr := c.apply(gen, event.LoadFailed(err.Error())); applyErr != nil {
			return applyErr
		}
		return err
	}

	c.logger.Info("Invoices loaded", zap.Int("count", len(invoices)))
	return c.apply(gen, event.Loaded(invoices))
}

// Save validates the staged draft and creates or updates it in the store.
// Validation failures return *entity.ValidationError before any network call.
func (c *Controller) Save(ctx context.Context) (entity.Invoice, error) {
	c.mu.Lock()
	draft := c.state.Draft
	draft.Invoice = draft.Invoice.Clone()
	gen := c.generation
	c.mu.Unlock()

	if err := draft.Validate(); err != nil {
		return entity.Invoice{}, err
	}

	if draft.IsNew() {
		return c.create(ctx, gen, draft)
	}
	return c.update(ctx, gen, draft)
}

func (c *Controller) create(ctx context.Context, gen uint64, draft entity.Draft) (entity.Invoice, error) {
	saved, err := c.store.Create(ctx, draft.Submission())
	if err != nil {
		c.logger.Error("Failed to create invoice",
			zap.String("invoice_number", draft.Invoice.InvoiceNumber),
			zap.Error(err))
		return entity.Invoice{}, c.fail(gen, err)
	}

	if err := c.apply(gen, event.Created(saved, c.freshDraft())); err != nil {
		return entity.Invoice{}, err
	}

	c.logger.Info("Invoice created",
		zap.String("invoice_id", saved.ID),
		zap.String("invoice_number", saved.InvoiceNumber))
	return saved, nil
}

func (c *Controller) update(ctx context.Context, gen uint64, draft entity.Draft) (entity.Invoice, error) {
	saved, err := c.store.Update(ctx, draft.PersistedID, draft.Submission())
	if err != nil {
		c.logger.Error("Failed to update invoice",
			zap.String("invoice_id", draft.PersistedID),
			zap.Error(err))
		return entity.Invoice{}, c.fail(gen, err)
	}

	err = c.apply(gen, event.Updated(draft.PersistedID, saved, c.freshDraft()))
	if errors.Is(err, entity.ErrNotFound) {
		// deleted while the update was in flight
		c.logger.Warn("Updated invoice no longer in collection", zap.String("invoice_id", draft.PersistedID))
		return entity.Invoice{}, c.fail(gen, err)
	}
	if err != nil {
		return entity.Invoice{}, err
	}

	c.logger.Info("Invoice updated", zap.String("invoice_id", saved.ID))
	return saved, nil
}

// Delete removes an invoice from the store and the collection
func (c *Controller) Delete(ctx context.Context, id string) error {
	gen := c.currentGeneration()

	if err := c.store.Delete(ctx, id); err != nil {
		c.logger.Error("Failed to delete invoice", zap.String("invoice_id", id), zap.Error(err))
		return c.fail(gen, err)
	}

	if err := c.apply(gen, event.Deleted(id, c.freshDraft())); err != nil {
		return err
	}

	c.logger.Info("Invoice deleted", zap.String("invoice_id", id))
	return nil
}

// Open stages the current canonical entry id for editing
func (c *Controller) Open(id string) error {
	return c.apply(c.currentGeneration(), event.SelectionOpened(id))
}

// ClearSelection drops the selection and resets the draft
func (c *Controller) ClearSelection() error {
	return c.apply(c.currentGeneration(), event.SelectionCleared(c.freshDraft()))
}

// EditDraft applies edit to a copy of the staged draft and stages the result.
// The staged draft is unchanged when edit fails.
func (c *Controller) EditDraft(edit func(d *entity.Draft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrSessionClosed
	}

	draft := c.state.Draft
	draft.Invoice = draft.Invoice.Clone()
	if err := edit(&draft); err != nil {
		return err
	}

	next, err := Reduce(c.state, event.DraftEdited(draft))
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// AddLineItem appends a line item to the staged draft
func (c *Controller) AddLineItem(description string, hours, rate float64) (entity.LineItem, error) {
	var added entity.LineItem
	err := c.EditDraft(func(d *entity.Draft) error {
		item, err := d.AddLineItem(c.ids, description, hours, rate)
		added = item
		return err
	})
	return added, err
}

// DismissError clears the error flag
func (c *Controller) DismissError() error {
	return c.apply(c.currentGeneration(), event.ErrorDismissed())
}

// Snapshot returns a deep copy of the session state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Sorted returns the collection ordered by date, newest first
func (c *Controller) Sorted() []entity.Invoice {
	invoices := c.Snapshot().Invoices
	entity.SortByDateDesc(invoices)
	return invoices
}

// ListByEmployee reads one employee's invoices without touching the collection
func (c *Controller) ListByEmployee(ctx context.Context, employeeID string) ([]entity.Invoice, error) {
	if employeeID == "" {
		return nil, errors.New("employee id is required")
	}
	return c.store.ListByEmployee(ctx, employeeID)
}

// Download fetches the store-rendered document of an invoice
func (c *Controller) Download(ctx context.Context, id string) (port.Document, error) {
	doc, err := c.store.RequestDocument(ctx, id)
	if err != nil {
		c.logger.Error("Failed to download invoice document", zap.String("invoice_id", id), zap.Error(err))
		return port.Document{}, err
	}
	return doc, nil
}

// SendEmail asks the store to email an invoice to its employee
func (c *Controller) SendEmail(ctx context.Context, id string) error {
	if err := c.store.RequestEmailDispatch(ctx, id); err != nil {
		c.logger.Error("Failed to send invoice email", zap.String("invoice_id", id), zap.Error(err))
		return err
	}
	c.logger.Info("Invoice email requested", zap.String("invoice_id", id))
	return nil
}

// SendCustomEmail asks the store to send a free-form email
func (c *Controller) SendCustomEmail(ctx context.Context, email port.CustomEmail) error {
	if email.To == "" || email.Subject == "" {
		return errors.New("recipient and subject are required")
	}
	if err := c.store.RequestCustomEmailDispatch(ctx, email); err != nil {
		c.logger.Error("Failed to send custom email", zap.String("to", email.To), zap.Error(err))
		return err
	}
	return nil
}

// Close ends the session. Responses to calls still in flight are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.generation++
}

func (c *Controller) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// apply reduces e into the state if gen is still the current generation
func (c *Controller) apply(gen uint64, e event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation {
		c.logger.Debug("Dropping late response", zap.String("event", e.Type.String()))
		return ErrSessionClosed
	}

	next, err := Reduce(c.state, e)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// fail records cause in the error flag and returns it. The flag is left
// alone when the session has moved on.
func (c *Controller) fail(gen uint64, cause error) error {
	_ = c.apply(gen, event.MutationFailed(cause.Error()))
	return cause
}

func (c *Controller) freshDraft() entity.Draft {
	return entity.NewDraft(c.ids, c.now())
}
