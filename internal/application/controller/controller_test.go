package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/invoice-manager/internal/application/port"
	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"github.com/garyjia/invoice-manager/internal/domain/workflow"
	"github.com/garyjia/invoice-manager/internal/infrastructure/external/storeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore is an in-memory store; the func fields override single calls
type fakeStore struct {
	mu       sync.Mutex
	invoices []entity.Invoice
	nextID   int
	calls    int

	listFunc   func(ctx context.Context) ([]entity.Invoice, error)
	createFunc func(ctx context.Context, inv entity.Invoice) (entity.Invoice, error)
	updateFunc func(ctx context.Context, id string, inv entity.Invoice) (entity.Invoice, error)
	deleteFunc func(ctx context.Context, id string) error
}

func (f *fakeStore) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeStore) List(ctx context.Context) ([]entity.Invoice, error) {
	f.count()
	if f.listFunc != nil {
		return f.listFunc(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.Invoice, len(f.invoices))
	for i, inv := range f.invoices {
		out[i] = inv.Clone()
	}
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, inv entity.Invoice) (entity.Invoice, error) {
	f.count()
	if f.createFunc != nil {
		return f.createFunc(ctx, inv)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	inv = inv.Clone()
	inv.ID = fmt.Sprintf("srv-%d", f.nextID)
	f.invoices = append(f.invoices, inv)
	return inv.Clone(), nil
}

func (f *fakeStore) Update(ctx context.Context, id string, inv entity.Invoice) (entity.Invoice, error) {
	f.count()
	if f.updateFunc != nil {
		return f.updateFunc(ctx, id, inv)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.invoices {
		if f.invoices[i].ID == id {
			inv = inv.Clone()
			inv.ID = id
			f.invoices[i] = inv
			return inv.Clone(), nil
		}
	}
	return entity.Invoice{}, &storeapi.TransportError{Op: "update", StatusCode: http.StatusNotFound, Message: "invoice not found", Err: entity.ErrNotFound}
}

func (f *fakeStore) Get(ctx context.Context, id string) (entity.Invoice, error) {
	f.count()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.ID == id {
			return inv.Clone(), nil
		}
	}
	return entity.Invoice{}, entity.ErrNotFound
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.count()
	if f.deleteFunc != nil {
		return f.deleteFunc(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.invoices {
		if f.invoices[i].ID == id {
			f.invoices = append(f.invoices[:i], f.invoices[i+1:]...)
			return nil
		}
	}
	return entity.ErrNotFound
}

func (f *fakeStore) ListByEmployee(ctx context.Context, employeeID string) ([]entity.Invoice, error) {
	f.count()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Invoice
	for _, inv := range f.invoices {
		if inv.EmployeeID == employeeID {
			out = append(out, inv.Clone())
		}
	}
	return out, nil
}

func (f *fakeStore) RequestDocument(ctx context.Context, id string) (port.Document, error) {
	f.count()
	return port.Document{Filename: "Invoice_" + id + ".pdf", Content: []byte("%PDF")}, nil
}

func (f *fakeStore) RequestEmailDispatch(ctx context.Context, id string) error {
	f.count()
	return nil
}

func (f *fakeStore) RequestCustomEmailDispatch(ctx context.Context, email port.CustomEmail) error {
	f.count()
	return nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func storedInvoice(id, employeeID, date string, hours float64) entity.Invoice {
	return entity.Invoice{
		ID:              id,
		InvoiceNumber:   "INV#OF-" + id,
		Date:            date,
		EmployeeName:    "Employee " + employeeID,
		EmployeeID:      employeeID,
		EmployeeEmail:   employeeID + "@example.com",
		EmployeeAddress: "1 Main Road",
		EmployeeMobile:  "+1 555 0100",
		Services: []entity.LineItem{
			{ID: "service-a", Description: "API design", Hours: hours, Rate: 500},
			{ID: "service-b", Description: "Implementation", Hours: 1.5, Rate: 1000},
		},
		TaxRate: 10,
	}
}

func newTestController(t *testing.T, store *fakeStore) *Controller {
	t.Helper()
	ids, err := entity.NewIdentityGenerator()
	require.NoError(t, err)
	clock := func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	return New(store, ids, zap.NewNop(), WithClock(clock))
}

func mounted(t *testing.T, store *fakeStore) *Controller {
	t.Helper()
	c := newTestController(t, store)
	require.NoError(t, c.Mount(context.Background()))
	return c
}

func fillDraft(c *Controller) error {
	return c.EditDraft(func(d *entity.Draft) error {
		d.SetEmployee(entity.Employee{
			Name:    "Asha Rao",
			Email:   "asha@example.com",
			Address: "12 Park Street",
			Mobile:  "+91 90000 00000",
		})
		if err := d.SetEmployeeID("EMP-7"); err != nil {
			return err
		}
		return d.UpdateLineItem(d.Invoice.Services[0].ID, "API design", 2, 500)
	})
}

// businessFields blanks the identifiers so store and draft copies compare equal
func businessFields(inv entity.Invoice) entity.Invoice {
	inv = inv.Clone()
	inv.ID = ""
	for i := range inv.Services {
		inv.Services[i].ID = ""
	}
	return inv
}

func TestController_MountSuccess(t *testing.T) {
	store := &fakeStore{invoices: []entity.Invoice{storedInvoice("1", "EMP-1", "2025-01-01", 2)}}

	c := mounted(t, store)

	snap := c.Snapshot()
	assert.Equal(t, workflow.StateReady, snap.Phase)
	assert.Len(t, snap.Invoices, 1)
	assert.Empty(t, snap.Err)
	assert.True(t, snap.Draft.IsNew())
}

func TestController_MountFailure(t *testing.T) {
	store := &fakeStore{listFunc: func(ctx context.Context) ([]entity.Invoice, error) {
		return nil, &storeapi.TransportError{Op: "list", Message: "failed to fetch invoices: 503 Service Unavailable"}
	}}
	c := newTestController(t, store)

	err := c.Mount(context.Background())

	require.Error(t, err)
	snap := c.Snapshot()
	assert.Equal(t, workflow.StateReady, snap.Phase)
	assert.NotNil(t, snap.Invoices)
	assert.Empty(t, snap.Invoices)
	assert.Equal(t, "failed to fetch invoices: 503 Service Unavailable", snap.Err)

	require.NoError(t, c.DismissError())
	assert.Empty(t, c.Snapshot().Err)
	assert.Equal(t, workflow.StateReady, c.Snapshot().Phase)
}

func TestController_CreateRoundTrip(t *testing.T) {
	store := &fakeStore{}
	c := mounted(t, store)

	require.NoError(t, fillDraft(c))
	_, err := c.AddLineItem("Implementation", 1.5, 1000)
	require.NoError(t, err)
	submitted := c.Snapshot().Draft.Invoice

	saved, err := c.Save(context.Background())

	require.NoError(t, err)
	assert.NotEqual(t, submitted.ID, saved.ID)
	assert.Equal(t, 2750.0, saved.Totals().GrandTotal)

	fetched, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Equal(t, businessFields(submitted), businessFields(fetched[0]))

	snap := c.Snapshot()
	require.Len(t, snap.Invoices, 1)
	assert.Equal(t, saved.ID, snap.Invoices[0].ID)
	assert.True(t, snap.Draft.IsNew())
	assert.NotEqual(t, submitted.InvoiceNumber, snap.Draft.Invoice.InvoiceNumber)
	assert.Empty(t, snap.Draft.Invoice.EmployeeName, "draft resets after save")
}

func TestController_SaveValidationBlocksNetwork(t *testing.T) {
	store := &fakeStore{}
	c := mounted(t, store)
	before := store.callCount()

	_, err := c.Save(context.Background())

	var verr *entity.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("employeeName"))
	assert.True(t, verr.Has("services[0].description"))
	assert.Equal(t, before, store.callCount(), "no store call on validation failure")
	assert.Empty(t, c.Snapshot().Invoices)
}

func TestController_CreateDuplicateLeavesCollectionUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":[{"id":"1","invoiceNumber":"INV#OF-1","date":"2025-01-01"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"message":"","error":"duplicate invoice"}`))
	}))
	defer srv.Close()

	client, err := storeapi.NewClient(storeapi.Config{BaseURL: srv.URL}, nil, zap.NewNop())
	require.NoError(t, err)
	ids, err := entity.NewIdentityGenerator()
	require.NoError(t, err)
	c := New(client, ids, zap.NewNop())
	require.NoError(t, c.Mount(context.Background()))
	before := c.Snapshot().Invoices

	require.NoError(t, fillDraft(c))
	_, err = c.Save(context.Background())

	require.Error(t, err)
	assert.Equal(t, "duplicate invoice", err.Error())
	snap := c.Snapshot()
	assert.Equal(t, before, snap.Invoices)
	assert.Equal(t, "duplicate invoice", snap.Err)
	assert.Equal(t, "Asha Rao", snap.Draft.Invoice.EmployeeName, "draft kept for retry")
}

func TestController_DeleteRemovesExactlyOne(t *testing.T) {
	store := &fakeStore{invoices: []entity.Invoice{
		storedInvoice("1", "EMP-1", "2025-01-01", 1),
		storedInvoice("2", "EMP-2", "2025-02-01", 2),
		storedInvoice("3", "EMP-3", "2025-03-01", 3),
	}}
	c := mounted(t, store)
	require.NoError(t, c.Open("2"))

	require.NoError(t, c.Delete(context.Background(), "2"))

	snap := c.Snapshot()
	require.Len(t, snap.Invoices, 2)
	assert.Equal(t, storedInvoice("1", "EMP-1", "2025-01-01", 1), snap.Invoices[0])
	assert.Equal(t, storedInvoice("3", "EMP-3", "2025-03-01", 3), snap.Invoices[1])
	assert.Empty(t, snap.Selected)
	assert.True(t, snap.Draft.IsNew(), "open draft resets when its invoice is deleted")
}

func TestController_DeleteKeepsUnrelatedDraft(t *testing.T) {
	store := &fakeStore{invoices: []entity.Invoice{
		storedInvoice("1", "EMP-1", "2025-01-01", 1),
		storedInvoice("2", "EMP-2", "2025-02-01", 2),
	}}
	c := mounted(t, store)
	require.NoError(t, c.Open("1"))

	require.NoError(t, c.Delete(context.Background(), "2"))

	snap := c.Snapshot()
	assert.Equal(t, "1", snap.Selected)
	assert.Equal(t, "1", snap.Draft.PersistedID)
}

func TestController_DeleteFailure(t *testing.T) {
	store := &fakeStore{
		invoices: []entity.Invoice{storedInvoice("1", "EMP-1", "2025-01-01", 1)},
		deleteFunc: func(ctx context.Context, id string) error {
			return &storeapi.ApplicationError{Op: "delete", Message: "failed to delete invoice"}
		},
	}
	c := mounted(t, store)

	err := c.Delete(context.Background(), "1")

	require.Error(t, err)
	snap := c.Snapshot()
	assert.Len(t, snap.Invoices, 1)
	assert.Equal(t, "failed to delete invoice", snap.Err)
}

func TestController_UpdateTaxRate(t *testing.T) {
	store := &fakeStore{invoices: []entity.Invoice{storedInvoice("1", "EMP-1", "2025-01-01", 2)}}
	c := mounted(t, store)
	prior := c.Snapshot().Invoices[0].Totals()

	require.NoError(t, c.Open("1"))
	require.NoError(t, c.EditDraft(func(d *entity.Draft) error { return d.SetTaxRate(0) }))
	saved, err := c.Save(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "1", saved.ID)
	after := c.Snapshot().Invoices[0].Totals()
	assert.InDelta(t, prior.GrandTotal-prior.TaxAmount, after.GrandTotal, 1e-9)
	assert.Zero(t, after.TaxAmount)
	assert.Empty(t, c.Snapshot().Selected)
}

func TestController_UpdateMissingInStore(t *testing.T) {
	store := &fakeStore{invoices: []entity.Invoice{storedInvoice("1", "EMP-1", "2025-01-01", 2)}}
	c := mounted(t, store)
	require.NoError(t, c.Open("1"))
	store.invoices = nil

	_, err := c.Save(context.Background())

	assert.ErrorIs(t, err, entity.ErrNotFound)
	snap := c.Snapshot()
	assert.Len(t, snap.Invoices, 1)
	assert.Equal(t, "invoice not found", snap.Err)
}

func TestController_UpdateAfterConcurrentDelete(t *testing.T) {
	store := &fakeStore{invoices: []entity.Invoice{storedInvoice("1", "EMP-1", "2025-01-01", 2)}}
	c := mounted(t, store)
	require.NoError(t, c.Open("1"))
	require.NoError(t, c.EditDraft(func(d *entity.Draft) error { return d.SetTaxRate(5) }))

	store.updateFunc = func(ctx context.Context, id string, inv entity.Invoice) (entity.Invoice, error) {
		// the delete resolves while the update is in flight
		store.deleteFunc = func(ctx context.Context, id string) error { return nil }
		require.NoError(t, c.Delete(ctx, id))
		inv.ID = id
		return inv, nil
	}

	_, err := c.Save(context.Background())

	assert.ErrorIs(t, err, entity.ErrNotFound)
	snap := c.Snapshot()
	assert.Empty(t, snap.Invoices, "no append on update of a removed entry")
	assert.Contains(t, snap.Err, "invoice not found")
}

func TestController_LateResponseIgnoredAfterClose(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	store := &fakeStore{listFunc: func(ctx context.Context) ([]entity.Invoice, error) {
		close(started)
		<-release
		return []entity.Invoice{storedInvoice("1", "EMP-1", "2025-01-01", 1)}, nil
	}}
	c := newTestController(t, store)

	done := make(chan error, 1)
	go func() { done <- c.Mount(context.Background()) }()
	<-started
	c.Close()
	close(release)

	assert.ErrorIs(t, <-done, ErrSessionClosed)
	snap := c.Snapshot()
	assert.Equal(t, workflow.StateLoading, snap.Phase)
	assert.Empty(t, snap.Invoices)
	assert.Empty(t, snap.Err)
}

func TestController_LateMutationFailureIgnoredAfterClose(t *testing.T) {
	store := &fakeStore{}
	c := mounted(t, store)
	store.deleteFunc = func(ctx context.Context, id string) error {
		c.Close()
		return errors.New("failed to delete invoice")
	}

	err := c.Delete(context.Background(), "1")

	require.Error(t, err)
	assert.Empty(t, c.Snapshot().Err)
	assert.ErrorIs(t, c.EditDraft(func(d *entity.Draft) error { return nil }), ErrSessionClosed)
}

func TestController_OpenReadsCanonicalEntry(t *testing.T) {
	store := &fakeStore{invoices: []entity.Invoice{storedInvoice("1", "EMP-1", "2025-01-01", 2)}}
	c := mounted(t, store)

	assert.ErrorIs(t, c.Open("missing"), entity.ErrNotFound)
	require.NoError(t, c.Open("1"))

	snap := c.Snapshot()
	assert.Equal(t, "1", snap.Selected)
	assert.Equal(t, snap.Invoices[0], snap.Draft.Invoice)

	err := c.EditDraft(func(d *entity.Draft) error { return d.SetEmployeeID("EMP-9") })
	assert.ErrorIs(t, err, entity.ErrEmployeeIDLocked)

	require.NoError(t, c.EditDraft(func(d *entity.Draft) error {
		d.Invoice.Services[0].Description = "edited"
		return nil
	}))
	assert.Equal(t, "API design", c.Snapshot().Invoices[0].Services[0].Description, "edits stay in the draft until saved")

	require.NoError(t, c.ClearSelection())
	snap = c.Snapshot()
	assert.Empty(t, snap.Selected)
	assert.True(t, snap.Draft.IsNew())
	assert.Empty(t, snap.Draft.Invoice.EmployeeName)
	assert.Equal(t, "2025-03-14", snap.Draft.Invoice.Date)
}

func TestController_SnapshotIsDeepCopy(t *testing.T) {
	store := &fakeStore{invoices: []entity.Invoice{storedInvoice("1", "EMP-1", "2025-01-01", 2)}}
	c := mounted(t, store)

	snap := c.Snapshot()
	snap.Invoices[0].Services[0].Hours = 99
	snap.Draft.Invoice.Services[0].Description = "mutated"

	again := c.Snapshot()
	assert.Equal(t, 2.0, again.Invoices[0].Services[0].Hours)
	assert.Empty(t, again.Draft.Invoice.Services[0].Description)
}

func TestController_Sorted(t *testing.T) {
	store := &fakeStore{invoices: []entity.Invoice{
		storedInvoice("old", "EMP-1", "2024-01-01", 1),
		storedInvoice("new", "EMP-1", "2025-05-01", 1),
		storedInvoice("mid", "EMP-2", "2024-08-01", 1),
	}}
	c := mounted(t, store)

	sorted := c.Sorted()

	require.Len(t, sorted, 3)
	assert.Equal(t, "new", sorted[0].ID)
	assert.Equal(t, "mid", sorted[1].ID)
	assert.Equal(t, "old", sorted[2].ID)
	assert.Equal(t, "old", c.Snapshot().Invoices[0].ID, "canonical order unchanged")
}

func TestController_SideChannels(t *testing.T) {
	store := &fakeStore{invoices: []entity.Invoice{
		storedInvoice("1", "EMP-1", "2025-01-01", 1),
		storedInvoice("2", "EMP-2", "2025-01-02", 1),
	}}
	c := mounted(t, store)
	ctx := context.Background()

	byEmployee, err := c.ListByEmployee(ctx, "EMP-2")
	require.NoError(t, err)
	require.Len(t, byEmployee, 1)
	assert.Equal(t, "2", byEmployee[0].ID)

	_, err = c.ListByEmployee(ctx, "")
	assert.Error(t, err)

	doc, err := c.Download(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Invoice_1.pdf", doc.Filename)

	assert.NoError(t, c.SendEmail(ctx, "1"))
	assert.Error(t, c.SendCustomEmail(ctx, port.CustomEmail{Subject: "no recipient"}))
	assert.NoError(t, c.SendCustomEmail(ctx, port.CustomEmail{To: "a@b.io", Subject: "Hi", Body: "Hello"}))

	assert.Len(t, c.Snapshot().Invoices, 2)
}
