// Package storeapi is the typed client of the remote invoice store.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/garyjia/invoice-manager/internal/application/port"
	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"go.uber.org/zap"
)

const maxResponseBytes = 32 << 20

// ErrResponseTooLarge is returned when a response body exceeds the read limit
var ErrResponseTooLarge = errors.New("response body too large")

// Config holds store client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the remote store. Calls are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxBody    int64
	logger     *zap.Logger
}

// NewClient creates a store client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid store base url %q: scheme must be http or https", cfg.BaseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		maxBody:    maxResponseBytes,
		logger:     logger,
	}, nil
}

// Create submits a draft and returns the store-assigned invoice.
// A provisional client identifier is not sent.
func (c *Client) Create(ctx context.Context, inv entity.Invoice) (entity.Invoice, error) {
	if entity.IsProvisionalID(inv.ID) {
		inv.ID = ""
	}
	data, err := call[entity.Invoice](ctx, c, opCreate, http.MethodPost, "", inv)
	if err != nil {
		return entity.Invoice{}, err
	}
	if data == nil {
		return entity.Invoice{}, &ApplicationError{Op: opCreate.name, Message: opCreate.failure + ": empty response"}
	}
	return *data, nil
}

// Update replaces the invoice stored at id. An unknown id wraps entity.ErrNotFound.
func (c *Client) Update(ctx context.Context, id string, inv entity.Invoice) (entity.Invoice, error) {
	data, err := call[entity.Invoice](ctx, c, opUpdate, http.MethodPut, c.idPath(id), inv)
	if err != nil {
		return entity.Invoice{}, err
	}
	if data == nil {
		return entity.Invoice{}, &ApplicationError{Op: opUpdate.name, Message: opUpdate.failure + ": empty response"}
	}
	return *data, nil
}

// List returns every stored invoice; an empty store yields an empty slice
func (c *Client) List(ctx context.Context) ([]entity.Invoice, error) {
	return c.list(ctx, opList, "")
}

// ListByEmployee returns the invoices of one employee
func (c *Client) ListByEmployee(ctx context.Context, employeeID string) ([]entity.Invoice, error) {
	return c.list(ctx, opListByEmployee, "/employee/"+url.PathEscape(employeeID))
}

func (c *Client) list(ctx context.Context, op operation, path string) ([]entity.Invoice, error) {
	data, err := call[[]entity.Invoice](ctx, c, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if data == nil || *data == nil {
		return []entity.Invoice{}, nil
	}
	return *data, nil
}

// Get fetches one invoice
func (c *Client) Get(ctx context.Context, id string) (entity.Invoice, error) {
	data, err := call[entity.Invoice](ctx, c, opGet, http.MethodGet, c.idPath(id), nil)
	if err != nil {
		return entity.Invoice{}, err
	}
	if data == nil {
		return entity.Invoice{}, &ApplicationError{Op: opGet.name, Message: opGet.failure + ": empty response"}
	}
	return *data, nil
}

// Delete removes one invoice
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, c, opDelete, http.MethodDelete, c.idPath(id), nil)
	return err
}

// RequestEmailDispatch asks the store to email the invoice to its employee
func (c *Client) RequestEmailDispatch(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, c, opEmail, http.MethodPost, c.idPath(id)+"/send-email", nil)
	return err
}

// RequestCustomEmailDispatch asks the store to send a free-form email
func (c *Client) RequestCustomEmailDispatch(ctx context.Context, email port.CustomEmail) error {
	_, err := call[json.RawMessage](ctx, c, opCustomEmail, http.MethodPost, "/send-custom-email", email)
	return err
}

// RequestDocument downloads the store-rendered document of an invoice
func (c *Client) RequestDocument(ctx context.Context, id string) (port.Document, error) {
	resp, err := c.send(ctx, http.MethodGet, c.idPath(id)+"/download", nil)
	if err != nil {
		return port.Document{}, &TransportError{Op: opDocument.name, Message: transportFailure(opDocument, err.Error()), Err: err}
	}
	defer resp.Body.Close()

	raw, err := c.readBody(resp)
	if err != nil {
		return port.Document{}, &TransportError{Op: opDocument.name, StatusCode: resp.StatusCode, Message: transportFailure(opDocument, err.Error()), Err: err}
	}

	if !isSuccess(resp.StatusCode) {
		return port.Document{}, statusError(opDocument, resp, raw)
	}

	filename := "Invoice_" + id + ".pdf"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}

	return port.Document{
		Filename:    filename,
		ContentType: resp.Header.Get("Content-Type"),
		Content:     raw,
	}, nil
}

// readBody reads the whole body, failing instead of returning a cut-off one
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > c.maxBody {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxBody)
	}
	return raw, nil
}

func (c *Client) idPath(id string) string {
	return "/" + url.PathEscape(id)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Store request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, err
	}

	c.logger.Debug("Store request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	return resp, nil
}

// call performs one request and unwraps the envelope
func call[T any](ctx context.Context, c *Client, op operation, method, path string, body any) (*T, error) {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, &TransportError{Op: op.name, Message: transportFailure(op, err.Error()), Err: err}
	}
	defer resp.Body.Close()

	raw, err := c.readBody(resp)
	if err != nil {
		return nil, &TransportError{Op: op.name, StatusCode: resp.StatusCode, Message: transportFailure(op, err.Error()), Err: err}
	}

	if !isSuccess(resp.StatusCode) {
		return nil, statusError(op, resp, raw)
	}

	var env Envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &TransportError{
			Op:         op.name,
			StatusCode: resp.StatusCode,
			Message:    transportFailure(op, "malformed response"),
			Err:        err,
		}
	}

	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = op.failure
		}
		c.logger.Info("Store rejected request",
			zap.String("op", op.name),
			zap.String("error", msg))
		return nil, &ApplicationError{Op: op.name, Message: msg}
	}

	return env.Data, nil
}

// statusError builds the TransportError of a non-2xx response, preferring the envelope error
func statusError(op operation, resp *http.Response, raw []byte) error {
	msg := transportFailure(op, resp.Status)
	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != "" {
		msg = env.Error
	}

	te := &TransportError{Op: op.name, StatusCode: resp.StatusCode, Message: msg}
	if resp.StatusCode == http.StatusNotFound {
		te.Err = entity.ErrNotFound
	}
	return te
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

var _ port.InvoiceStore = (*Client)(nil)
