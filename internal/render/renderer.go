// Package render turns a finalized invoice into a paginated PDF document.
package render

import (
	"fmt"
	"time"

	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"go.uber.org/zap"
)

// DocumentStamp is the creation date written into every document so that
// identical invoices produce identical bytes
var DocumentStamp = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Artifact is a rendered document
type Artifact struct {
	Filename string
	Content  []byte
	Pages    int
}

// RenderError reports an invoice that could not be rendered
type RenderError struct {
	InvoiceNumber string
	Reason        string
	Err           error
}

func (e *RenderError) Error() string {
	if e.InvoiceNumber == "" {
		return fmt.Sprintf("render invoice: %s", e.Reason)
	}
	return fmt.Sprintf("render invoice %s: %s", e.InvoiceNumber, e.Reason)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Option configures a Renderer
type Option func(*Renderer)

// WithCompression toggles content stream compression (on by default)
func WithCompression(compress bool) Option {
	return func(r *Renderer) {
		r.writer.compress = compress
	}
}

// Renderer renders invoices. It holds no per-invoice state and is safe for
// concurrent use.
type Renderer struct {
	writer pdfWriter
	logger *zap.Logger
}

// NewRenderer creates a renderer
func NewRenderer(logger *zap.Logger, opts ...Option) *Renderer {
	r := &Renderer{
		writer: pdfWriter{stamp: DocumentStamp, compress: true},
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Filename returns the local artifact name of an invoice
func Filename(invoiceNumber string) string {
	return fmt.Sprintf("invoice-%s.pdf", invoiceNumber)
}

// Render lays out and draws inv. It never panics; any failure, including a
// panic inside the drawing backend, is returned as *RenderError.
func (r *Renderer) Render(inv entity.Invoice) (artifact *Artifact, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Renderer panicked",
				zap.String("invoice_number", inv.InvoiceNumber),
				zap.Any("panic", p))
			artifact = nil
			err = &RenderError{InvoiceNumber: inv.InvoiceNumber, Reason: fmt.Sprintf("unexpected failure: %v", p)}
		}
	}()

	doc, err := Layout(inv, bodyTextWidth())
	if err != nil {
		r.logger.Warn("Invoice cannot be rendered",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err))
		return nil, &RenderError{InvoiceNumber: inv.InvoiceNumber, Reason: err.Error(), Err: err}
	}

	content, err := r.writer.write(doc)
	if err != nil {
		return nil, &RenderError{InvoiceNumber: inv.InvoiceNumber, Reason: "pdf output: " + err.Error(), Err: err}
	}

	r.logger.Debug("Invoice rendered",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Int("pages", doc.PageCount()),
		zap.Int("bytes", len(content)))

	return &Artifact{
		Filename: Filename(inv.InvoiceNumber),
		Content:  content,
		Pages:    doc.PageCount(),
	}, nil
}
