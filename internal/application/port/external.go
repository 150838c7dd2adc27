package port

import (
	"context"
	"time"

	"github.com/garyjia/invoice-manager/internal/domain/entity"
)

// Document is a binary artifact returned by the store
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// CustomEmail is the body of a custom email dispatch request. InvoiceID
// names the invoice whose PDF is attached when SendInvoiceAttachment is set.
type CustomEmail struct {
	To                    string `json:"to"`
	Subject               string `json:"subject"`
	Body                  string `json:"body"`
	SendInvoiceAttachment bool   `json:"sendInvoiceAttachment"`
	InvoiceID             string `json:"invoiceId,omitempty"`
}

// InvoiceStore defines the remote invoice store operations
type InvoiceStore interface {
	Create(ctx context.Context, inv entity.Invoice) (entity.Invoice, error)
	Update(ctx context.Context, id string, inv entity.Invoice) (entity.Invoice, error)
	List(ctx context.Context) ([]entity.Invoice, error)
	Get(ctx context.Context, id string) (entity.Invoice, error)
	Delete(ctx context.Context, id string) error
	ListByEmployee(ctx context.Context, employeeID string) ([]entity.Invoice, error)
	RequestDocument(ctx context.Context, id string) (Document, error)
	RequestEmailDispatch(ctx context.Context, id string) error
	RequestCustomEmailDispatch(ctx context.Context, email CustomEmail) error
}

// EmailNotice describes a dispatched email for chat notifications
type EmailNotice struct {
	InvoiceNumber string
	To            string
	Subject       string
	Attachment    string
	SentAt        time.Time
}

// Notifier announces dispatched emails on a chat channel
type Notifier interface {
	Name() string
	NotifyEmailSent(ctx context.Context, notice EmailNotice) error
}

// ArtifactArchive stores rendered artifacts off-host
type ArtifactArchive interface {
	Archive(ctx context.Context, key string, content []byte) (string, error)
}
