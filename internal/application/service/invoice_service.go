package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/invoice-manager/internal/application/port"
	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"github.com/garyjia/invoice-manager/internal/email"
	"github.com/garyjia/invoice-manager/internal/render"
	"github.com/google/uuid"
)

// ErrAttachmentNeedsInvoice is returned when a custom email asks for an
// invoice attachment without naming the invoice
var ErrAttachmentNeedsInvoice = errors.New("sendInvoiceAttachment requires invoiceId")

// Logger defines the logging interface used by services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DocumentRenderer renders a finalized invoice to PDF
type DocumentRenderer interface {
	Render(inv entity.Invoice) (*render.Artifact, error)
}

// Mailer delivers composed messages
type Mailer interface {
	Send(ctx context.Context, msg email.Message) error
}

// Document is a downloadable invoice PDF
type Document struct {
	Filename string
	Content  []byte
}

// CustomEmailRequest is a free-form email, optionally carrying an invoice PDF
type CustomEmailRequest struct {
	To                    string
	Subject               string
	Body                  string
	SendInvoiceAttachment bool
	InvoiceID             string
}

// InvoiceService is the store side of the invoice API
type InvoiceService interface {
	Create(ctx context.Context, inv entity.Invoice) (*entity.Invoice, error)
	Update(ctx context.Context, id string, inv entity.Invoice) (*entity.Invoice, error)
	Get(ctx context.Context, id string) (*entity.Invoice, error)
	List(ctx context.Context) ([]*entity.Invoice, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*entity.Invoice, error)
	Delete(ctx context.Context, id string) error
	Download(ctx context.Context, id string) (*Document, error)
	SendInvoiceEmail(ctx context.Context, id string) error
	SendCustomEmail(ctx context.Context, req CustomEmailRequest) error
}

type invoiceServiceImpl struct {
	repo     port.InvoiceRepository
	renderer DocumentRenderer
	composer *email.Composer
	mailer   Mailer
	newID    func() string
	logger   Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	repo port.InvoiceRepository,
	renderer DocumentRenderer,
	composer *email.Composer,
	mailer Mailer,
	logger Logger,
) InvoiceService {
	return &invoiceServiceImpl{
		repo:     repo,
		renderer: renderer,
		composer: composer,
		mailer:   mailer,
		newID:    uuid.NewString,
		logger:   logger,
	}
}

// Create assigns a store ID and persists a valid invoice
func (s *invoiceServiceImpl) Create(ctx context.Context, inv entity.Invoice) (*entity.Invoice, error) {
	inv = inv.Clone()
	inv.ID = s.newID()

	if err := inv.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &inv); err != nil {
		s.logger.Error("Failed to create invoice", "invoice_number", inv.InvoiceNumber, "error", err)
		return nil, err
	}

	s.logger.Info("Invoice created", "id", inv.ID, "invoice_number", inv.InvoiceNumber)
	return &inv, nil
}

// Update overwrites the invoice stored under id
func (s *invoiceServiceImpl) Update(ctx context.Context, id string, inv entity.Invoice) (*entity.Invoice, error) {
	inv = inv.Clone()
	inv.ID = id

	if err := inv.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &inv); err != nil {
		s.logger.Error("Failed to update invoice", "id", id, "error", err)
		return nil, err
	}

	s.logger.Info("Invoice updated", "id", id, "invoice_number", inv.InvoiceNumber)
	return &inv, nil
}

func (s *invoiceServiceImpl) Get(ctx context.Context, id string) (*entity.Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *invoiceServiceImpl) List(ctx context.Context) ([]*entity.Invoice, error) {
	return s.repo.List(ctx)
}

func (s *invoiceServiceImpl) ListByEmployee(ctx context.Context, employeeID string) ([]*entity.Invoice, error) {
	return s.repo.ListByEmployee(ctx, employeeID)
}

func (s *invoiceServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Invoice deleted", "id", id)
	return nil
}

// Download renders the stored invoice
func (s *invoiceServiceImpl) Download(ctx context.Context, id string) (*Document, error) {
	inv, artifact, err := s.renderStored(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename: email.AttachmentName(inv.InvoiceNumber),
		Content:  artifact.Content,
	}, nil
}

// SendInvoiceEmail emails the invoice PDF to the employee
func (s *invoiceServiceImpl) SendInvoiceEmail(ctx context.Context, id string) error {
	inv, artifact, err := s.renderStored(ctx, id)
	if err != nil {
		return err
	}

	msg, err := s.composer.InvoiceMessage(*inv, artifact.Content)
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send invoice email", "id", id, "error", err)
		return fmt.Errorf("failed to send invoice email: %w", err)
	}
	return nil
}

// SendCustomEmail sends a free-form email
func (s *invoiceServiceImpl) SendCustomEmail(ctx context.Context, req CustomEmailRequest) error {
	var attachment *email.Attachment
	if req.SendInvoiceAttachment {
		if req.InvoiceID == "" {
			return ErrAttachmentNeedsInvoice
		}
		inv, artifact, err := s.renderStored(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		attachment = &email.Attachment{
			Filename:    email.AttachmentName(inv.InvoiceNumber),
			ContentType: "application/pdf",
			Content:     artifact.Content,
		}
	}

	msg, err := s.composer.CustomMessage(req.To, req.Subject, req.Body, attachment)
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send custom email", "to", req.To, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *invoiceServiceImpl) renderStored(ctx context.Context, id string) (*entity.Invoice, *render.Artifact, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	artifact, err := s.renderer.Render(*inv)
	if err != nil {
		s.logger.Error("Failed to render invoice", "id", id, "error", err)
		return nil, nil, err
	}
	return inv, artifact, nil
}
