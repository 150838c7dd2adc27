package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/invoice-manager/internal/application/service"
	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"github.com/garyjia/invoice-manager/internal/email"
	"github.com/garyjia/invoice-manager/internal/render"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	invoices service.InvoiceService
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(invoices service.InvoiceService, logger Logger) *Handlers {
	return &Handlers{invoices: invoices, logger: logger}
}

// Response is the envelope of every JSON response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CustomEmailRequest is the body of POST /api/invoices/send-custom-email
type CustomEmailRequest struct {
	To                    string `json:"to" binding:"required"`
	Subject               string `json:"subject" binding:"required"`
	Body                  string `json:"body"`
	SendInvoiceAttachment bool   `json:"sendInvoiceAttachment"`
	InvoiceID             string `json:"invoiceId"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "ok",
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	invoices, err := h.invoices.List(c.Request.Context())
	if err != nil {
		h.fail(c, "failed to fetch invoices", err)
		return
	}
	h.ok(c, http.StatusOK, "Invoices retrieved successfully", invoices)
}

// ListByEmployee handles GET /api/invoices/employee/:employeeId
func (h *Handlers) ListByEmployee(c *gin.Context) {
	invoices, err := h.invoices.ListByEmployee(c.Request.Context(), c.Param("employeeId"))
	if err != nil {
		h.fail(c, "failed to fetch invoices", err)
		return
	}
	h.ok(c, http.StatusOK, "Invoices retrieved successfully", invoices)
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	inv, err := h.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "failed to fetch invoice", err)
		return
	}
	h.ok(c, http.StatusOK, "Invoice retrieved successfully", inv)
}

// CreateInvoice handles POST /api/invoices
func (h *Handlers) CreateInvoice(c *gin.Context) {
	var inv entity.Invoice
	if err := c.ShouldBindJSON(&inv); err != nil {
		h.badRequest(c, err)
		return
	}

	created, err := h.invoices.Create(c.Request.Context(), inv)
	if err != nil {
		h.fail(c, "failed to create invoice", err)
		return
	}
	h.ok(c, http.StatusCreated, "Invoice created successfully", created)
}

// UpdateInvoice handles PUT /api/invoices/:id
func (h *Handlers) UpdateInvoice(c *gin.Context) {
	var inv entity.Invoice
	if err := c.ShouldBindJSON(&inv); err != nil {
		h.badRequest(c, err)
		return
	}

	updated, err := h.invoices.Update(c.Request.Context(), c.Param("id"), inv)
	if err != nil {
		h.fail(c, "failed to update invoice", err)
		return
	}
	h.ok(c, http.StatusOK, "Invoice updated successfully", updated)
}

// DeleteInvoice handles DELETE /api/invoices/:id
func (h *Handlers) DeleteInvoice(c *gin.Context) {
	if err := h.invoices.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "failed to delete invoice", err)
		return
	}
	h.ok(c, http.StatusOK, "Invoice deleted successfully", nil)
}

// DownloadInvoice handles GET /api/invoices/:id/download
func (h *Handlers) DownloadInvoice(c *gin.Context) {
	doc, err := h.invoices.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "failed to download PDF", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, "application/pdf", doc.Content)
}

// SendInvoiceEmail handles POST /api/invoices/:id/send-email
func (h *Handlers) SendInvoiceEmail(c *gin.Context) {
	if err := h.invoices.SendInvoiceEmail(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "failed to send email", err)
		return
	}
	h.ok(c, http.StatusOK, "Email sent successfully", nil)
}

// SendCustomEmail handles POST /api/invoices/send-custom-email
func (h *Handlers) SendCustomEmail(c *gin.Context) {
	var req CustomEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	err := h.invoices.SendCustomEmail(c.Request.Context(), service.CustomEmailRequest{
		To:                    req.To,
		Subject:               req.Subject,
		Body:                  req.Body,
		SendInvoiceAttachment: req.SendInvoiceAttachment,
		InvoiceID:             req.InvoiceID,
	})
	if err != nil {
		h.fail(c, "failed to send email", err)
		return
	}
	h.ok(c, http.StatusOK, "Email sent successfully", nil)
}

func (h *Handlers) ok(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	h.logger.Error("Invalid request body", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
}

// fail maps a service error to a status and envelope
func (h *Handlers) fail(c *gin.Context, failure string, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
		message = failure
	}
	c.JSON(status, Response{Success: false, Error: message})
}

func classify(err error) (int, string) {
	var verr *entity.ValidationError
	var rerr *render.RenderError
	switch {
	case errors.As(err, &rerr):
		return http.StatusUnprocessableEntity, rerr.Error()
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound, "Invoice not found"
	case errors.Is(err, entity.ErrDuplicateNumber):
		return http.StatusConflict, err.Error()
	case errors.Is(err, email.ErrInvalidRecipient), errors.Is(err, service.ErrAttachmentNeedsInvoice):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, ""
	}
}
