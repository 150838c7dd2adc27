// Package email composes invoice emails and simulates their delivery.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/mail"

	"github.com/garyjia/invoice-manager/internal/domain/entity"
)

// ErrInvalidRecipient is returned for a missing or malformed recipient address
var ErrInvalidRecipient = errors.New("invalid recipient address")

// Attachment is a file attached to a message
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a composed email
type Message struct {
	InvoiceNumber string

	From        string
	To          string
	Subject     string
	Body        string
	HTML        bool
	Attachments []Attachment
}

var invoiceBody = template.Must(template.New("invoice").Parse(`<html><body>
<h2>Invoice Details</h2>
<p>Dear {{.Name}},</p>
<p>Please find your invoice details below:</p>
<table style="border-collapse: collapse; width: 100%;">
<tr><td style="border: 1px solid #ddd; padding: 8px;"><strong>Invoice #</strong></td><td style="border: 1px solid #ddd; padding: 8px;">{{.Number}}</td></tr>
<tr><td style="border: 1px solid #ddd; padding: 8px;"><strong>Date</strong></td><td style="border: 1px solid #ddd; padding: 8px;">{{.Date}}</td></tr>
<tr><td style="border: 1px solid #ddd; padding: 8px;"><strong>Grand Total</strong></td><td style="border: 1px solid #ddd; padding: 8px;">{{.GrandTotal}}</td></tr>
</table>
<p>A detailed invoice PDF is attached to this email.</p>
<p>Thank you!</p>
</body></html>
`))

// Composer builds outgoing messages
type Composer struct {
	from string
}

// NewComposer creates a composer sending as "fromName <from>"
func NewComposer(from, fromName string) *Composer {
	addr := mail.Address{Name: fromName, Address: from}
	return &Composer{from: addr.String()}
}

// InvoiceMessage composes the email of an invoice with its PDF attached
func (c *Composer) InvoiceMessage(inv entity.Invoice, pdf []byte) (Message, error) {
	to, err := recipient(inv.EmployeeEmail)
	if err != nil {
		return Message{}, err
	}

	var body bytes.Buffer
	err = invoiceBody.Execute(&body, struct {
		Name, Number, Date, GrandTotal string
	}{
		Name:       inv.EmployeeName,
		Number:     inv.InvoiceNumber,
		Date:       inv.Date,
		GrandTotal: entity.FormatAmount(inv.Totals().GrandTotal),
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to build email body: %w", err)
	}

	return Message{
		InvoiceNumber: inv.InvoiceNumber,
		From:          c.from,
		To:            to,
		Subject:       "Your Invoice #" + inv.InvoiceNumber,
		Body:          body.String(),
		HTML:          true,
		Attachments: []Attachment{{
			Filename:    AttachmentName(inv.InvoiceNumber),
			ContentType: "application/pdf",
			Content:     pdf,
		}},
	}, nil
}

// CustomMessage composes a plain text email, optionally with an attachment
func (c *Composer) CustomMessage(to, subject, body string, attachment *Attachment) (Message, error) {
	addr, err := recipient(to)
	if err != nil {
		return Message{}, err
	}
	if subject == "" {
		return Message{}, errors.New("subject is required")
	}

	msg := Message{From: c.from, To: addr, Subject: subject, Body: body}
	if attachment != nil {
		msg.Attachments = []Attachment{*attachment}
	}
	return msg, nil
}

// AttachmentName returns the attachment filename of an invoice PDF
func AttachmentName(invoiceNumber string) string {
	return "Invoice_" + invoiceNumber + ".pdf"
}

func recipient(to string) (string, error) {
	if to == "" {
		return "", ErrInvalidRecipient
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidRecipient, to)
	}
	return addr.Address, nil
}
