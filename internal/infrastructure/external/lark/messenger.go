package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/invoice-manager/internal/application/port"
	"go.uber.org/zap"
)

// Messenger posts email dispatch notices to a Lark user or chat.
// Implements port.Notifier.
type Messenger struct {
	client        *Client
	receiveIDType string
	receiveID     string
	logger        *zap.Logger
}

// NewMessenger creates a notifier bound to one recipient
func NewMessenger(client *Client, cfg Config, logger *zap.Logger) (*Messenger, error) {
	if cfg.ReceiveID == "" {
		return nil, errors.New("lark receive id is required")
	}
	idType := cfg.ReceiveIDType
	if idType == "" {
		idType = ReceiveChatID
	}
	switch idType {
	case ReceiveOpenID, ReceiveChatID, ReceiveEmail:
	default:
		return nil, fmt.Errorf("unsupported lark receive id type: %s", idType)
	}

	return &Messenger{
		client:        client,
		receiveIDType: idType,
		receiveID:     cfg.ReceiveID,
		logger:        logger,
	}, nil
}

// Name identifies the notifier in logs
func (m *Messenger) Name() string {
	return "lark"
}

// NotifyEmailSent sends a text message describing the dispatched email
func (m *Messenger) NotifyEmailSent(ctx context.Context, notice port.EmailNotice) error {
	content, err := textContent(FormatNotice(notice))
	if err != nil {
		return err
	}

	if _, err := m.client.SendMessage(ctx, m.receiveIDType, m.receiveID, "text", content); err != nil {
		return fmt.Errorf("lark notify: %w", err)
	}

	m.logger.Info("Email dispatch announced on Lark",
		zap.String("invoice_number", notice.InvoiceNumber),
		zap.String("to", notice.To))
	return nil
}

// FormatNotice renders the plain-text body of a dispatch notice
func FormatNotice(notice port.EmailNotice) string {
	var b strings.Builder
	if notice.InvoiceNumber != "" {
		fmt.Fprintf(&b, "Invoice %s emailed to %s", notice.InvoiceNumber, notice.To)
	} else {
		fmt.Fprintf(&b, "Email sent to %s", notice.To)
	}
	fmt.Fprintf(&b, "\nSubject: %s", notice.Subject)
	if notice.Attachment != "" {
		fmt.Fprintf(&b, "\nAttachment: %s", notice.Attachment)
	}
	if !notice.SentAt.IsZero() {
		fmt.Fprintf(&b, "\nSent: %s", notice.SentAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	return b.String()
}

func textContent(text string) (string, error) {
	raw, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message content: %w", err)
	}
	return string(raw), nil
}

var _ port.Notifier = (*Messenger)(nil)
