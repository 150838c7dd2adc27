package email

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/garyjia/invoice-manager/internal/application/port"
	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockNotifier struct {
	name    string
	notices []port.EmailNotice
	err     error
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) NotifyEmailSent(ctx context.Context, notice port.EmailNotice) error {
	m.notices = append(m.notices, notice)
	return m.err
}

func sampleInvoice() entity.Invoice {
	return entity.Invoice{
		InvoiceNumber: "INV#OF-1A",
		Date:          "2025-03-14",
		EmployeeName:  "Asha <Rao>",
		EmployeeEmail: "asha@example.com",
		Services:      []entity.LineItem{{ID: "s1", Description: "API design", Hours: 2, Rate: 500}, {ID: "s2", Hours: 1.5, Rate: 1000}},
		TaxRate:       10,
	}
}

func TestComposer_InvoiceMessage(t *testing.T) {
	c := NewComposer("billing@example.com", "Invoice Manager")

	msg, err := c.InvoiceMessage(sampleInvoice(), []byte("%PDF"))

	require.NoError(t, err)
	assert.Equal(t, `"Invoice Manager" <billing@example.com>`, msg.From)
	assert.Equal(t, "asha@example.com", msg.To)
	assert.Equal(t, "Your Invoice #INV#OF-1A", msg.Subject)
	assert.True(t, msg.HTML)
	assert.Contains(t, msg.Body, "2750.00")
	assert.Contains(t, msg.Body, "2025-03-14")
	assert.Contains(t, msg.Body, "Asha &lt;Rao&gt;", "employee name is escaped")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "Invoice_INV#OF-1A.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, []byte("%PDF"), msg.Attachments[0].Content)
}

func TestComposer_RejectsBadRecipient(t *testing.T) {
	c := NewComposer("billing@example.com", "")
	inv := sampleInvoice()
	inv.EmployeeEmail = "not an address"

	_, err := c.InvoiceMessage(inv, nil)
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	_, err = c.CustomMessage("", "Hi", "body", nil)
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	_, err = c.CustomMessage("a@b.io", "", "body", nil)
	assert.Error(t, err)
}

func TestComposer_CustomMessage(t *testing.T) {
	c := NewComposer("billing@example.com", "")

	msg, err := c.CustomMessage("Ben <ben@example.com>", "Reminder", "Please pay", &Attachment{Filename: "Invoice_1.pdf"})

	require.NoError(t, err)
	assert.Equal(t, "ben@example.com", msg.To)
	assert.False(t, msg.HTML)
	require.Len(t, msg.Attachments, 1)
}

func TestSender_Send(t *testing.T) {
	ok := &mockNotifier{name: "lark"}
	failing := &mockNotifier{name: "slack", err: errors.New("channel_not_found")}
	s := NewSender(zap.NewNop(), ok, failing)

	msg, err := NewComposer("billing@example.com", "").InvoiceMessage(sampleInvoice(), []byte("%PDF"))
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), msg), "notifier failure does not fail the send")

	require.Len(t, s.Outbox(), 1)
	require.Len(t, ok.notices, 1)
	assert.Equal(t, "INV#OF-1A", ok.notices[0].InvoiceNumber)
	assert.Equal(t, "Invoice_INV#OF-1A.pdf", ok.notices[0].Attachment)
	assert.Len(t, failing.notices, 1)
}

func TestSender_RequiresRecipient(t *testing.T) {
	s := NewSender(zap.NewNop())

	err := s.Send(context.Background(), Message{Subject: "x"})

	assert.ErrorIs(t, err, ErrInvalidRecipient)
	assert.Empty(t, s.Outbox())
}

func TestSender_OutboxKeepsMostRecent(t *testing.T) {
	s := NewSender(zap.NewNop())
	attachment := make([]byte, 64<<10)

	for i := 0; i < OutboxSize+10; i++ {
		msg := Message{
			To:          "asha@example.com",
			Subject:     fmt.Sprintf("message %d", i),
			Attachments: []Attachment{{Filename: "Invoice_1.pdf", Content: attachment}},
		}
		require.NoError(t, s.Send(context.Background(), msg))
	}

	outbox := s.Outbox()
	require.Len(t, outbox, OutboxSize)
	assert.Equal(t, "message 10", outbox[0].Subject)
	assert.Equal(t, fmt.Sprintf("message %d", OutboxSize+9), outbox[OutboxSize-1].Subject)
	assert.LessOrEqual(t, cap(s.outbox), 2*OutboxSize)
}
