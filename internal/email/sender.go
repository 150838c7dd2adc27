package email

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/invoice-manager/internal/application/port"
	"go.uber.org/zap"
)

// OutboxSize is the number of most recent messages a Sender keeps
const OutboxSize = 32

// Sender simulates delivery: messages are logged, the last OutboxSize are
// kept in an outbox and each is announced on the configured notifiers
type Sender struct {
	mu        sync.Mutex
	outbox    []Message
	notifiers []port.Notifier
	now       func() time.Time
	logger    *zap.Logger
}

// NewSender creates a simulated sender
func NewSender(logger *zap.Logger, notifiers ...port.Notifier) *Sender {
	return &Sender{
		notifiers: notifiers,
		now:       time.Now,
		logger:    logger,
	}
}

// Send delivers msg. Notifier failures are logged and do not fail the send.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrInvalidRecipient
	}

	s.mu.Lock()
	if len(s.outbox) == OutboxSize {
		copy(s.outbox, s.outbox[1:])
		s.outbox = s.outbox[:OutboxSize-1]
	}
	s.outbox = append(s.outbox, msg)
	s.mu.Unlock()

	attachment := ""
	if len(msg.Attachments) > 0 {
		attachment = msg.Attachments[0].Filename
	}

	s.logger.Info("Email sent (simulated)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("attachment", attachment))

	notice := port.EmailNotice{
		InvoiceNumber: msg.InvoiceNumber,
		To:            msg.To,
		Subject:       msg.Subject,
		Attachment:    attachment,
		SentAt:        s.now(),
	}
	for _, n := range s.notifiers {
		if err := n.NotifyEmailSent(ctx, notice); err != nil {
			s.logger.Warn("Failed to notify email dispatch",
				zap.String("notifier", n.Name()),
				zap.Error(err))
		}
	}
	return nil
}

// Outbox returns the most recent messages, oldest first
func (s *Sender) Outbox() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.outbox...)
}
