// Package slack announces invoice email dispatches on a Slack channel.
package slack

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/invoice-manager/internal/application/port"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Config holds Slack notifier configuration
type Config struct {
	BotToken string
	Channel  string
	APIURL   string // optional, for tests and proxies; must end in "/"
}

// Notifier implements port.Notifier with chat.postMessage
type Notifier struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewNotifier creates a Slack notifier
func NewNotifier(cfg Config, logger *zap.Logger) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("slack bot token is required")
	}
	if cfg.Channel == "" {
		return nil, errors.New("slack channel is required")
	}

	var opts []slack.Option
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}

	return &Notifier{
		client:  slack.New(cfg.BotToken, opts...),
		channel: cfg.Channel,
		logger:  logger,
	}, nil
}

// Name identifies the notifier in logs
func (n *Notifier) Name() string {
	return "slack"
}

// NotifyEmailSent posts a short summary of the dispatched email
func (n *Notifier) NotifyEmailSent(ctx context.Context, notice port.EmailNotice) error {
	header := fmt.Sprintf("Email sent to %s", notice.To)
	if notice.InvoiceNumber != "" {
		header = fmt.Sprintf("Invoice *%s* emailed to %s", notice.InvoiceNumber, notice.To)
	}

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, "*Subject*\n"+notice.Subject, false, false),
	}
	if notice.Attachment != "" {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType, "*Attachment*\n"+notice.Attachment, false, false))
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, header, false, false), fields, nil),
	}

	_, ts, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(header, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		n.logger.Error("Failed to post Slack message",
			zap.String("channel", n.channel),
			zap.Error(err))
		return fmt.Errorf("slack notify: %w", err)
	}

	n.logger.Info("Email dispatch announced on Slack",
		zap.String("channel", n.channel),
		zap.String("ts", ts),
		zap.String("invoice_number", notice.InvoiceNumber))
	return nil
}

var _ port.Notifier = (*Notifier)(nil)
