// Package email sends support notifications through SMTP or the SendGrid API.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/infusio/infusio/internal/shared/config"
	"github.com/infusio/infusio/internal/shared/logger"
)

// ErrEmailServiceNotConfigured is returned when no provider is configured.
var ErrEmailServiceNotConfigured = errors.New("email service not configured")

// Attachment is a file sent along with an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// OutboundEmail is a message to the support team.
type OutboundEmail struct {
	To          []string
	ReplyTo     string
	Subject     string
	Text        string
	HTML        string
	InReplyTo   string // Message-ID of the thread root, empty for a new thread
	Attachments []Attachment
}

// Transport delivers outbound messages and returns the provider message id.
type Transport interface {
	Send(ctx context.Context, msg *OutboundEmail) (messageID string, err error)
}

// NewTransport builds the transport selected by cfg.Provider.
func NewTransport(cfg *config.EmailConfig, log logger.Interface) Transport {
	switch cfg.Provider {
	case "smtp":
		return NewSMTPTransport(SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPassword,
			FromAddress: cfg.FromAddress,
			FromName:    cfg.FromName,
		}, log)
	case "sendgrid":
		return NewSendGridTransport(SendGridConfig{
			APIKey:      cfg.SendGridAPIKey,
			FromAddress: cfg.FromAddress,
			FromName:    cfg.FromName,
		}, log)
	default:
		return NewUnconfiguredTransport(log)
	}
}

// UnconfiguredTransport rejects every message. It keeps ticket creation
// working in environments without an email provider.
type UnconfiguredTransport struct {
	logger logger.Interface
}

func NewUnconfiguredTransport(log logger.Interface) *UnconfiguredTransport {
	return &UnconfiguredTransport{logger: log}
}

func (t *UnconfiguredTransport) Send(ctx context.Context, msg *OutboundEmail) (string, error) {
	t.logger.Warnw("email service not configured, message not sent",
		"subject", msg.Subject,
		"to", strings.Join(msg.To, ","),
	)
	return "", ErrEmailServiceNotConfigured
}

func validate(msg *OutboundEmail) error {
	if msg == nil {
		return fmt.Errorf("email message cannot be nil")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("email message has no recipients")
	}
	return nil
}

// newMessageID builds an RFC 5322 Message-ID in the sender's domain.
func newMessageID(fromAddress string) string {
	domain := "localhost"
	if at := strings.LastIndex(fromAddress, "@"); at >= 0 && at < len(fromAddress)-1 {
		domain = fromAddress[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
