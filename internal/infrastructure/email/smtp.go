package email

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/infusio/infusio/internal/shared/logger"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// SMTPTransport sends through an SMTP relay. The Message-ID is generated
// locally so replies can be threaded.
type SMTPTransport struct {
	config SMTPConfig
	dialer *gomail.Dialer
	logger logger.Interface
}

func NewSMTPTransport(config SMTPConfig, log logger.Interface) *SMTPTransport {
	return &SMTPTransport{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger: log,
	}
}

func (s *SMTPTransport) Send(ctx context.Context, msg *OutboundEmail) (string, error) {
	if err := validate(msg); err != nil {
		return "", err
	}

	messageID := newMessageID(s.config.FromAddress)
	m := s.buildMessage(msg, messageID)

	// gomail has no context support; abandon the wait when ctx ends
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("failed to send email: %w", ctx.Err())
	case err := <-errCh:
		if err != nil {
			return "", fmt.Errorf("failed to send email: %w", err)
		}
	}

	s.logger.Infow("email sent via smtp",
		"message_id", messageID,
		"subject", msg.Subject,
	)
	return messageID, nil
}

func (s *SMTPTransport) buildMessage(msg *OutboundEmail, messageID string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	if msg.InReplyTo != "" {
		m.SetHeader("In-Reply-To", msg.InReplyTo)
		m.SetHeader("References", msg.InReplyTo)
	}

	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	for _, att := range msg.Attachments {
		content := att.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {att.ContentType},
			}))
		}
		m.Attach(att.Filename, settings...)
	}

	return m
}
