package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/infusio/infusio/internal/shared/logger"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

type SendGridConfig struct {
	APIKey      string
	FromAddress string
	FromName    string
	Host        string // API base URL, defaults to the public endpoint
}

// SendGridTransport sends through the SendGrid v3 mail API.
type SendGridTransport struct {
	config SendGridConfig
	logger logger.Interface
}

func NewSendGridTransport(config SendGridConfig, log logger.Interface) *SendGridTransport {
	if config.Host == "" {
		config.Host = sendGridHost
	}
	return &SendGridTransport{config: config, logger: log}
}

func (s *SendGridTransport) Send(ctx context.Context, msg *OutboundEmail) (string, error) {
	if err := validate(msg); err != nil {
		return "", err
	}

	messageID := newMessageID(s.config.FromAddress)

	request := sendgrid.GetRequest(s.config.APIKey, sendGridEndpoint, s.config.Host)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(s.buildMessage(msg, messageID))

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("failed to send email: sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}

	s.logger.Infow("email sent via sendgrid",
		"message_id", messageID,
		"sendgrid_id", firstHeader(resp.Headers, "X-Message-Id"),
		"subject", msg.Subject,
	)
	return messageID, nil
}

func (s *SendGridTransport) buildMessage(msg *OutboundEmail, messageID string) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.config.FromName, s.config.FromAddress))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(mail.NewEmail("", to))
	}
	m.AddPersonalizations(p)

	if msg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}

	m.SetHeader("Message-ID", messageID)
	if msg.InReplyTo != "" {
		m.SetHeader("In-Reply-To", msg.InReplyTo)
		m.SetHeader("References", msg.InReplyTo)
	}

	m.AddContent(mail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}

	for _, att := range msg.Attachments {
		a := mail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(att.Content))
		a.SetFilename(att.Filename)
		a.SetDisposition("attachment")
		if att.ContentType != "" {
			a.SetType(att.ContentType)
		}
		m.AddAttachment(a)
	}

	return m
}

func firstHeader(headers map[string][]string, key string) string {
	if values := http.Header(headers).Values(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
