package usecases

import (
	"context"

	"github.com/infusio/infusio/internal/infrastructure/email"
	"github.com/infusio/infusio/internal/infrastructure/storage"
	"github.com/infusio/infusio/internal/infrastructure/token"
)

// TicketEventPublisher pushes an event to every open stream of a user.
type TicketEventPublisher interface {
	Publish(ctx context.Context, userID, event string, payload any) error
}

// AttachmentStorage persists uploaded files and returns their public reference.
type AttachmentStorage interface {
	Save(ctx context.Context, name string, content []byte) (storage.StoredFile, error)
}

// SupportMailer delivers messages to the support team.
type SupportMailer interface {
	Send(ctx context.Context, msg *email.OutboundEmail) (messageID string, err error)
}

// ReplyTokenSigner mints and opens the tokens embedded in reply addresses.
type ReplyTokenSigner interface {
	MintReplyToken(ticketID, userID string) string
	OpenReplyToken(signed string) (token.TicketClaims, bool)
}

// BodyRenderer turns user text into email HTML and inbound HTML into text.
type BodyRenderer interface {
	ToHTMLSanitized(markdown string) (string, error)
	StripTags(htmlContent string) string
}

// UploadedFile is a file received over HTTP, held in memory.
type UploadedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Name implements InboundAttachment.
func (f *UploadedFile) Name() string { return f.Filename }

// Load implements InboundAttachment.
func (f *UploadedFile) Load() (*UploadedFile, error) { return f, nil }

// InboundAttachment is a file part of an inbound email. Load is called only
// after the email has been matched to a ticket.
type InboundAttachment interface {
	Name() string
	Load() (*UploadedFile, error)
}
