package usecases

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/infusio/infusio/internal/application/ticket/dto"
	"github.com/infusio/infusio/internal/domain/ticket"
	"github.com/infusio/infusio/internal/infrastructure/email"
	"github.com/infusio/infusio/internal/shared/errors"
	"github.com/infusio/infusio/internal/shared/logger"
)

// SupportMailConfig describes where support mail goes and how replies find
// their way back.
type SupportMailConfig struct {
	TeamAddresses    []string
	InboundLocalPart string
	InboundDomain    string
	SendTimeout      time.Duration
}

// ReplyAddress returns the address whose local part carries the reply token.
func (c SupportMailConfig) ReplyAddress(replyToken string) string {
	return fmt.Sprintf("%s+tck_%s@%s", c.InboundLocalPart, replyToken, c.InboundDomain)
}

// supportNotifier holds the collaborators shared by use cases that tell the
// team and the ticket owner about changes.
type supportNotifier struct {
	mailer    SupportMailer
	publisher TicketEventPublisher
	mailCfg   SupportMailConfig
	logger    logger.Interface
}

// sendToTeam delivers msg and returns the provider message id. Failures are
// logged and reported as an empty id.
func (n *supportNotifier) sendToTeam(ctx context.Context, ticketID string, msg *email.OutboundEmail) string {
	if len(n.mailCfg.TeamAddresses) == 0 {
		n.logger.Warnw("no support team address configured, email skipped", "ticket_id", ticketID)
		return ""
	}
	msg.To = n.mailCfg.TeamAddresses

	if n.mailCfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.mailCfg.SendTimeout)
		defer cancel()
	}

	messageID, err := n.mailer.Send(ctx, msg)
	if err != nil {
		n.logger.Warnw("failed to email support team",
			"ticket_id", ticketID,
			"error", err,
		)
		return ""
	}
	return messageID
}

// publishUpdate pushes the ticket to its owner's streams. Delivery is best
// effort, so failures are only logged.
func (n *supportNotifier) publishUpdate(ctx context.Context, t *ticket.Ticket) {
	if err := n.publisher.Publish(ctx, t.UserID(), ticket.EventTicketUpdated, dto.ToTicketDTO(t)); err != nil {
		n.logger.Warnw("failed to publish ticket update",
			"ticket_id", t.ID(),
			"user_id", t.UserID(),
			"error", err,
		)
	}
}

// loadOwned returns the ticket when userID owns it.
func loadOwned(ctx context.Context, store ticket.Store, ticketID, userID string) (*ticket.Ticket, error) {
	t, err := store.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if !t.IsOwnedBy(userID) {
		return nil, errors.NewForbiddenError("ticket belongs to another user")
	}
	return t, nil
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, ticket.ErrTicketNotFound) {
		return errors.NewNotFoundError("ticket not found")
	}
	return errors.NewInternalError("ticket store failure")
}

func toEmailAttachments(files []UploadedFile) []email.Attachment {
	if len(files) == 0 {
		return nil
	}
	out := make([]email.Attachment, len(files))
	for i, f := range files {
		out[i] = email.Attachment{Filename: f.Filename, ContentType: f.ContentType, Content: f.Content}
	}
	return out
}
