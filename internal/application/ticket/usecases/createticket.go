package usecases

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/infusio/infusio/internal/application/ticket/dto"
	"github.com/infusio/infusio/internal/domain/ticket"
	"github.com/infusio/infusio/internal/infrastructure/email"
	"github.com/infusio/infusio/internal/shared/errors"
	"github.com/infusio/infusio/internal/shared/logger"
)

const defaultMinDescriptionLength = 10

type CreateTicketCommand struct {
	UserID      string
	Description string
	Attachment  *UploadedFile
}

type CreateTicketUseCase struct {
	store        ticket.Store
	storage      AttachmentStorage
	signer       ReplyTokenSigner
	renderer     BodyRenderer
	notifier     *supportNotifier
	minDescRunes int
	logger       logger.Interface
}

func NewCreateTicketUseCase(
	store ticket.Store,
	storage AttachmentStorage,
	signer ReplyTokenSigner,
	renderer BodyRenderer,
	mailer SupportMailer,
	publisher TicketEventPublisher,
	mailCfg SupportMailConfig,
	minDescriptionLength int,
	logger logger.Interface,
) *CreateTicketUseCase {
	if minDescriptionLength <= 0 {
		minDescriptionLength = defaultMinDescriptionLength
	}
	return &CreateTicketUseCase{
		store:        store,
		storage:      storage,
		signer:       signer,
		renderer:     renderer,
		notifier:     &supportNotifier{mailer: mailer, publisher: publisher, mailCfg: mailCfg, logger: logger},
		minDescRunes: minDescriptionLength,
		logger:       logger,
	}
}

// Execute opens a ticket, emails the support team with a signed reply address
// and notifies the owner's streams. A failed email does not fail the request.
func (uc *CreateTicketUseCase) Execute(ctx context.Context, cmd CreateTicketCommand) (*dto.TicketDTO, error) {
	uc.logger.Infow("executing create ticket use case", "user_id", cmd.UserID)

	// length is checked on the trimmed text; the ticket keeps what the user typed
	if err := uc.validate(cmd.UserID, strings.TrimSpace(cmd.Description)); err != nil {
		uc.logger.Warnw("invalid create ticket command", "user_id", cmd.UserID, "error", err)
		return nil, err
	}

	var attachments []ticket.Attachment
	if cmd.Attachment != nil {
		stored, err := uc.storage.Save(ctx, cmd.Attachment.Filename, cmd.Attachment.Content)
		if err != nil {
			uc.logger.Errorw("failed to store attachment", "user_id", cmd.UserID, "error", err)
			return nil, errors.NewInternalError("failed to store attachment")
		}
		attachments = append(attachments, ticket.Attachment{Name: stored.Name, URL: stored.URL})
	}

	t, err := uc.store.Create(ctx, cmd.UserID, cmd.Description, attachments)
	if err != nil {
		uc.logger.Errorw("failed to create ticket", "user_id", cmd.UserID, "error", err)
		return nil, mapStoreError(err)
	}

	replyToken := uc.signer.MintReplyToken(t.ID(), cmd.UserID)
	if updated, err := uc.store.SetReplyToken(ctx, t.ID(), replyToken); err != nil {
		uc.logger.Errorw("failed to record reply token", "ticket_id", t.ID(), "error", err)
	} else {
		t = updated
	}

	msg := uc.composeEmail(t, replyToken, cmd.Attachment)
	if messageID := uc.notifier.sendToTeam(ctx, t.ID(), msg); messageID != "" {
		if updated, err := uc.store.SetThreadMessageID(ctx, t.ID(), messageID); err != nil {
			uc.logger.Errorw("failed to record thread message id", "ticket_id", t.ID(), "error", err)
		} else {
			t = updated
		}
	}

	uc.notifier.publishUpdate(ctx, t)

	uc.logger.Infow("ticket created successfully", "ticket_id", t.ID(), "user_id", cmd.UserID)

	return dto.ToTicketDTO(t), nil
}

func (uc *CreateTicketUseCase) validate(userID, description string) error {
	if userID == "" {
		return errors.NewValidationError("user ID is required")
	}
	// counted on the NFC form so a composed and a decomposed accent weigh the same
	if utf8.RuneCountInString(norm.NFC.String(description)) < uc.minDescRunes {
		return errors.NewValidationError(
			fmt.Sprintf("descricao deve ter pelo menos %d caracteres", uc.minDescRunes),
		)
	}
	return nil
}

func (uc *CreateTicketUseCase) composeEmail(t *ticket.Ticket, replyToken string, file *UploadedFile) *email.OutboundEmail {
	text := fmt.Sprintf(
		"Novo pedido de suporte\n\nTicket: %s\nUsuário: %s\n\n%s\n\nResponda a este email para falar com o usuário.\n",
		t.ID(), t.UserID(), t.Description(),
	)

	htmlBody, err := uc.renderer.ToHTMLSanitized(t.Description())
	if err != nil {
		uc.logger.Warnw("failed to render description as HTML", "ticket_id", t.ID(), "error", err)
		htmlBody = ""
	}
	if htmlBody != "" {
		htmlBody = fmt.Sprintf("<p><strong>Ticket:</strong> %s<br/><strong>Usuário:</strong> %s</p>%s",
			t.ID(), html.EscapeString(t.UserID()), htmlBody)
	}

	var files []UploadedFile
	if file != nil {
		files = append(files, *file)
	}

	return &email.OutboundEmail{
		ReplyTo:     uc.notifier.mailCfg.ReplyAddress(replyToken),
		Subject:     t.Subject(),
		Text:        text,
		HTML:        htmlBody,
		Attachments: toEmailAttachments(files),
	}
}
