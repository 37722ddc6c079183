package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/infusio/infusio/internal/application/ticket/dto"
	"github.com/infusio/infusio/internal/domain/ticket"
	vo "github.com/infusio/infusio/internal/domain/ticket/valueobjects"
	"github.com/infusio/infusio/internal/infrastructure/email"
	"github.com/infusio/infusio/internal/shared/errors"
	"github.com/infusio/infusio/internal/shared/logger"
)

type AddUserMessageCommand struct {
	TicketID string
	UserID   string
	Text     string
}

type AddUserMessageUseCase struct {
	store    ticket.Store
	signer   ReplyTokenSigner
	notifier *supportNotifier
	logger   logger.Interface
}

func NewAddUserMessageUseCase(
	store ticket.Store,
	signer ReplyTokenSigner,
	mailer SupportMailer,
	publisher TicketEventPublisher,
	mailCfg SupportMailConfig,
	logger logger.Interface,
) *AddUserMessageUseCase {
	return &AddUserMessageUseCase{
		store:    store,
		signer:   signer,
		notifier: &supportNotifier{mailer: mailer, publisher: publisher, mailCfg: mailCfg, logger: logger},
		logger:   logger,
	}
}

// Execute appends a follow-up from the ticket owner and forwards it to the
// team in the ticket's email thread.
func (uc *AddUserMessageUseCase) Execute(ctx context.Context, cmd AddUserMessageCommand) (*dto.TicketDTO, error) {
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return nil, errors.NewValidationError("texto is required")
	}

	current, err := loadOwned(ctx, uc.store, cmd.TicketID, cmd.UserID)
	if err != nil {
		return nil, err
	}

	t, err := uc.store.AppendMessage(ctx, current.ID(), vo.AuthorUser, text, nil)
	if err != nil {
		uc.logger.Errorw("failed to append user message", "ticket_id", cmd.TicketID, "error", err)
		return nil, mapStoreError(err)
	}

	replyToken := t.ReplyToken()
	if replyToken == "" {
		replyToken = uc.signer.MintReplyToken(t.ID(), t.UserID())
	}

	uc.notifier.sendToTeam(ctx, t.ID(), &email.OutboundEmail{
		ReplyTo:   uc.notifier.mailCfg.ReplyAddress(replyToken),
		Subject:   "Re: " + t.Subject(),
		Text:      fmt.Sprintf("Nova mensagem do usuário %s no ticket %s:\n\n%s\n", t.UserID(), t.ID(), text),
		InReplyTo: t.ThreadMessageID(),
	})

	uc.notifier.publishUpdate(ctx, t)

	uc.logger.Infow("user message added", "ticket_id", t.ID(), "user_id", cmd.UserID)

	return dto.ToTicketDTO(t), nil
}
