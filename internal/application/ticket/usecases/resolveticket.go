package usecases

import (
	"context"

	"github.com/infusio/infusio/internal/application/ticket/dto"
	"github.com/infusio/infusio/internal/domain/ticket"
	"github.com/infusio/infusio/internal/shared/logger"
)

type ResolveTicketCommand struct {
	TicketID string
	UserID   string
}

type ResolveTicketUseCase struct {
	store    ticket.Store
	notifier *supportNotifier
	logger   logger.Interface
}

func NewResolveTicketUseCase(store ticket.Store, publisher TicketEventPublisher, logger logger.Interface) *ResolveTicketUseCase {
	return &ResolveTicketUseCase{
		store:    store,
		notifier: &supportNotifier{publisher: publisher, logger: logger},
		logger:   logger,
	}
}

// Execute marks the caller's ticket resolvido. Resolving twice is allowed.
func (uc *ResolveTicketUseCase) Execute(ctx context.Context, cmd ResolveTicketCommand) (*dto.TicketDTO, error) {
	current, err := loadOwned(ctx, uc.store, cmd.TicketID, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if current.Status().IsResolved() {
		uc.logger.Debugw("ticket already resolved", "ticket_id", cmd.TicketID)
	}

	t, err := uc.store.Resolve(ctx, cmd.TicketID)
	if err != nil {
		uc.logger.Errorw("failed to resolve ticket", "ticket_id", cmd.TicketID, "error", err)
		return nil, mapStoreError(err)
	}

	uc.notifier.publishUpdate(ctx, t)

	uc.logger.Infow("ticket resolved", "ticket_id", t.ID(), "user_id", cmd.UserID)

	return dto.ToTicketDTO(t), nil
}
