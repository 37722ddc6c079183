package usecases

import (
	"context"

	"github.com/infusio/infusio/internal/application/ticket/dto"
	"github.com/infusio/infusio/internal/domain/ticket"
	"github.com/infusio/infusio/internal/shared/logger"
)

type ListTicketsUseCase struct {
	store  ticket.Store
	logger logger.Interface
}

func NewListTicketsUseCase(store ticket.Store, logger logger.Interface) *ListTicketsUseCase {
	return &ListTicketsUseCase{store: store, logger: logger}
}

// Execute returns the user's tickets, most recently updated first.
func (uc *ListTicketsUseCase) Execute(ctx context.Context, userID string) ([]*dto.TicketDTO, error) {
	tickets, err := uc.store.ListByUser(ctx, userID)
	if err != nil {
		uc.logger.Errorw("failed to list tickets", "user_id", userID, "error", err)
		return nil, mapStoreError(err)
	}

	return dto.ToTicketDTOList(tickets), nil
}
