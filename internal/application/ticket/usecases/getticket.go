package usecases

import (
	"context"

	"github.com/infusio/infusio/internal/application/ticket/dto"
	"github.com/infusio/infusio/internal/domain/ticket"
	"github.com/infusio/infusio/internal/shared/errors"
	"github.com/infusio/infusio/internal/shared/logger"
)

type GetTicketQuery struct {
	TicketID string
	UserID   string
}

type GetTicketUseCase struct {
	store  ticket.Store
	logger logger.Interface
}

func NewGetTicketUseCase(store ticket.Store, logger logger.Interface) *GetTicketUseCase {
	return &GetTicketUseCase{store: store, logger: logger}
}

// Execute returns the ticket when the caller owns it: not found for an
// unknown id, forbidden for another user's ticket.
func (uc *GetTicketUseCase) Execute(ctx context.Context, query GetTicketQuery) (*dto.TicketDTO, error) {
	t, err := loadOwned(ctx, uc.store, query.TicketID, query.UserID)
	if err != nil {
		if errors.IsForbiddenError(err) {
			uc.logger.Warnw("ticket access denied",
				"ticket_id", query.TicketID,
				"user_id", query.UserID,
			)
		}
		return nil, err
	}

	return dto.ToTicketDTO(t), nil
}
