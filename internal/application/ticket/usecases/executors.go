package usecases

import (
	"context"

	"github.com/infusio/infusio/internal/application/ticket/dto"
)

// Executor interfaces let the HTTP layer depend on behaviour rather than on
// the concrete use cases.

type CreateTicketExecutor interface {
	Execute(ctx context.Context, cmd CreateTicketCommand) (*dto.TicketDTO, error)
}

type ListTicketsExecutor interface {
	Execute(ctx context.Context, userID string) ([]*dto.TicketDTO, error)
}

type GetTicketExecutor interface {
	Execute(ctx context.Context, query GetTicketQuery) (*dto.TicketDTO, error)
}

type AddUserMessageExecutor interface {
	Execute(ctx context.Context, cmd AddUserMessageCommand) (*dto.TicketDTO, error)
}

type ResolveTicketExecutor interface {
	Execute(ctx context.Context, cmd ResolveTicketCommand) (*dto.TicketDTO, error)
}

type ProcessInboundEmailExecutor interface {
	Execute(ctx context.Context, msg *InboundEmail) (*ProcessInboundEmailResult, error)
}
