package http

import (
	"github.com/infusio/infusio/internal/application/ticket/usecases"
)

// allUseCases holds the support use cases.
type allUseCases struct {
	createTicketUC   *usecases.CreateTicketUseCase
	listTicketsUC    *usecases.ListTicketsUseCase
	getTicketUC      *usecases.GetTicketUseCase
	addMessageUC     *usecases.AddUserMessageUseCase
	resolveTicketUC  *usecases.ResolveTicketUseCase
	processInboundUC *usecases.ProcessInboundEmailUseCase
}

func (c *Container) initUseCases() {
	support := c.cfg.Support
	mailCfg := usecases.SupportMailConfig{
		TeamAddresses:    support.TeamAddresses,
		InboundLocalPart: support.InboundLocalPart,
		InboundDomain:    support.InboundDomain,
		SendTimeout:      c.cfg.Email.SendTimeout(),
	}
	log := c.log.Named("support")

	c.ucs = &allUseCases{
		createTicketUC: usecases.NewCreateTicketUseCase(
			c.store, c.storage, c.signer, c.renderer, c.mailer, c.publisher,
			mailCfg, support.MinDescriptionLength, log,
		),
		listTicketsUC: usecases.NewListTicketsUseCase(c.store, log),
		getTicketUC:   usecases.NewGetTicketUseCase(c.store, log),
		addMessageUC: usecases.NewAddUserMessageUseCase(
			c.store, c.signer, c.mailer, c.publisher, mailCfg, log,
		),
		resolveTicketUC: usecases.NewResolveTicketUseCase(c.store, c.publisher, log),
		processInboundUC: usecases.NewProcessInboundEmailUseCase(
			c.store, c.storage, c.signer, c.renderer, c.publisher,
			support.InboundLocalPart, c.log.Named("webhook"),
		),
	}
}
