package http

import (
	"context"
	"time"

	"github.com/infusio/infusio/internal/interfaces/http/handlers"
	ticketHandlers "github.com/infusio/infusio/internal/interfaces/http/handlers/ticket"
	webhookHandlers "github.com/infusio/infusio/internal/interfaces/http/handlers/webhook"
	"github.com/infusio/infusio/internal/interfaces/http/middleware"
)

// allHandlers holds all HTTP handler instances used by the application.
type allHandlers struct {
	healthHandler       *handlers.HealthHandler
	ticketHandler       *ticketHandlers.TicketHandler
	emailInboundHandler *webhookHandlers.EmailInboundHandler
}

func (c *Container) initHandlers() {
	c.hdlrs = &allHandlers{
		healthHandler: handlers.NewHealthHandler(c.dependencyChecks(), c.log),
		ticketHandler: ticketHandlers.NewTicketHandler(
			c.ucs.createTicketUC,
			c.ucs.listTicketsUC,
			c.ucs.getTicketUC,
			c.ucs.addMessageUC,
			c.ucs.resolveTicketUC,
			c.hub,
			c.log.Named("support"),
		),
		emailInboundHandler: webhookHandlers.NewEmailInboundHandler(c.ucs.processInboundUC, c.log.Named("webhook")),
	}

	c.identityMiddleware = middleware.NewUserIdentityMiddleware(
		c.cfg.Support.UserHeader, c.cfg.Support.DefaultUserID, c.log,
	)
	c.webhookSecretMiddleware = middleware.NewWebhookSecretMiddleware(c.cfg.Webhook.SharedSecret, c.log)
	c.webhookRateLimiter = middleware.NewRateLimiter(c.redis, "webhook", c.cfg.Webhook.RateLimitPerMinute, time.Minute)
}

func (c *Container) dependencyChecks() map[string]handlers.DependencyCheck {
	checks := make(map[string]handlers.DependencyCheck)
	if c.db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := c.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if c.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return c.redis.Ping(ctx).Err()
		}
	}
	return checks
}
