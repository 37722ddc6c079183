package http

import (
	"github.com/infusio/infusio/internal/interfaces/http/middleware"
	"github.com/infusio/infusio/internal/interfaces/http/routes"
)

// SetupRoutes configures all HTTP routes
func (c *Container) SetupRoutes() {
	c.engine.MaxMultipartMemory = 32 << 20

	c.engine.Use(middleware.Logger(c.log.Named("http")))
	c.engine.Use(middleware.Recovery(c.log))
	c.engine.Use(middleware.CORS(c.cfg.Server.AllowedOrigins, c.cfg.Support.UserHeader))

	c.engine.GET("/health", c.hdlrs.healthHandler.HealthCheck)
	c.engine.Static("/files", c.storage.Dir())

	routes.SetupTicketRoutes(c.engine, &routes.TicketRouteConfig{
		TicketHandler:      c.hdlrs.ticketHandler,
		IdentityMiddleware: c.identityMiddleware,
	})

	routes.SetupWebhookRoutes(c.engine, &routes.WebhookRouteConfig{
		EmailInboundHandler: c.hdlrs.emailInboundHandler,
		SecretMiddleware:    c.webhookSecretMiddleware,
		RateLimiter:         c.webhookRateLimiter,
	})
}
