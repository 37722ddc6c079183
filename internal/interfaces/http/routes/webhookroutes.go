package routes

import (
	"github.com/gin-gonic/gin"

	webhookhandlers "github.com/infusio/infusio/internal/interfaces/http/handlers/webhook"
	"github.com/infusio/infusio/internal/interfaces/http/middleware"
)

type WebhookRouteConfig struct {
	EmailInboundHandler *webhookhandlers.EmailInboundHandler
	SecretMiddleware    *middleware.WebhookSecretMiddleware
	RateLimiter         *middleware.RateLimiter
}

// SetupWebhookRoutes mounts the email relay endpoint. It carries no user
// identity.
func SetupWebhookRoutes(engine *gin.Engine, config *WebhookRouteConfig) {
	webhooks := engine.Group("/webhooks")
	webhooks.Use(config.RateLimiter.Limit(), config.SecretMiddleware.RequireSecret())
	{
		webhooks.POST("/email-inbound", config.EmailInboundHandler.Receive)
	}
}
