package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/infusio/infusio/internal/shared/logger"
)

// WebhookSecretHeader is where the email relay sends the shared secret.
const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookSecretMiddleware authenticates the inbound email relay.
type WebhookSecretMiddleware struct {
	secret string
	logger logger.Interface
}

// NewWebhookSecretMiddleware returns a middleware that lets every request
// through when secret is empty.
func NewWebhookSecretMiddleware(secret string, logger logger.Interface) *WebhookSecretMiddleware {
	return &WebhookSecretMiddleware{secret: secret, logger: logger}
}

func (m *WebhookSecretMiddleware) RequireSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.secret == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(WebhookSecretHeader)
		if provided == "" {
			// some relays can only send a bearer token
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				provided = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.secret)) != 1 {
			m.logger.Warnw("webhook request with invalid secret", "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false})
			return
		}

		c.Next()
	}
}
