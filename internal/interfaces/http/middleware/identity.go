package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/infusio/infusio/internal/shared/logger"
	"github.com/infusio/infusio/internal/shared/utils"
)

const (
	// DefaultUserHeader carries the caller's identity, set by the dashboard's
	// authenticating proxy.
	DefaultUserHeader = "X-User-ID"

	userIDKey = "user_id"
)

// UserIdentityMiddleware resolves the caller of the support routes.
type UserIdentityMiddleware struct {
	header        string
	defaultUserID string
	logger        logger.Interface
}

// NewUserIdentityMiddleware reads the user id from header. When the header is
// absent, defaultUserID is used if set, otherwise the request is rejected.
func NewUserIdentityMiddleware(header, defaultUserID string, logger logger.Interface) *UserIdentityMiddleware {
	if header == "" {
		header = DefaultUserHeader
	}
	return &UserIdentityMiddleware{
		header:        header,
		defaultUserID: defaultUserID,
		logger:        logger,
	}
}

func (m *UserIdentityMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(m.header))
		if userID == "" {
			userID = m.defaultUserID
		}

		if userID == "" {
			m.logger.Debugw("request without user identity", "path", c.Request.URL.Path, "ip", c.ClientIP())
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing user identity")
			c.Abort()
			return
		}

		SetUserID(c, userID)
		c.Next()
	}
}

// SetUserID records userID as the caller of the request.
func SetUserID(c *gin.Context, userID string) {
	c.Set(userIDKey, userID)
}

// GetUserID returns the identity set by RequireUser.
func GetUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok && userID != ""
}
