package http

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/infusio/infusio/internal/domain/ticket"
	"github.com/infusio/infusio/internal/infrastructure/config"
	"github.com/infusio/infusio/internal/infrastructure/email"
	"github.com/infusio/infusio/internal/infrastructure/pubsub"
	"github.com/infusio/infusio/internal/infrastructure/services"
	"github.com/infusio/infusio/internal/infrastructure/storage"
	"github.com/infusio/infusio/internal/infrastructure/token"
	"github.com/infusio/infusio/internal/interfaces/http/middleware"
	"github.com/infusio/infusio/internal/shared/goroutine"
	"github.com/infusio/infusio/internal/shared/logger"
	"github.com/infusio/infusio/internal/shared/services/markdown"
)

// Container holds all infrastructure components, use cases, handlers and
// background services. It wires everything together and provides Shutdown()
// for graceful termination.
type Container struct {
	// Core infrastructure
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client

	// Ticket store, memory or GORM depending on database.driver
	store ticket.Store

	// Infrastructure services
	signer    *token.Signer
	storage   *storage.LocalStorage
	mailer    email.Transport
	renderer  markdown.MarkdownService
	hub       *services.UserHub
	publisher eventPublisher

	// Use cases
	ucs *allUseCases

	// Handlers
	hdlrs *allHandlers

	// Middlewares
	identityMiddleware      *middleware.UserIdentityMiddleware
	webhookSecretMiddleware *middleware.WebhookSecretMiddleware
	webhookRateLimiter      *middleware.RateLimiter

	// Ticket event bus for cross-instance SSE relay
	eventBus         *pubsub.RedisTicketEventBus
	eventBusCancel   context.CancelFunc
	eventBusCancelMu sync.Mutex
	eventBusDone     chan struct{}
}

// NewContainer creates a new Container with all dependencies wired together.
// db is nil when the memory store is selected and redisClient is nil when
// Redis is disabled.
func NewContainer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log logger.Interface) (*Container, error) {
	c := &Container{
		engine: gin.New(),
		db:     db,
		cfg:    cfg,
		log:    log,
		redis:  redisClient,
	}

	// Section 1: Infrastructure - store, signer, storage, email, hub
	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}

	// Section 2: Use cases
	c.initUseCases()

	// Section 3: Handlers and middlewares
	c.initHandlers()

	return c, nil
}

// Engine returns the Gin engine serving every route.
func (c *Container) Engine() *gin.Engine {
	return c.engine
}

// Hub returns the per-user event stream hub.
func (c *Container) Hub() *services.UserHub {
	return c.hub
}

// StartBackground starts the Redis relay when Redis is enabled.
func (c *Container) StartBackground() {
	if c.eventBus == nil {
		return
	}

	c.eventBusCancelMu.Lock()
	defer c.eventBusCancelMu.Unlock()
	if c.eventBusCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.eventBusCancel = cancel
	c.eventBusDone = make(chan struct{})

	done := c.eventBusDone
	goroutine.SafeGo(c.log, "ticket-event-bus", func() {
		defer close(done)
		if err := c.eventBus.Run(ctx); err != nil && ctx.Err() == nil {
			c.log.Errorw("ticket event bus stopped", "error", err)
		}
	})
}

// Shutdown stops the relay and closes every event stream so the HTTP
// server can drain.
func (c *Container) Shutdown(ctx context.Context) {
	c.eventBusCancelMu.Lock()
	cancel, done := c.eventBusCancel, c.eventBusDone
	c.eventBusCancel = nil
	c.eventBusCancelMu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			c.log.Warnw("ticket event bus did not stop before shutdown deadline")
		}
	}

	c.hub.Shutdown()
}
