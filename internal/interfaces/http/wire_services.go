package http

import (
	"context"
	"fmt"
	"time"

	"github.com/infusio/infusio/internal/infrastructure/email"
	"github.com/infusio/infusio/internal/infrastructure/pubsub"
	"github.com/infusio/infusio/internal/infrastructure/repository"
	"github.com/infusio/infusio/internal/infrastructure/services"
	"github.com/infusio/infusio/internal/infrastructure/storage"
	"github.com/infusio/infusio/internal/infrastructure/token"
	"github.com/infusio/infusio/internal/shared/services/markdown"
)

// eventPublisher is satisfied by the local hub and by the Redis relay.
type eventPublisher interface {
	Publish(ctx context.Context, userID, event string, payload any) error
}

func (c *Container) initInfrastructure() error {
	if c.db != nil {
		c.store = repository.NewTicketRepository(c.db)
		c.log.Infow("ticket store ready", "driver", c.cfg.Database.Driver)
	} else {
		c.store = repository.NewMemoryTicketStore()
		c.log.Infow("ticket store ready", "driver", "memory")
	}

	signer, err := token.NewSigner(c.cfg.Support.ReplySecret)
	if err != nil {
		return fmt.Errorf("failed to create reply token signer: %w", err)
	}
	c.signer = signer

	st, err := storage.NewLocalStorage(c.cfg.Storage.Dir, c.cfg.Storage.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to create attachment storage: %w", err)
	}
	c.storage = st

	c.mailer = email.NewTransport(&c.cfg.Email, c.log.Named("email"))
	c.renderer = markdown.NewMarkdownService()

	c.hub = services.NewUserHub(c.log.Named("sse"), &services.UserHubConfig{
		KeepaliveInterval: time.Duration(c.cfg.SSE.KeepaliveSeconds) * time.Second,
		SendBufferSize:    c.cfg.SSE.BufferSize,
		MaxConnsPerUser:   c.cfg.SSE.MaxConnsPerUser,
	})
	c.publisher = c.hub

	if c.redis != nil {
		c.eventBus = pubsub.NewRedisTicketEventBus(c.redis, c.hub, c.log.Named("pubsub"))
		c.publisher = c.eventBus
		c.log.Infow("cross-instance ticket events enabled")
	}

	return nil
}
