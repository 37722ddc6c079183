package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/infusio/infusio/internal/infrastructure/services"
	"github.com/infusio/infusio/internal/shared/goroutine"
	"github.com/infusio/infusio/internal/shared/logger"
)

const supportEventsChannel = "infusio:support:events"

// TicketEventMessage carries an encoded SSE frame to other instances.
type TicketEventMessage struct {
	UserID     string `json:"user_id"`
	Frame      string `json:"frame"`
	InstanceID string `json:"instance_id"` // Source instance ID to avoid self-delivery
}

// RedisTicketEventBus delivers ticket events to local streams and relays them
// through Redis Pub/Sub so streams held by other instances receive them too.
type RedisTicketEventBus struct {
	client     *redis.Client
	hub        *services.UserHub
	logger     logger.Interface
	instanceID string
}

// NewRedisTicketEventBus creates a new Redis-backed ticket event bus.
func NewRedisTicketEventBus(client *redis.Client, hub *services.UserHub, logger logger.Interface) *RedisTicketEventBus {
	return &RedisTicketEventBus{
		client:     client,
		hub:        hub,
		logger:     logger,
		instanceID: uuid.NewString(),
	}
}

// Publish delivers the event to local streams first, then relays it.
func (b *RedisTicketEventBus) Publish(ctx context.Context, userID, event string, payload any) error {
	frame, err := services.EncodeFrame(event, payload)
	if err != nil {
		return err
	}

	b.hub.Deliver(userID, frame)

	data, err := json.Marshal(TicketEventMessage{
		UserID:     userID,
		Frame:      string(frame),
		InstanceID: b.instanceID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal ticket event: %w", err)
	}

	if err := b.client.Publish(ctx, supportEventsChannel, data).Err(); err != nil {
		b.logger.Errorw("failed to relay ticket event",
			"user_id", userID,
			"event", event,
			"error", err,
		)
		return fmt.Errorf("failed to relay ticket event: %w", err)
	}

	b.logger.Debugw("ticket event relayed to Redis",
		"user_id", userID,
		"event", event,
	)
	return nil
}

// Run consumes relayed events until ctx ends, reconnecting with backoff.
func (b *RedisTicketEventBus) Run(ctx context.Context) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		err := b.subscribe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.logger.Warnw("ticket event subscription disconnected, reconnecting",
			"channel", supportEventsChannel,
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

func (b *RedisTicketEventBus) subscribe(ctx context.Context) error {
	ps := b.client.Subscribe(ctx, supportEventsChannel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel %s: %w", supportEventsChannel, err)
	}

	b.logger.Infow("subscribed to ticket event channel",
		"channel", supportEventsChannel,
		"instance_id", b.instanceID,
	)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			goroutine.SafeGo(b.logger, "ticket-event-relay", func() {
				b.handleMessage(msg.Payload)
			})
		}
	}
}

// handleMessage delivers a relayed frame locally. Frames published by this
// instance were already delivered by Publish and are skipped.
func (b *RedisTicketEventBus) handleMessage(payload string) int {
	var msg TicketEventMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		b.logger.Warnw("failed to unmarshal ticket event",
			"error", err,
		)
		return 0
	}

	if msg.InstanceID == b.instanceID || msg.UserID == "" {
		return 0
	}

	return b.hub.Deliver(msg.UserID, []byte(msg.Frame))
}
