// Package services provides infrastructure services.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/google/uuid"

	"github.com/infusio/infusio/internal/shared/logger"
)

const (
	// SSEContentType is the content type for SSE responses.
	SSEContentType = "text/event-stream"

	defaultKeepaliveInterval = 30 * time.Second
	defaultSendBufferSize    = 16
)

var (
	ErrHubShutdown           = errors.New("sse hub is shut down")
	ErrTooManyConnections    = errors.New("too many sse connections for user")
	ErrStreamingNotSupported = errors.New("response writer does not support flushing")
)

// SSEConn is one open event stream of a user.
type SSEConn struct {
	ID          string
	UserID      string
	Send        chan []byte
	ConnectedAt time.Time

	hub    *UserHub
	closed atomic.Bool
}

// TrySend offers data without blocking.
// Returns false if the connection is closed or its buffer is full.
func (c *SSEConn) TrySend(data []byte) (sent bool) {
	if c.closed.Load() {
		return false
	}

	// Close may race with a send on the channel
	defer func() {
		if r := recover(); r != nil {
			sent = false
		}
	}()

	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Close removes the connection from its hub and closes the send channel.
// Safe to call multiple times.
func (c *SSEConn) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	if c.hub != nil {
		c.hub.remove(c)
	}
	close(c.Send)
}

// UserHubConfig holds configuration for UserHub.
type UserHubConfig struct {
	KeepaliveInterval time.Duration // default 30s
	SendBufferSize    int           // per connection, default 16
	MaxConnsPerUser   int           // 0 means unlimited
}

// UserHub fans ticket events out to the open SSE streams of each user.
type UserHub struct {
	conns map[string]map[string]*SSEConn // userID -> connID -> conn
	mu    sync.RWMutex

	keepalive       time.Duration
	bufferSize      int
	maxConnsPerUser int

	shutdown atomic.Bool
	logger   logger.Interface
}

// NewUserHub creates a new UserHub instance.
func NewUserHub(log logger.Interface, config *UserHubConfig) *UserHub {
	h := &UserHub{
		conns:      make(map[string]map[string]*SSEConn),
		keepalive:  defaultKeepaliveInterval,
		bufferSize: defaultSendBufferSize,
		logger:     log,
	}

	if config != nil {
		if config.KeepaliveInterval > 0 {
			h.keepalive = config.KeepaliveInterval
		}
		if config.SendBufferSize > 0 {
			h.bufferSize = config.SendBufferSize
		}
		if config.MaxConnsPerUser > 0 {
			h.maxConnsPerUser = config.MaxConnsPerUser
		}
	}

	return h
}

// Register adds a stream for userID. The returned connection must be closed
// by the caller when the stream ends.
func (h *UserHub) Register(userID string) (*SSEConn, error) {
	if h.shutdown.Load() {
		return nil, ErrHubShutdown
	}

	conn := &SSEConn{
		ID:          uuid.NewString(),
		UserID:      userID,
		Send:        make(chan []byte, h.bufferSize),
		ConnectedAt: time.Now(),
		hub:         h,
	}

	h.mu.Lock()
	userConns := h.conns[userID]
	if h.maxConnsPerUser > 0 && len(userConns) >= h.maxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	if userConns == nil {
		userConns = make(map[string]*SSEConn)
		h.conns[userID] = userConns
	}
	userConns[conn.ID] = conn
	total := len(userConns)
	h.mu.Unlock()

	h.logger.Debugw("sse connection registered",
		"conn_id", conn.ID,
		"user_id", userID,
		"user_conns", total,
	)

	return conn, nil
}

func (h *UserHub) remove(conn *SSEConn) {
	h.mu.Lock()
	if userConns, ok := h.conns[conn.UserID]; ok {
		delete(userConns, conn.ID)
		if len(userConns) == 0 {
			delete(h.conns, conn.UserID)
		}
	}
	h.mu.Unlock()

	h.logger.Debugw("sse connection removed",
		"conn_id", conn.ID,
		"user_id", conn.UserID,
	)
}

// ConnCount returns the number of open streams for userID.
func (h *UserHub) ConnCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Publish encodes one SSE frame and delivers it to every stream of userID.
// A user without streams is a no-op.
func (h *UserHub) Publish(ctx context.Context, userID, event string, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	h.Deliver(userID, frame)
	return nil
}

// Deliver offers an encoded frame to every stream of userID and returns how
// many accepted it. Streams with a full buffer miss the frame.
func (h *UserHub) Deliver(userID string, frame []byte) int {
	h.mu.RLock()
	targets := make([]*SSEConn, 0, len(h.conns[userID]))
	for _, conn := range h.conns[userID] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if conn.TrySend(frame) {
			delivered++
			continue
		}
		h.logger.Warnw("sse frame dropped",
			"conn_id", conn.ID,
			"user_id", userID,
		)
	}
	return delivered
}

// Serve streams events for userID to w until ctx ends. It writes a ping
// comment right away and a keepalive comment on every interval.
func (h *UserHub) Serve(ctx context.Context, userID string, w http.ResponseWriter) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingNotSupported
	}

	conn, err := h.Register(userID)
	if err != nil {
		return err
	}
	defer conn.Close()

	header := w.Header()
	header.Set("Content-Type", SSEContentType)
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no") // Disable Nginx buffering
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(": ping\n\n")); err != nil {
		return fmt.Errorf("sse initial write: %w", err)
	}
	flusher.Flush()

	keepAliveTicker := time.NewTicker(h.keepalive)
	defer keepAliveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debugw("sse connection closed by client",
				"conn_id", conn.ID,
				"user_id", userID,
			)
			return nil

		case data, ok := <-conn.Send:
			if !ok {
				return nil
			}
			if _, err := w.Write(data); err != nil {
				return fmt.Errorf("sse write: %w", err)
			}
			flusher.Flush()

		case <-keepAliveTicker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return fmt.Errorf("sse keepalive: %w", err)
			}
			flusher.Flush()
		}
	}
}

// Shutdown closes every stream. Later registrations are refused.
// Safe to call multiple times.
func (h *UserHub) Shutdown() {
	if !h.shutdown.CompareAndSwap(false, true) {
		return
	}

	h.mu.RLock()
	var all []*SSEConn
	for _, userConns := range h.conns {
		for _, conn := range userConns {
			all = append(all, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range all {
		conn.Close()
	}

	h.logger.Infow("sse hub shut down", "closed_conns", len(all))
}

// EncodeFrame renders a named SSE event whose data is the JSON form of payload.
func EncodeFrame(event string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	if err := sse.Encode(&buf, sse.Event{Event: event, Data: payload}); err != nil {
		return nil, fmt.Errorf("failed to encode sse frame: %w", err)
	}
	return buf.Bytes(), nil
}
