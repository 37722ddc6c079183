package services

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infusio/infusio/internal/shared/logger"
)

type ticketPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// streamRecorder is a goroutine-safe http.ResponseWriter with Flush.
type streamRecorder struct {
	mu     sync.Mutex
	header http.Header
	code   int
	body   bytes.Buffer
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: make(http.Header)}
}

func (r *streamRecorder) Header() http.Header { return r.header }

func (r *streamRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.code = code
}

func (r *streamRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.Write(p)
}

func (r *streamRecorder) Flush() {}

func (r *streamRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

func newTestHub(cfg *UserHubConfig) *UserHub {
	return NewUserHub(logger.NewNop(), cfg)
}

func receive(t *testing.T, conn *SSEConn) []byte {
	t.Helper()
	select {
	case data := <-conn.Send:
		return data
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func assertNothingQueued(t *testing.T, conn *SSEConn) {
	t.Helper()
	select {
	case data := <-conn.Send:
		t.Fatalf("unexpected frame: %q", data)
	default:
	}
}

func TestEncodeFrame(t *testing.T) {
	frame, err := EncodeFrame("ticket_updated", ticketPayload{ID: "tck_1", Status: "aberto"})
	require.NoError(t, err)

	s := string(frame)
	assert.True(t, strings.HasPrefix(s, "event:ticket_updated\n"), s)
	assert.Contains(t, s, `data:{"id":"tck_1","status":"aberto"}`)
	assert.True(t, strings.HasSuffix(s, "\n\n"), s)
}

func TestUserHub_PublishWithoutConnectionsIsNoop(t *testing.T) {
	hub := newTestHub(nil)

	err := hub.Publish(context.Background(), "u1", "ticket_updated", ticketPayload{ID: "tck_1"})
	assert.NoError(t, err)
	assert.Equal(t, 0, hub.ConnCount("u1"))
}

func TestUserHub_PublishReachesEveryConnectionOfUser(t *testing.T) {
	hub := newTestHub(nil)

	a, err := hub.Register("u1")
	require.NoError(t, err)
	b, err := hub.Register("u1")
	require.NoError(t, err)
	other, err := hub.Register("u2")
	require.NoError(t, err)
	assert.Equal(t, 2, hub.ConnCount("u1"))

	require.NoError(t, hub.Publish(context.Background(), "u1", "ticket_updated", ticketPayload{ID: "tck_1", Status: "aberto"}))

	frameA := receive(t, a)
	frameB := receive(t, b)
	assert.Equal(t, frameA, frameB)
	assert.Contains(t, string(frameA), `"id":"tck_1"`)
	assertNothingQueued(t, other)
}

func TestUserHub_CloseUnregisters(t *testing.T) {
	hub := newTestHub(nil)

	conn, err := hub.Register("u1")
	require.NoError(t, err)
	conn.Close()
	conn.Close()

	assert.Equal(t, 0, hub.ConnCount("u1"))
	assert.False(t, conn.TrySend([]byte("x")))
	assert.Equal(t, 0, hub.Deliver("u1", []byte("x")))
}

func TestUserHub_FullBufferDropsFrame(t *testing.T) {
	hub := newTestHub(&UserHubConfig{SendBufferSize: 1})

	conn, err := hub.Register("u1")
	require.NoError(t, err)

	assert.Equal(t, 1, hub.Deliver("u1", []byte("first")))
	assert.Equal(t, 0, hub.Deliver("u1", []byte("second")))
	assert.Equal(t, []byte("first"), receive(t, conn))
	assertNothingQueued(t, conn)
}

func TestUserHub_MaxConnsPerUser(t *testing.T) {
	hub := newTestHub(&UserHubConfig{MaxConnsPerUser: 1})

	_, err := hub.Register("u1")
	require.NoError(t, err)
	_, err = hub.Register("u1")
	assert.ErrorIs(t, err, ErrTooManyConnections)
	_, err = hub.Register("u2")
	assert.NoError(t, err)
}

func TestUserHub_Shutdown(t *testing.T) {
	hub := newTestHub(nil)

	conn, err := hub.Register("u1")
	require.NoError(t, err)

	hub.Shutdown()
	hub.Shutdown()

	_, ok := <-conn.Send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ConnCount("u1"))

	_, err = hub.Register("u1")
	assert.ErrorIs(t, err, ErrHubShutdown)
}

func TestUserHub_Serve(t *testing.T) {
	hub := newTestHub(&UserHubConfig{KeepaliveInterval: 20 * time.Millisecond})
	rec := newStreamRecorder()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- hub.Serve(ctx, "u1", rec)
	}()

	require.Eventually(t, func() bool { return hub.ConnCount("u1") == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return strings.HasPrefix(rec.String(), ": ping\n\n") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, SSEContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	require.NoError(t, hub.Publish(context.Background(), "u1", "ticket_updated", ticketPayload{ID: "tck_9"}))
	require.Eventually(t, func() bool {
		return strings.Contains(rec.String(), "event:ticket_updated\n")
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return strings.Contains(rec.String(), ": keepalive\n\n")
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.Equal(t, 0, hub.ConnCount("u1"))
}

func TestUserHub_ServeRequiresFlusher(t *testing.T) {
	hub := newTestHub(nil)

	err := hub.Serve(context.Background(), "u1", nonFlushingWriter{})
	assert.ErrorIs(t, err, ErrStreamingNotSupported)
	assert.Equal(t, 0, hub.ConnCount("u1"))
}

type nonFlushingWriter struct{}

func (nonFlushingWriter) Header() http.Header         { return http.Header{} }
func (nonFlushingWriter) Write(p []byte) (int, error) { return len(p), nil }
func (nonFlushingWriter) WriteHeader(int)             {}
