package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ticketdto "github.com/infusio/infusio/internal/application/ticket/dto"
	"github.com/infusio/infusio/internal/infrastructure/config"
	"github.com/infusio/infusio/internal/interfaces/http/handlers/testutil"
	sharedConfig "github.com/infusio/infusio/internal/shared/config"
	"github.com/infusio/infusio/internal/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:   sharedConfig.ServerConfig{AllowedOrigins: []string{"*"}},
		Database: sharedConfig.DatabaseConfig{Driver: "memory"},
		Support: sharedConfig.SupportConfig{
			ReplySecret:          "e2e-secret",
			InboundDomain:        "inbound.test",
			InboundLocalPart:     "suporte",
			TeamAddresses:        []string{"equipe@hospital.test"},
			MinDescriptionLength: 10,
			UserHeader:           "X-User-ID",
		},
		Storage: sharedConfig.StorageConfig{Dir: t.TempDir(), BaseURL: "/files"},
		SSE:     sharedConfig.SSEConfig{KeepaliveSeconds: 30, BufferSize: 8},
	}
}

func newTestServer(t *testing.T) (*Container, *httptest.Server) {
	t.Helper()

	c, err := NewContainer(testConfig(t), nil, nil, logger.NewNop())
	require.NoError(t, err)
	c.SetupRoutes()

	srv := httptest.NewServer(c.Engine())
	t.Cleanup(func() {
		c.Shutdown(context.Background())
		srv.Close()
	})
	return c, srv
}

func do(t *testing.T, req *http.Request, userID string) (*http.Response, []byte) {
	t.Helper()
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func createTicket(t *testing.T, srv *httptest.Server, userID, description string) ticketdto.TicketDTO {
	t.Helper()
	req := testutil.NewMultipartRequest(http.MethodPost, srv.URL+"/api/suporte/tickets",
		map[string]string{"descricao": description})
	req.RequestURI = ""
	resp, body := do(t, req, userID)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created ticketdto.TicketDTO
	require.NoError(t, json.Unmarshal(body, &created))
	return created
}

func postInbound(t *testing.T, srv *httptest.Server, fields map[string]string) (int, map[string]any) {
	t.Helper()
	req := testutil.NewMultipartRequest(http.MethodPost, srv.URL+"/webhooks/email-inbound", fields)
	req.RequestURI = ""
	resp, body := do(t, req, "")

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return resp.StatusCode, out
}

func TestSupportFlow_EndToEnd(t *testing.T) {
	_, srv := newTestServer(t)

	desc := "Bomba de infusao 3 nao liga!!"
	require.Len(t, desc, 29)
	created := createTicket(t, srv, "u-1", desc)

	assert.Equal(t, "aberto", created.Status)
	assert.Len(t, created.Messages, 1)
	assert.Contains(t, created.Subject, "[#"+created.ID+"]")
	assert.NotEmpty(t, created.ReplyToken)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/suporte/meus", nil)
	resp, body := do(t, req, "u-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine []ticketdto.TicketDTO
	require.NoError(t, json.Unmarshal(body, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/suporte/tickets/"+created.ID, nil)
	resp, _ = do(t, req, "u-2")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	status, out := postInbound(t, srv, map[string]string{
		"to":      "suporte+tck_" + created.ReplyToken + "@inbound.test",
		"subject": "Re: " + created.Subject,
		"text":    "Troque o cabo.",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"ok": true, "ticketId": created.ID}, out)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/suporte/tickets/"+created.ID, nil)
	resp, body = do(t, req, "u-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail ticketdto.TicketDTO
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, "em_atendimento", detail.Status)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "suporte", detail.Messages[1].Author)
	assert.Equal(t, "Troque o cabo.", detail.Messages[1].Text)

	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/api/suporte/tickets/"+created.ID+"/resolver", nil)
	resp, body = do(t, req, "u-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, "resolvido", detail.Status)
}

func TestSupportFlow_Rejections(t *testing.T) {
	_, srv := newTestServer(t)

	req := testutil.NewMultipartRequest(http.MethodPost, srv.URL+"/api/suporte/tickets",
		map[string]string{"descricao": "curta"})
	req.RequestURI = ""
	resp, body := do(t, req, "u-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `"success":false`)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/suporte/meus", nil)
	resp, _ = do(t, req, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/suporte/tickets/tck_missing", nil)
	resp, _ = do(t, req, "u-1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhook_IgnoredDeliveries(t *testing.T) {
	_, srv := newTestServer(t)
	created := createTicket(t, srv, "u-1", "Bomba 3 nao liga desde ontem")

	status, out := postInbound(t, srv, map[string]string{
		"to":   "suporte+tck_" + created.ReplyToken + "ff@inbound.test",
		"text": "forjado",
	})
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, map[string]any{"ok": true, "ignore": "sem-correlacao"}, out)

	status, out = postInbound(t, srv, map[string]string{})
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "sem-correlacao", out["ignore"])

	status, out = postInbound(t, srv, map[string]string{"subject": "[#tck_naoexiste99] x"})
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "ticket-inexistente", out["ignore"])
}

func TestWebhook_UnreadableDeliveriesAreIgnored(t *testing.T) {
	_, srv := newTestServer(t)

	big := bytes.Repeat([]byte("x"), 21<<20)
	oversized := testutil.NewMultipartRequest(http.MethodPost, srv.URL+"/webhooks/email-inbound",
		map[string]string{"to": "someone@else.test"},
		testutil.FormFile{Field: "attachment1", Filename: "enorme.bin", Content: big},
	)
	oversized.RequestURI = ""

	raw := func(contentType, body string) *http.Request {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/email-inbound", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", contentType)
		return req
	}

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"empty json", raw("application/json", "")},
		{"bad urlencoded escape", raw("application/x-www-form-urlencoded", "to=%zz")},
		{"multipart without boundary", raw("multipart/form-data", "to=x")},
		{"uncorrelated oversized attachment", oversized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.req, "")
			assert.Equal(t, http.StatusAccepted, resp.StatusCode)
			assert.JSONEq(t, `{"ok":true,"ignore":"sem-correlacao"}`, string(body))
		})
	}
}

func TestWebhook_OversizedAttachmentIsDropped(t *testing.T) {
	_, srv := newTestServer(t)
	created := createTicket(t, srv, "u-1", "Bomba 3 nao liga desde ontem")

	req := testutil.NewMultipartRequest(http.MethodPost, srv.URL+"/webhooks/email-inbound",
		map[string]string{
			"to":   "suporte+tck_" + created.ReplyToken + "@inbound.test",
			"text": "segue o log",
		},
		testutil.FormFile{Field: "attachment1", Filename: "enorme.bin", Content: bytes.Repeat([]byte("x"), 21<<20)},
		testutil.FormFile{Field: "attachment2", Filename: "log.txt", Content: []byte("ok")},
	)
	req.RequestURI = ""
	resp, body := do(t, req, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/suporte/tickets/"+created.ID, nil)
	resp, body = do(t, req, "u-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got ticketdto.TicketDTO
	require.NoError(t, json.Unmarshal(body, &got))
	last := got.Messages[len(got.Messages)-1]
	assert.Equal(t, "segue o log", last.Text)
	require.Len(t, last.Attachments, 1)
	assert.Equal(t, "log.txt", last.Attachments[0].Name)
}

func TestStream_ReceivesTicketUpdates(t *testing.T) {
	c, srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/suporte/stream", nil)
	req.Header.Set("X-User-ID", "u-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": ping\n", line)

	require.Eventually(t, func() bool { return c.Hub().ConnCount("u-1") == 1 }, time.Second, 10*time.Millisecond)

	created := createTicket(t, srv, "u-1", "Bomba 3 nao liga desde ontem")

	lines := make(chan string, 16)
	go func() {
		for {
			l, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- strings.TrimRight(l, "\n")
		}
	}()

	var event, data string
	timeout := time.After(5 * time.Second)
	for data == "" {
		select {
		case l, ok := <-lines:
			require.True(t, ok, "stream closed early")
			switch {
			case strings.HasPrefix(l, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(l, "event:"))
			case strings.HasPrefix(l, "data:"):
				data = strings.TrimSpace(strings.TrimPrefix(l, "data:"))
			}
		case <-timeout:
			t.Fatal("no ticket_updated event received")
		}
	}

	assert.Equal(t, "ticket_updated", event)
	var pushed ticketdto.TicketDTO
	require.NoError(t, json.Unmarshal([]byte(data), &pushed))
	assert.Equal(t, created.ID, pushed.ID)

	cancel()
	require.Eventually(t, func() bool { return c.Hub().ConnCount("u-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
