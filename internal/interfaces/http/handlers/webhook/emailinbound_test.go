package webhook

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infusio/infusio/internal/application/ticket/usecases"
	"github.com/infusio/infusio/internal/interfaces/http/handlers/testutil"
	tickethandlers "github.com/infusio/infusio/internal/interfaces/http/handlers/ticket"
)

type fakeProcessUC struct {
	result *usecases.ProcessInboundEmailResult
	err    error
	panics bool
	got    *usecases.InboundEmail
}

func (f *fakeProcessUC) Execute(_ context.Context, msg *usecases.InboundEmail) (*usecases.ProcessInboundEmailResult, error) {
	f.got = msg
	if f.panics {
		panic("boom")
	}
	return f.result, f.err
}

func TestEmailInboundHandler_Receive(t *testing.T) {
	tests := []struct {
		name       string
		uc         *fakeProcessUC
		wantStatus int
		wantBody   string
	}{
		{
			name:       "appended",
			uc:         &fakeProcessUC{result: &usecases.ProcessInboundEmailResult{Outcome: usecases.OutcomeAppended, TicketID: "tck_a"}},
			wantStatus: http.StatusOK,
			wantBody:   `{"ok":true,"ticketId":"tck_a"}`,
		},
		{
			name:       "no correlation",
			uc:         &fakeProcessUC{result: &usecases.ProcessInboundEmailResult{Outcome: usecases.OutcomeIgnoredNoCorrelation}},
			wantStatus: http.StatusAccepted,
			wantBody:   `{"ok":true,"ignore":"sem-correlacao"}`,
		},
		{
			name:       "unknown ticket",
			uc:         &fakeProcessUC{result: &usecases.ProcessInboundEmailResult{Outcome: usecases.OutcomeIgnoredTicketNotFound, TicketID: "tck_x"}},
			wantStatus: http.StatusAccepted,
			wantBody:   `{"ok":true,"ignore":"ticket-inexistente"}`,
		},
		{
			name:       "failure",
			uc:         &fakeProcessUC{err: errors.New("store down")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"ok":false}`,
		},
		{
			name:       "panic",
			uc:         &fakeProcessUC{panics: true},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"ok":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEmailInboundHandler(tt.uc, testutil.NewMockLogger())

			req := testutil.NewMultipartRequest(http.MethodPost, "/webhooks/email-inbound", map[string]string{
				"to":      "suporte+tck_abc@inbound.test",
				"subject": "Re: [#tck_a] Suporte - Novo pedido",
				"text":    "resposta",
			})
			c, w := testutil.NewTestContextWithRequest(req)

			h.Receive(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestEmailInboundHandler_ParsesFieldsAndFiles(t *testing.T) {
	uc := &fakeProcessUC{result: &usecases.ProcessInboundEmailResult{Outcome: usecases.OutcomeAppended, TicketID: "tck_a"}}
	h := NewEmailInboundHandler(uc, testutil.NewMockLogger())

	req := testutil.NewMultipartRequest(http.MethodPost, "/webhooks/email-inbound",
		map[string]string{
			"to":      "suporte+tck_abc@inbound.test",
			"from":    "tecnico@hospital.test",
			"subject": "Re: chamado",
			"text":    "texto",
			"html":    "<p>texto</p>",
		},
		testutil.FormFile{Field: "attachment1", Filename: "a.txt", ContentType: "text/plain", Content: []byte("A")},
		testutil.FormFile{Field: "attachment2", Filename: "b.pdf", Content: []byte("B")},
	)
	c, w := testutil.NewTestContextWithRequest(req)

	h.Receive(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, uc.got)
	assert.Equal(t, "suporte+tck_abc@inbound.test", uc.got.To)
	assert.Equal(t, "tecnico@hospital.test", uc.got.From)
	assert.Equal(t, "Re: chamado", uc.got.Subject)
	assert.Equal(t, "texto", uc.got.Text)
	assert.Equal(t, "<p>texto</p>", uc.got.HTML)
	require.Len(t, uc.got.Attachments, 2)
	assert.Equal(t, "a.txt", uc.got.Attachments[0].Name())
	assert.Equal(t, "b.pdf", uc.got.Attachments[1].Name())

	first, err := uc.got.Attachments[0].Load()
	require.NoError(t, err)
	assert.Equal(t, "text/plain", first.ContentType)

	second, err := uc.got.Attachments[1].Load()
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", second.ContentType)
	assert.Equal(t, []byte("B"), second.Content)
}

func TestEmailInboundHandler_UnreadablePayloads(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "empty json", contentType: "application/json", body: ""},
		{name: "malformed json", contentType: "application/json", body: "{"},
		{name: "bad urlencoded escape", contentType: "application/x-www-form-urlencoded", body: "to=%zz&subject=oi"},
		{name: "multipart without boundary", contentType: "multipart/form-data", body: "to=x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &fakeProcessUC{result: &usecases.ProcessInboundEmailResult{Outcome: usecases.OutcomeIgnoredNoCorrelation}}
			h := NewEmailInboundHandler(uc, testutil.NewMockLogger())

			req := httptest.NewRequest(http.MethodPost, "/webhooks/email-inbound", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			c, w := testutil.NewTestContextWithRequest(req)

			h.Receive(c)

			assert.Equal(t, http.StatusAccepted, w.Code)
			assert.JSONEq(t, `{"ok":true,"ignore":"sem-correlacao"}`, w.Body.String())
			require.NotNil(t, uc.got)
			assert.Empty(t, uc.got.To)
			assert.Empty(t, uc.got.Subject)
			assert.Empty(t, uc.got.Attachments)
		})
	}
}

func TestEmailInboundHandler_JSONPayload(t *testing.T) {
	uc := &fakeProcessUC{result: &usecases.ProcessInboundEmailResult{Outcome: usecases.OutcomeAppended, TicketID: "tck_a"}}
	h := NewEmailInboundHandler(uc, testutil.NewMockLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/email-inbound",
		strings.NewReader(`{"to":"suporte+tck_abc@inbound.test","text":"ok"}`))
	req.Header.Set("Content-Type", "application/json")
	c, w := testutil.NewTestContextWithRequest(req)

	h.Receive(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, uc.got)
	assert.Equal(t, "suporte+tck_abc@inbound.test", uc.got.To)
	assert.Equal(t, "ok", uc.got.Text)
}

func TestEmailInboundHandler_OversizedFileIsReadLazily(t *testing.T) {
	uc := &fakeProcessUC{result: &usecases.ProcessInboundEmailResult{Outcome: usecases.OutcomeIgnoredNoCorrelation}}
	h := NewEmailInboundHandler(uc, testutil.NewMockLogger())

	big := bytes.Repeat([]byte("a"), tickethandlers.MaxAttachmentBytes+1)
	req := testutil.NewMultipartRequest(http.MethodPost, "/webhooks/email-inbound",
		map[string]string{"to": "alguem@outro.test"},
		testutil.FormFile{Field: "attachment1", Filename: "enorme.bin", Content: big},
	)
	c, w := testutil.NewTestContextWithRequest(req)

	h.Receive(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, uc.got.Attachments, 1)
	_, err := uc.got.Attachments[0].Load()
	assert.Error(t, err)
}

func TestEmailInboundHandler_EmptyForm(t *testing.T) {
	uc := &fakeProcessUC{result: &usecases.ProcessInboundEmailResult{Outcome: usecases.OutcomeIgnoredNoCorrelation}}
	h := NewEmailInboundHandler(uc, testutil.NewMockLogger())

	req := testutil.NewFormRequest(http.MethodPost, "/webhooks/email-inbound", nil)
	c, w := testutil.NewTestContextWithRequest(req)

	h.Receive(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.NotNil(t, uc.got)
	assert.Empty(t, uc.got.To)
	assert.Empty(t, uc.got.Attachments)
}
