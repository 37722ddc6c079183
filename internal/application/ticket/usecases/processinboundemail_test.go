package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/infusio/infusio/internal/domain/ticket"
	vo "github.com/infusio/infusio/internal/domain/ticket/valueobjects"
)

func TestProcessInboundEmailUseCase_Execute_ValidToken(t *testing.T) {
	f := newFixture(t)
	f.acceptAll()
	seeded := f.seedTicket(t, "u-1")

	result, err := f.inboundUseCase().Execute(context.Background(), &InboundEmail{
		To:      "Suporte <suporte+tck_" + seeded.ReplyToken + "@inbound.hospital.test>",
		From:    "tecnico@hospital.test",
		Subject: "Re: chamado",
		Text:    "  Troque o cabo de alimentacao.  ",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeAppended, result.Outcome)
	assert.Equal(t, seeded.ID, result.TicketID)

	stored, err := f.store.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.MessageCount())
	last := stored.LastMessage()
	assert.Equal(t, vo.AuthorSupport, last.Author())
	assert.Equal(t, "Troque o cabo de alimentacao.", last.Text())
	assert.Equal(t, vo.StatusInProgress, stored.Status())

	f.publisher.AssertCalled(t, "Publish", mock.Anything, "u-1", ticket.EventTicketUpdated, mock.Anything)
}

func TestProcessInboundEmailUseCase_Execute_ForgedTokenIgnored(t *testing.T) {
	f := newFixture(t)
	f.acceptAll()
	seeded := f.seedTicket(t, "u-1")

	forged := f.signer.Sign("t:"+seeded.ID+":u:u-1") + "00"

	result, err := f.inboundUseCase().Execute(context.Background(), &InboundEmail{
		To:      "suporte+tck_" + forged + "@inbound.hospital.test",
		Subject: "sem tag",
		Text:    "resposta",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnoredNoCorrelation, result.Outcome)

	stored, err := f.store.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.MessageCount())
}

func TestProcessInboundEmailUseCase_Execute_SubjectFallback(t *testing.T) {
	f := newFixture(t)
	f.acceptAll()
	seeded := f.seedTicket(t, "u-1")

	result, err := f.inboundUseCase().Execute(context.Background(), &InboundEmail{
		To:      "suporte@inbound.hospital.test",
		Subject: "RE: [#" + seeded.ID + "] Suporte - Novo pedido",
		HTML:    "<p>Verifique a <b>bateria</b></p>",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeAppended, result.Outcome)
	assert.Equal(t, seeded.ID, result.TicketID)

	stored, err := f.store.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	text := stored.LastMessage().Text()
	assert.Contains(t, text, "Verifique a")
	assert.Contains(t, text, "bateria")
	assert.NotContains(t, text, "<")
}

func TestProcessInboundEmailUseCase_Execute_DottedUserFallsBackToSubject(t *testing.T) {
	f := newFixture(t)
	f.acceptAll()
	seeded := f.seedTicket(t, "maria.silva")

	result, err := f.inboundUseCase().Execute(context.Background(), &InboundEmail{
		To:      "suporte+tck_" + seeded.ReplyToken + "@inbound.hospital.test",
		Subject: "Re: [#" + seeded.ID + "] Suporte - Novo pedido",
		Text:    "Trocamos o equipo",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeAppended, result.Outcome)
	assert.Equal(t, seeded.ID, result.TicketID)

	result, err = f.inboundUseCase().Execute(context.Background(), &InboundEmail{
		To:      "suporte+tck_" + seeded.ReplyToken + "@inbound.hospital.test",
		Subject: "Re: sem etiqueta",
		Text:    "Trocamos o equipo",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnoredNoCorrelation, result.Outcome)
}

func TestProcessInboundEmailUseCase_Execute_TokenOverridesSubject(t *testing.T) {
	f := newFixture(t)
	f.acceptAll()
	first := f.seedTicket(t, "u-1")
	second := f.seedTicket(t, "u-1")

	result, err := f.inboundUseCase().Execute(context.Background(), &InboundEmail{
		To:      "suporte+tck_" + second.ReplyToken + "@inbound.hospital.test",
		Subject: "Re: [#" + first.ID + "] Suporte - Novo pedido",
		Text:    "ok",
	})

	require.NoError(t, err)
	assert.Equal(t, second.ID, result.TicketID)
}

func TestProcessInboundEmailUseCase_Execute_UnknownTicket(t *testing.T) {
	f := newFixture(t)
	f.acceptAll()

	result, err := f.inboundUseCase().Execute(context.Background(), &InboundEmail{
		Subject: "Re: [#tck_naoexiste1234] Suporte",
		Text:    "ok",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnoredTicketNotFound, result.Outcome)
	assert.True(t, result.Outcome.IsIgnored())
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessInboundEmailUseCase_Execute_EmptyPayload(t *testing.T) {
	f := newFixture(t)

	for _, msg := range []*InboundEmail{nil, {}} {
		result, err := f.inboundUseCase().Execute(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnoredNoCorrelation, result.Outcome)
		assert.Empty(t, result.TicketID)
	}
}

func TestProcessInboundEmailUseCase_Execute_EmptyBodyPlaceholder(t *testing.T) {
	f := newFixture(t)
	f.acceptAll()
	seeded := f.seedTicket(t, "u-1")

	result, err := f.inboundUseCase().Execute(context.Background(), &InboundEmail{
		To:   "suporte+tck_" + seeded.ReplyToken + "@inbound.hospital.test",
		Text: "   ",
		Attachments: []InboundAttachment{
			&UploadedFile{Filename: "laudo.pdf", ContentType: "application/pdf", Content: []byte("%PDF")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeAppended, result.Outcome)

	stored, err := f.store.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	last := stored.LastMessage()
	assert.Equal(t, "(sem conteúdo)", last.Text())
	require.Len(t, last.Attachments(), 1)
	assert.Equal(t, "laudo.pdf", last.Attachments()[0].Name)
}

type lazyAttachment struct {
	name   string
	err    error
	loaded int
}

func (a *lazyAttachment) Name() string { return a.name }

func (a *lazyAttachment) Load() (*UploadedFile, error) {
	a.loaded++
	if a.err != nil {
		return nil, a.err
	}
	return &UploadedFile{Filename: a.name, Content: []byte("x")}, nil
}

func TestProcessInboundEmailUseCase_Execute_UncorrelatedNeverLoadsAttachments(t *testing.T) {
	f := newFixture(t)
	big := &lazyAttachment{name: "enorme.zip", err: errors.New("anexo excede o limite de 20 MB")}

	result, err := f.inboundUseCase().Execute(context.Background(), &InboundEmail{
		To:          "alguem@outro.test",
		Subject:     "sem etiqueta",
		Attachments: []InboundAttachment{big},
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnoredNoCorrelation, result.Outcome)
	assert.Zero(t, big.loaded)
}

func TestProcessInboundEmailUseCase_Execute_SkipsUnloadableAttachment(t *testing.T) {
	f := newFixture(t)
	f.acceptAll()
	seeded := f.seedTicket(t, "u-1")

	big := &lazyAttachment{name: "enorme.zip", err: errors.New("anexo excede o limite de 20 MB")}
	ok := &lazyAttachment{name: "foto.jpg"}

	result, err := f.inboundUseCase().Execute(context.Background(), &InboundEmail{
		To:          "suporte+tck_" + seeded.ReplyToken + "@inbound.hospital.test",
		Text:        "segue a foto",
		Attachments: []InboundAttachment{big, ok},
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeAppended, result.Outcome)
	assert.Equal(t, 1, big.loaded)

	stored, err := f.store.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	atts := stored.LastMessage().Attachments()
	require.Len(t, atts, 1)
	assert.Contains(t, atts[0].Name, "foto.jpg")
}

func TestProcessInboundEmailUseCase_Execute_KeepsResolvedStatus(t *testing.T) {
	f := newFixture(t)
	f.acceptAll()
	seeded := f.seedTicket(t, "u-1")

	_, err := f.resolveUseCase().Execute(context.Background(), ResolveTicketCommand{TicketID: seeded.ID, UserID: "u-1"})
	require.NoError(t, err)

	result, err := f.inboundUseCase().Execute(context.Background(), &InboundEmail{
		To:   "suporte+tck_" + seeded.ReplyToken + "@inbound.hospital.test",
		Text: "mais uma coisa",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAppended, result.Outcome)

	stored, err := f.store.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusResolved, stored.Status())
}

func TestSubjectResolver(t *testing.T) {
	tests := []struct {
		subject string
		want    string
		ok      bool
	}{
		{"[#tck_AbC123] Suporte", "tck_AbC123", true},
		{"RE: re: [#TCK_abc] x", "TCK_abc", true},
		{"[#legacy_42] antigo", "legacy_42", true},
		{"[#tck_abc] e [#outro] x", "tck_abc", true},
		{"sem tag", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			got, ok := subjectResolver{}.Resolve(&InboundEmail{Subject: tt.subject})
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
