package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/infusio/infusio/internal/infrastructure/email"
	"github.com/infusio/infusio/internal/infrastructure/repository"
	"github.com/infusio/infusio/internal/infrastructure/storage"
	"github.com/infusio/infusio/internal/infrastructure/token"
	"github.com/infusio/infusio/internal/shared/logger"
	"github.com/infusio/infusio/internal/shared/services/markdown"
)

const testSecret = "test-reply-secret"

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg *email.OutboundEmail) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func (m *mockMailer) sent() []*email.OutboundEmail {
	var out []*email.OutboundEmail
	for _, call := range m.Calls {
		if call.Method == "Send" {
			out = append(out, call.Arguments.Get(1).(*email.OutboundEmail))
		}
	}
	return out
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, userID, event string, payload any) error {
	args := m.Called(ctx, userID, event, payload)
	return args.Error(0)
}

type failingStorage struct {
	err error
}

func (s failingStorage) Save(context.Context, string, []byte) (storage.StoredFile, error) {
	return storage.StoredFile{}, s.err
}

// fixture wires the use cases against the in-memory store and real
// token, markdown and disk storage implementations.
type fixture struct {
	store     *repository.MemoryTicketStore
	storage   *storage.LocalStorage
	signer    *token.Signer
	renderer  markdown.MarkdownService
	mailer    *mockMailer
	publisher *mockPublisher
	mailCfg   SupportMailConfig
	log       logger.Interface
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	signer, err := token.NewSigner(testSecret)
	require.NoError(t, err)

	st, err := storage.NewLocalStorage(t.TempDir(), "/files")
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	return &fixture{
		store:     repository.NewMemoryTicketStore(repository.WithClock(clock)),
		storage:   st,
		signer:    signer,
		renderer:  markdown.NewMarkdownService(),
		mailer:    new(mockMailer),
		publisher: new(mockPublisher),
		mailCfg: SupportMailConfig{
			TeamAddresses:    []string{"equipe@hospital.test"},
			InboundLocalPart: "suporte",
			InboundDomain:    "inbound.hospital.test",
			SendTimeout:      time.Second,
		},
		log: logger.NewNop(),
	}
}

func (f *fixture) createUseCase() *CreateTicketUseCase {
	return NewCreateTicketUseCase(f.store, f.storage, f.signer, f.renderer, f.mailer, f.publisher, f.mailCfg, 10, f.log)
}

func (f *fixture) addMessageUseCase() *AddUserMessageUseCase {
	return NewAddUserMessageUseCase(f.store, f.signer, f.mailer, f.publisher, f.mailCfg, f.log)
}

func (f *fixture) resolveUseCase() *ResolveTicketUseCase {
	return NewResolveTicketUseCase(f.store, f.publisher, f.log)
}

func (f *fixture) inboundUseCase() *ProcessInboundEmailUseCase {
	return NewProcessInboundEmailUseCase(f.store, f.storage, f.signer, f.renderer, f.publisher, f.mailCfg.InboundLocalPart, f.log)
}

// acceptAll makes every mail and publish call succeed.
func (f *fixture) acceptAll() {
	f.mailer.On("Send", mock.Anything, mock.Anything).Return("<thread-1@hospital.test>", nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}
