package repository

import (
	"context"
	"sync"

	"github.com/infusio/infusio/internal/domain/ticket"
	vo "github.com/infusio/infusio/internal/domain/ticket/valueobjects"
	"github.com/infusio/infusio/internal/shared/id"
)

// MemoryTicketStore keeps tickets in process memory. Contents are lost on restart.
type MemoryTicketStore struct {
	mu      sync.RWMutex
	tickets map[string]*ticket.Ticket
	order   []string
	opts    storeOptions
}

func NewMemoryTicketStore(opts ...StoreOption) *MemoryTicketStore {
	return &MemoryTicketStore{
		tickets: make(map[string]*ticket.Ticket),
		opts:    applyStoreOptions(opts),
	}
}

func (s *MemoryTicketStore) Create(ctx context.Context, userID, description string, attachments []ticket.Attachment) (*ticket.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := ticket.NewTicket(id.NewTicketID(), userID, description, attachments, s.opts.clock())
	s.tickets[t.ID()] = t
	s.order = append(s.order, t.ID())

	return t.Clone(), nil
}

func (s *MemoryTicketStore) ListByUser(ctx context.Context, userID string) ([]*ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*ticket.Ticket, 0)
	for _, ticketID := range s.order {
		t := s.tickets[ticketID]
		if t.IsOwnedBy(userID) {
			result = append(result, t.Clone())
		}
	}

	ticket.SortByRecentUpdate(result)
	return result, nil
}

func (s *MemoryTicketStore) GetByID(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, ticket.ErrTicketNotFound
	}
	return t.Clone(), nil
}

func (s *MemoryTicketStore) AppendMessage(
	ctx context.Context,
	ticketID string,
	author vo.Author,
	text string,
	attachments []ticket.Attachment,
) (*ticket.Ticket, error) {
	return s.mutate(ticketID, func(t *ticket.Ticket) error {
		now := s.opts.clock()
		return t.AppendMessage(ticket.NewMessage(t.ID(), author, text, attachments, now), now)
	})
}

func (s *MemoryTicketStore) Resolve(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	return s.mutate(ticketID, func(t *ticket.Ticket) error {
		t.Resolve(s.opts.clock())
		return nil
	})
}

func (s *MemoryTicketStore) SetReplyToken(ctx context.Context, ticketID, token string) (*ticket.Ticket, error) {
	return s.mutate(ticketID, func(t *ticket.Ticket) error {
		t.SetReplyToken(token, s.opts.clock())
		return nil
	})
}

func (s *MemoryTicketStore) SetThreadMessageID(ctx context.Context, ticketID, messageID string) (*ticket.Ticket, error) {
	return s.mutate(ticketID, func(t *ticket.Ticket) error {
		t.SetThreadMessageID(messageID, s.opts.clock())
		return nil
	})
}

// mutate applies fn to a working copy and commits it only when fn succeeds.
func (s *MemoryTicketStore) mutate(ticketID string, fn func(*ticket.Ticket) error) (*ticket.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tickets[ticketID]
	if !ok {
		return nil, ticket.ErrTicketNotFound
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.tickets[ticketID] = working

	return working.Clone(), nil
}

var _ ticket.Store = (*MemoryTicketStore)(nil)
