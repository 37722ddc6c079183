package ticket

import (
	"context"
	"errors"
	"sort"

	vo "github.com/infusio/infusio/internal/domain/ticket/valueobjects"
)

// ErrTicketNotFound is returned by Store operations addressing an unknown ticket.
var ErrTicketNotFound = errors.New("ticket not found")

// Store is the single writer of tickets and their threads. Every returned
// ticket is a snapshot: mutating it does not affect the store.
type Store interface {
	Create(ctx context.Context, userID, description string, attachments []Attachment) (*Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]*Ticket, error)
	GetByID(ctx context.Context, ticketID string) (*Ticket, error)
	AppendMessage(ctx context.Context, ticketID string, author vo.Author, text string, attachments []Attachment) (*Ticket, error)
	Resolve(ctx context.Context, ticketID string) (*Ticket, error)
	SetReplyToken(ctx context.Context, ticketID, token string) (*Ticket, error)
	SetThreadMessageID(ctx context.Context, ticketID, messageID string) (*Ticket, error)
}

// SortByRecentUpdate orders tickets by updatedAt, newest first. The sort is
// stable, so equal timestamps keep their incoming order.
func SortByRecentUpdate(tickets []*Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].UpdatedAt().After(tickets[j].UpdatedAt())
	})
}
