package ticket

import (
	"fmt"
	"time"

	vo "github.com/infusio/infusio/internal/domain/ticket/valueobjects"
)

// Ticket is a support request and its message thread.
//
// The thread is append-only and updatedAt never moves backwards. Status
// follows aberto -> em_atendimento (first support reply) -> resolvido
// (explicit Resolve only).
type Ticket struct {
	id              string
	userID          string
	subject         string
	description     string
	status          vo.TicketStatus
	replyToken      string
	threadMessageID string
	createdAt       time.Time
	updatedAt       time.Time
	messages        []*Message
}

// SubjectFor returns the email subject used for a ticket. The bracket tag
// lets the inbound webhook correlate replies that lost their reply token.
func SubjectFor(ticketID string) string {
	return fmt.Sprintf("[#%s] Suporte - Novo pedido", ticketID)
}

// NewTicket opens a ticket whose thread starts with the description as a
// user message. No validation happens here; callers validate input.
func NewTicket(id, userID, description string, attachments []Attachment, now time.Time) *Ticket {
	t := &Ticket{
		id:          id,
		userID:      userID,
		subject:     SubjectFor(id),
		description: description,
		status:      vo.StatusOpen,
		createdAt:   now,
		updatedAt:   now,
	}
	t.messages = []*Message{NewMessage(id, vo.AuthorUser, description, attachments, now)}
	return t
}

// ReconstructTicket rebuilds a persisted ticket.
func ReconstructTicket(
	id string,
	userID string,
	subject string,
	description string,
	status vo.TicketStatus,
	replyToken string,
	threadMessageID string,
	createdAt, updatedAt time.Time,
	messages []*Message,
) (*Ticket, error) {
	if id == "" {
		return nil, fmt.Errorf("ticket ID is required")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid status: %s", status)
	}

	msgs := make([]*Message, len(messages))
	copy(msgs, messages)

	return &Ticket{
		id:              id,
		userID:          userID,
		subject:         subject,
		description:     description,
		status:          status,
		replyToken:      replyToken,
		threadMessageID: threadMessageID,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
		messages:        msgs,
	}, nil
}

func (t *Ticket) ID() string {
	return t.id
}

func (t *Ticket) UserID() string {
	return t.userID
}

func (t *Ticket) Subject() string {
	return t.subject
}

func (t *Ticket) Description() string {
	return t.description
}

func (t *Ticket) Status() vo.TicketStatus {
	return t.status
}

func (t *Ticket) ReplyToken() string {
	return t.replyToken
}

func (t *Ticket) ThreadMessageID() string {
	return t.threadMessageID
}

func (t *Ticket) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Ticket) UpdatedAt() time.Time {
	return t.updatedAt
}

func (t *Ticket) Messages() []*Message {
	msgs := make([]*Message, len(t.messages))
	copy(msgs, t.messages)
	return msgs
}

func (t *Ticket) MessageCount() int {
	return len(t.messages)
}

// LastMessage returns the newest message of the thread.
func (t *Ticket) LastMessage() *Message {
	return t.messages[len(t.messages)-1]
}

func (t *Ticket) IsOwnedBy(userID string) bool {
	return t.userID == userID
}

// AppendMessage adds msg to the thread. A support reply moves an open ticket
// to em_atendimento; any other combination leaves the status alone.
func (t *Ticket) AppendMessage(msg *Message, now time.Time) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}
	if msg.TicketID() != t.id {
		return fmt.Errorf("message ticket ID mismatch")
	}

	t.messages = append(t.messages, msg)
	t.touch(now)

	if msg.Author().IsSupport() && t.status.IsOpen() {
		t.status = vo.StatusInProgress
	}

	return nil
}

// Resolve marks the ticket resolvido. Calling it again only refreshes updatedAt.
func (t *Ticket) Resolve(now time.Time) {
	if t.status.CanTransitionTo(vo.StatusResolved) {
		t.status = vo.StatusResolved
	}
	t.touch(now)
}

func (t *Ticket) SetReplyToken(token string, now time.Time) {
	t.replyToken = token
	t.touch(now)
}

func (t *Ticket) SetThreadMessageID(messageID string, now time.Time) {
	t.threadMessageID = messageID
	t.touch(now)
}

func (t *Ticket) touch(now time.Time) {
	if now.After(t.updatedAt) {
		t.updatedAt = now
	}
}

// Clone returns a copy that shares no mutable state with t. Messages are
// immutable, so the thread slice is copied but its elements are shared.
func (t *Ticket) Clone() *Ticket {
	c := *t
	c.messages = t.Messages()
	return &c
}
