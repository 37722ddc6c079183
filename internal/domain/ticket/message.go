package ticket

import (
	"time"

	vo "github.com/infusio/infusio/internal/domain/ticket/valueobjects"
	"github.com/infusio/infusio/internal/shared/id"
)

// Attachment describes a file attached to a message: its original name and
// the URL it can be retrieved from.
type Attachment struct {
	Name string
	URL  string
}

// Message is one entry of a ticket thread. It never changes once appended.
type Message struct {
	id          string
	ticketID    string
	author      vo.Author
	text        string
	attachments []Attachment
	createdAt   time.Time
}

func NewMessage(ticketID string, author vo.Author, text string, attachments []Attachment, now time.Time) *Message {
	return &Message{
		id:          id.NewMessageID(),
		ticketID:    ticketID,
		author:      author,
		text:        text,
		attachments: copyAttachments(attachments),
		createdAt:   now,
	}
}

// ReconstructMessage rebuilds a persisted message.
func ReconstructMessage(id, ticketID string, author vo.Author, text string, attachments []Attachment, createdAt time.Time) *Message {
	return &Message{
		id:          id,
		ticketID:    ticketID,
		author:      author,
		text:        text,
		attachments: copyAttachments(attachments),
		createdAt:   createdAt,
	}
}

func (m *Message) ID() string {
	return m.id
}

func (m *Message) TicketID() string {
	return m.ticketID
}

func (m *Message) Author() vo.Author {
	return m.author
}

func (m *Message) Text() string {
	return m.text
}

func (m *Message) Attachments() []Attachment {
	return copyAttachments(m.attachments)
}

func (m *Message) CreatedAt() time.Time {
	return m.createdAt
}

func copyAttachments(in []Attachment) []Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]Attachment, len(in))
	copy(out, in)
	return out
}
