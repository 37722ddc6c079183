package dto

import (
	"time"

	"github.com/infusio/infusio/internal/domain/ticket"
)

// TicketDTO is the JSON form of a ticket shared by the REST API and the
// ticket_updated stream event.
type TicketDTO struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	Subject         string       `json:"assunto"`
	Description     string       `json:"descricao"`
	Status          string       `json:"status"`
	CreatedAt       time.Time    `json:"criadoEm"`
	UpdatedAt       time.Time    `json:"atualizadoEm"`
	Messages        []MessageDTO `json:"mensagens"`
	ReplyToken      string       `json:"replyToken,omitempty"`
	ThreadMessageID string       `json:"threadMessageId,omitempty"`
}

type MessageDTO struct {
	ID          string          `json:"id"`
	TicketID    string          `json:"ticketId"`
	Author      string          `json:"autor"`
	Text        string          `json:"texto"`
	CreatedAt   time.Time       `json:"criadoEm"`
	Attachments []AttachmentDTO `json:"anexos,omitempty"`
}

type AttachmentDTO struct {
	Name string `json:"nome"`
	URL  string `json:"url"`
}

func ToTicketDTO(t *ticket.Ticket) *TicketDTO {
	if t == nil {
		return nil
	}

	msgs := t.Messages()
	messageDTOs := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		messageDTOs = append(messageDTOs, ToMessageDTO(m))
	}

	return &TicketDTO{
		ID:              t.ID(),
		UserID:          t.UserID(),
		Subject:         t.Subject(),
		Description:     t.Description(),
		Status:          t.Status().String(),
		CreatedAt:       t.CreatedAt(),
		UpdatedAt:       t.UpdatedAt(),
		Messages:        messageDTOs,
		ReplyToken:      t.ReplyToken(),
		ThreadMessageID: t.ThreadMessageID(),
	}
}

func ToMessageDTO(m *ticket.Message) MessageDTO {
	var atts []AttachmentDTO
	for _, a := range m.Attachments() {
		atts = append(atts, AttachmentDTO{Name: a.Name, URL: a.URL})
	}

	return MessageDTO{
		ID:          m.ID(),
		TicketID:    m.TicketID(),
		Author:      m.Author().String(),
		Text:        m.Text(),
		CreatedAt:   m.CreatedAt(),
		Attachments: atts,
	}
}

// ToTicketDTOList always returns a non-nil slice so empty lists encode as [].
func ToTicketDTOList(tickets []*ticket.Ticket) []*TicketDTO {
	result := make([]*TicketDTO, 0, len(tickets))
	for _, t := range tickets {
		result = append(result, ToTicketDTO(t))
	}
	return result
}
