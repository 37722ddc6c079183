package mappers

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/infusio/infusio/internal/domain/ticket"
	vo "github.com/infusio/infusio/internal/domain/ticket/valueobjects"
	"github.com/infusio/infusio/internal/infrastructure/persistence/models"
)

// TicketMapper handles the conversion between Ticket domain entities and persistence models.
type TicketMapper interface {
	// ToModel converts a ticket domain entity to a persistence model.
	ToModel(t *ticket.Ticket) *models.SupportTicketModel

	// MessageToModel converts a message at position seq of its thread.
	MessageToModel(m *ticket.Message, seq int) (*models.SupportTicketMessageModel, error)

	// ToDomain rebuilds a ticket from its row and its ordered message rows.
	ToDomain(model *models.SupportTicketModel, messages []models.SupportTicketMessageModel) (*ticket.Ticket, error)
}

type attachmentJSON struct {
	Name string `json:"nome"`
	URL  string `json:"url"`
}

// TicketMapperImpl is the concrete implementation of TicketMapper.
type TicketMapperImpl struct{}

// NewTicketMapper creates a new TicketMapper.
func NewTicketMapper() TicketMapper {
	return &TicketMapperImpl{}
}

func (m *TicketMapperImpl) ToModel(t *ticket.Ticket) *models.SupportTicketModel {
	return &models.SupportTicketModel{
		ID:              t.ID(),
		UserID:          t.UserID(),
		Subject:         t.Subject(),
		Description:     t.Description(),
		Status:          t.Status().String(),
		ReplyToken:      t.ReplyToken(),
		ThreadMessageID: t.ThreadMessageID(),
		CreatedAt:       t.CreatedAt().UnixMilli(),
		UpdatedAt:       t.UpdatedAt().UnixMilli(),
	}
}

func (m *TicketMapperImpl) MessageToModel(msg *ticket.Message, seq int) (*models.SupportTicketMessageModel, error) {
	model := &models.SupportTicketMessageModel{
		ID:        msg.ID(),
		TicketID:  msg.TicketID(),
		Seq:       seq,
		Author:    msg.Author().String(),
		Text:      msg.Text(),
		CreatedAt: msg.CreatedAt().UnixMilli(),
	}

	if atts := msg.Attachments(); len(atts) > 0 {
		rows := make([]attachmentJSON, len(atts))
		for i, a := range atts {
			rows[i] = attachmentJSON{Name: a.Name, URL: a.URL}
		}
		data, err := json.Marshal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal attachments: %w", err)
		}
		model.Attachments = datatypes.JSON(data)
	}

	return model, nil
}

func (m *TicketMapperImpl) ToDomain(model *models.SupportTicketModel, rows []models.SupportTicketMessageModel) (*ticket.Ticket, error) {
	if model == nil {
		return nil, nil
	}

	status, err := vo.NewTicketStatus(model.Status)
	if err != nil {
		return nil, fmt.Errorf("ticket %s: %w", model.ID, err)
	}

	messages := make([]*ticket.Message, 0, len(rows))
	for i := range rows {
		msg, err := m.messageToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return ticket.ReconstructTicket(
		model.ID,
		model.UserID,
		model.Subject,
		model.Description,
		status,
		model.ReplyToken,
		model.ThreadMessageID,
		fromMillis(model.CreatedAt),
		fromMillis(model.UpdatedAt),
		messages,
	)
}

func (m *TicketMapperImpl) messageToDomain(row *models.SupportTicketMessageModel) (*ticket.Message, error) {
	author, err := vo.NewAuthor(row.Author)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", row.ID, err)
	}

	var atts []ticket.Attachment
	if len(row.Attachments) > 0 {
		var decoded []attachmentJSON
		if err := json.Unmarshal(row.Attachments, &decoded); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attachments of message %s: %w", row.ID, err)
		}
		for _, a := range decoded {
			atts = append(atts, ticket.Attachment{Name: a.Name, URL: a.URL})
		}
	}

	return ticket.ReconstructMessage(row.ID, row.TicketID, author, row.Text, atts, fromMillis(row.CreatedAt)), nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
