package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/infusio/infusio/internal/domain/ticket"
	vo "github.com/infusio/infusio/internal/domain/ticket/valueobjects"
	"github.com/infusio/infusio/internal/infrastructure/persistence/mappers"
	"github.com/infusio/infusio/internal/infrastructure/persistence/models"
	db "github.com/infusio/infusio/internal/shared/db"
	"github.com/infusio/infusio/internal/shared/id"
)

// TicketRepository is the GORM-backed ticket store. Mutations are serialised
// by a process-local mutex and run in a transaction that row-locks the
// ticket where the dialect supports it.
type TicketRepository struct {
	db     *gorm.DB
	txm    *db.TransactionManager
	mapper mappers.TicketMapper
	opts   storeOptions
	mu     sync.Mutex
}

func NewTicketRepository(gdb *gorm.DB, opts ...StoreOption) *TicketRepository {
	return &TicketRepository{
		db:     gdb,
		txm:    db.NewTransactionManager(gdb),
		mapper: mappers.NewTicketMapper(),
		opts:   applyStoreOptions(opts),
	}
}

func (r *TicketRepository) Create(ctx context.Context, userID, description string, attachments []ticket.Attachment) (*ticket.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := ticket.NewTicket(id.NewTicketID(), userID, description, attachments, r.opts.clock())

	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		tx := db.GetTxFromContext(ctx, r.db)
		if err := tx.Create(r.mapper.ToModel(t)).Error; err != nil {
			return fmt.Errorf("failed to save ticket: %w", err)
		}
		return r.insertMessages(tx, t.Messages(), 0)
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (r *TicketRepository) ListByUser(ctx context.Context, userID string) ([]*ticket.Ticket, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var rows []models.SupportTicketModel
	if err := tx.
		Where("user_id = ?", userID).
		Scopes(db.RecentlyUpdatedFirst()).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	result := make([]*ticket.Ticket, 0, len(rows))
	if len(rows) == 0 {
		return result, nil
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}

	// Load all threads in a single query
	var msgRows []models.SupportTicketMessageModel
	if err := tx.
		Where("ticket_id IN ?", ids).
		Order("ticket_id ASC").
		Order("seq ASC").
		Find(&msgRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load ticket messages: %w", err)
	}

	byTicket := make(map[string][]models.SupportTicketMessageModel, len(rows))
	for _, m := range msgRows {
		byTicket[m.TicketID] = append(byTicket[m.TicketID], m)
	}

	for i := range rows {
		t, err := r.mapper.ToDomain(&rows[i], byTicket[rows[i].ID])
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}

	return result, nil
}

func (r *TicketRepository) GetByID(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	return r.load(db.GetTxFromContext(ctx, r.db), ticketID, false)
}

func (r *TicketRepository) AppendMessage(
	ctx context.Context,
	ticketID string,
	author vo.Author,
	text string,
	attachments []ticket.Attachment,
) (*ticket.Ticket, error) {
	return r.mutate(ctx, ticketID, func(t *ticket.Ticket) error {
		now := r.opts.clock()
		return t.AppendMessage(ticket.NewMessage(t.ID(), author, text, attachments, now), now)
	})
}

func (r *TicketRepository) Resolve(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	return r.mutate(ctx, ticketID, func(t *ticket.Ticket) error {
		t.Resolve(r.opts.clock())
		return nil
	})
}

func (r *TicketRepository) SetReplyToken(ctx context.Context, ticketID, token string) (*ticket.Ticket, error) {
	return r.mutate(ctx, ticketID, func(t *ticket.Ticket) error {
		t.SetReplyToken(token, r.opts.clock())
		return nil
	})
}

func (r *TicketRepository) SetThreadMessageID(ctx context.Context, ticketID, messageID string) (*ticket.Ticket, error) {
	return r.mutate(ctx, ticketID, func(t *ticket.Ticket) error {
		t.SetThreadMessageID(messageID, r.opts.clock())
		return nil
	})
}

// mutate loads the ticket under lock, applies fn and writes back the ticket
// row together with any messages fn appended.
func (r *TicketRepository) mutate(ctx context.Context, ticketID string, fn func(*ticket.Ticket) error) (*ticket.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated *ticket.Ticket
	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		tx := db.GetTxFromContext(ctx, r.db)

		t, err := r.load(tx, ticketID, true)
		if err != nil {
			return err
		}

		before := t.MessageCount()
		if err := fn(t); err != nil {
			return err
		}

		model := r.mapper.ToModel(t)
		if err := tx.
			Model(&models.SupportTicketModel{}).
			Where("id = ?", model.ID).
			Updates(map[string]interface{}{
				"status":            model.Status,
				"reply_token":       model.ReplyToken,
				"thread_message_id": model.ThreadMessageID,
				"updated_at":        model.UpdatedAt,
			}).Error; err != nil {
			return fmt.Errorf("failed to update ticket: %w", err)
		}

		if err := r.insertMessages(tx, t.Messages()[before:], before); err != nil {
			return err
		}

		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *TicketRepository) load(tx *gorm.DB, ticketID string, lock bool) (*ticket.Ticket, error) {
	query := tx
	if lock {
		query = query.Scopes(db.ForUpdate())
	}

	var model models.SupportTicketModel
	if err := query.Where("id = ?", ticketID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ticket.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to find ticket: %w", err)
	}

	var msgRows []models.SupportTicketMessageModel
	if err := tx.
		Where("ticket_id = ?", ticketID).
		Order("seq ASC").
		Find(&msgRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load ticket messages: %w", err)
	}

	return r.mapper.ToDomain(&model, msgRows)
}

func (r *TicketRepository) insertMessages(tx *gorm.DB, msgs []*ticket.Message, firstSeq int) error {
	for i, msg := range msgs {
		row, err := r.mapper.MessageToModel(msg, firstSeq+i)
		if err != nil {
			return err
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to save ticket message: %w", err)
		}
	}
	return nil
}

var _ ticket.Store = (*TicketRepository)(nil)
