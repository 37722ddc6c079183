package models

import "gorm.io/datatypes"

// SupportTicketModel stores a support ticket. Timestamps are Unix milliseconds
// written by the store's clock, so GORM auto-tracking is disabled.
type SupportTicketModel struct {
	ID              string `gorm:"primaryKey;size:32"`
	UserID          string `gorm:"size:128;not null;index"`
	Subject         string `gorm:"size:255;not null"`
	Description     string `gorm:"type:text;not null"`
	Status          string `gorm:"size:20;not null;index"`
	ReplyToken      string `gorm:"size:512"`
	ThreadMessageID string `gorm:"size:255"`
	CreatedAt       int64  `gorm:"autoCreateTime:false;not null"`
	UpdatedAt       int64  `gorm:"autoUpdateTime:false;not null;index"`

	// Note: No foreign key constraints or associations.
	// Messages are loaded explicitly by ticket ID.
}

func (SupportTicketModel) TableName() string {
	return "support_tickets"
}

// SupportTicketMessageModel stores one thread entry. Seq is the position of
// the message within its ticket.
type SupportTicketMessageModel struct {
	ID          string         `gorm:"primaryKey;size:32"`
	TicketID    string         `gorm:"size:32;not null;index:idx_ticket_seq,priority:1"`
	Seq         int            `gorm:"not null;index:idx_ticket_seq,priority:2"`
	Author      string         `gorm:"size:20;not null"`
	Text        string         `gorm:"type:text;not null"`
	Attachments datatypes.JSON `gorm:"type:json"`
	CreatedAt   int64          `gorm:"autoCreateTime:false;not null"`
}

func (SupportTicketMessageModel) TableName() string {
	return "support_ticket_messages"
}
