package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/infusio/infusio/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.SupportTicketModel{},
		&models.SupportTicketMessageModel{},
	}
}

// AutoMigrate creates or updates the support ticket tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AutoMigrateModels()...); err != nil {
		return fmt.Errorf("failed to migrate support ticket tables: %w", err)
	}
	return nil
}
