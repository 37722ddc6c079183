package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate locks the selected rows until the surrounding transaction ends.
// SQLite has no row locks and serialises writers itself, so the clause is
// only added for MySQL.
func ForUpdate() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if db.Dialector.Name() != "mysql" {
			return db
		}
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
}

// RecentlyUpdatedFirst orders by last update, newest first, with creation
// order breaking ties.
func RecentlyUpdatedFirst() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order("updated_at DESC").Order("created_at ASC").Order("id ASC")
	}
}
