package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate adds a FOR UPDATE row lock so reads inside a settlement
// transaction serialize against concurrent writers. sqlite (the test
// backend) has no FOR UPDATE syntax and allows only one writer at a time,
// so the clause is skipped there.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
