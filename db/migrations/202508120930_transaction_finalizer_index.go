package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

var _202508120930_transaction_finalizer_index = &gormigrate.Migration{
	ID: "202508120930_transaction_finalizer_index",
	Migrate: func(tx *gorm.DB) error {
		return tx.Exec("CREATE INDEX IF NOT EXISTS idx_transactions_finalizer_id ON transactions(finalizer_id)").Error
	},
	Rollback: func(tx *gorm.DB) error {
		return tx.Exec("DROP INDEX IF EXISTS idx_transactions_finalizer_id").Error
	},
}
