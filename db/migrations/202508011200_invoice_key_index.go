package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

var _202508011200_invoice_key_index = &gormigrate.Migration{
	ID: "202508011200_invoice_key_index",
	Migrate: func(tx *gorm.DB) error {
		return tx.Exec("CREATE INDEX IF NOT EXISTS idx_invoices_payment_hash ON invoices(payment_hash)").Error
	},
	Rollback: func(tx *gorm.DB) error {
		return tx.Exec("DROP INDEX IF EXISTS idx_invoices_payment_hash").Error
	},
}
