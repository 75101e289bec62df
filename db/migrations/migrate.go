package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/embercash/payflow/db"
)

func Migrate(gormDB *gorm.DB) error {
	// AutoMigrate handles column additions; versioned migrations below cover
	// everything AutoMigrate can't express.
	err := gormDB.AutoMigrate(
		&db.UserConfig{},
		&db.Invoice{},
		&db.Request{},
		&db.Transaction{},
	)
	if err != nil {
		return err
	}

	m := gormigrate.New(gormDB, gormigrate.DefaultOptions, []*gormigrate.Migration{
		_202508011200_invoice_key_index,
		_202508120930_transaction_finalizer_index,
	})

	return m.Migrate()
}
