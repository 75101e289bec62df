package tests

import (
	"fmt"
	"os"
	"testing"

	"gorm.io/gorm"

	"github.com/embercash/payflow/config"
	"github.com/embercash/payflow/db"
	"github.com/embercash/payflow/db/migrations"
	"github.com/embercash/payflow/events"
	"github.com/embercash/payflow/logger"
)

type TestService struct {
	DB             *gorm.DB
	Config         config.Config
	EventPublisher events.EventPublisher

	databasePath string
}

// CreateTestService wires a throwaway sqlite database with the full schema
// applied. Callers must defer svc.Remove().
func CreateTestService(t *testing.T) (*TestService, error) {
	logger.Init("5")

	databasePath := fmt.Sprintf("%s/test.db", t.TempDir())

	gormDB, err := db.NewDB(databasePath, false)
	if err != nil {
		return nil, err
	}

	if err := migrations.Migrate(gormDB); err != nil {
		return nil, err
	}

	appConfig := &config.AppConfig{
		Network: "mainnet",
	}
	cfg, err := config.NewConfig(appConfig, gormDB)
	if err != nil {
		return nil, err
	}

	return &TestService{
		DB:             gormDB,
		Config:         cfg,
		EventPublisher: events.NewEventPublisher(),
		databasePath:   databasePath,
	}, nil
}

func (svc *TestService) Remove() {
	if err := db.Stop(svc.DB); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to close test database")
	}
	os.Remove(svc.databasePath)
}
