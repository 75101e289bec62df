package db

import (
	"fmt"
	"strings"

	"github.com/embercash/payflow/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func NewDB(uri string, logDBQueries bool) (*gorm.DB, error) {
	// sqlite pragmas tuned for a single-writer wallet workload
	if !strings.Contains(uri, "?") {
		uri = uri + "?"
	} else {
		uri = uri + "&"
	}
	uri = uri + "_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"

	gormConfig := &gorm.Config{
		TranslateError: true,
	}
	if logDBQueries {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	} else {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	gormDB, err := gorm.Open(sqlite.Open(uri), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = gormDB.Exec("PRAGMA foreign_keys = ON", nil).Error
	if err != nil {
		return nil, err
	}

	logger.Logger.Debug().Str("uri", uri).Msg("Opened database")
	return gormDB, nil
}

func Stop(gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
