package config

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/embercash/payflow/db"
	"github.com/embercash/payflow/logger"
)

type config struct {
	Env        *AppConfig
	db         *gorm.DB
	cache      map[string]string
	cacheMutex sync.Mutex
}

func NewConfig(env *AppConfig, gormDB *gorm.DB) (*config, error) {
	cfg := &config{
		Env:   env,
		db:    gormDB,
		cache: map[string]string{},
	}

	if env.LNBackendType != "" {
		err := cfg.SetIgnore("LNBackendType", env.LNBackendType)
		if err != nil {
			return nil, err
		}
	}
	if env.Network != "" {
		err := cfg.SetUpdate("Network", env.Network)
		if err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (cfg *config) GetEnv() *AppConfig {
	return cfg.Env
}

func (cfg *config) Get(key string) (string, error) {
	cfg.cacheMutex.Lock()
	cached, ok := cfg.cache[key]
	cfg.cacheMutex.Unlock()
	if ok {
		return cached, nil
	}

	var userConfig db.UserConfig
	result := cfg.db.Limit(1).Find(&userConfig, &db.UserConfig{Key: key})
	if result.Error != nil {
		return "", result.Error
	}

	cfg.cacheMutex.Lock()
	cfg.cache[key] = userConfig.Value
	cfg.cacheMutex.Unlock()

	return userConfig.Value, nil
}

func (cfg *config) set(key string, value string, clauses clause.OnConflict) error {
	userConfig := db.UserConfig{Key: key, Value: value}
	err := cfg.db.Clauses(clauses).Create(&userConfig).Error
	if err != nil {
		logger.Logger.Error().Err(err).Str("key", key).Msg("Failed to save config entry")
		return err
	}

	cfg.cacheMutex.Lock()
	cfg.cache[key] = value
	cfg.cacheMutex.Unlock()
	return nil
}

// SetIgnore only stores the value if no entry exists for the key yet. The
// cache entry is dropped rather than overwritten since an existing row wins.
func (cfg *config) SetIgnore(key string, value string) error {
	userConfig := db.UserConfig{Key: key, Value: value}
	err := cfg.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&userConfig).Error
	if err != nil {
		logger.Logger.Error().Err(err).Str("key", key).Msg("Failed to save config entry")
		return err
	}

	cfg.cacheMutex.Lock()
	delete(cfg.cache, key)
	cfg.cacheMutex.Unlock()
	return nil
}

func (cfg *config) SetUpdate(key string, value string) error {
	return cfg.set(key, value, clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	})
}

func (cfg *config) GetNetwork() string {
	network, _ := cfg.Get("Network")
	if network == "" {
		network = cfg.Env.Network
	}
	return network
}

func (cfg *config) GetJWTSecret() (string, error) {
	secret, err := cfg.Get("JWTSecret")
	if err != nil {
		return "", err
	}
	if secret == "" {
		secret, err = randomHex(32)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("failed to generate JWT secret")
			return "", err
		}
		err = cfg.SetIgnore("JWTSecret", secret)
		if err != nil {
			return "", err
		}
		// re-read in case of a concurrent writer
		secret, err = cfg.Get("JWTSecret")
		if err != nil {
			return "", err
		}
	}
	return secret, nil
}

func randomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
