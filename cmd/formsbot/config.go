package main

import (
	"errors"

	coreconfig "github.com/m3rciful/tgforms/core/config"
	coredatabase "github.com/m3rciful/tgforms/core/database"
)

// AppConfig is the core configuration plus the database used by the postgres store.
type AppConfig struct {
	coreconfig.Config `yaml:",inline"`
	Database          coredatabase.Config `yaml:"database"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *AppConfig) CoreConfig() *coreconfig.Config { return &c.Config }

// loadConfig reads path, applies environment overrides and normalizes the core part.
func loadConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if cfg.Store.Backend == coreconfig.StorePostgres && cfg.Database.Host == "" {
		return nil, errors.New("database.host is required when store.backend is 'postgres'")
	}
	return &cfg, nil
}
