package database

import (
	"github.com/amoylab/contentd/internal/common/config"
	"gorm.io/driver/postgres"
)

// NewPostgres opens a PostgreSQL database
func NewPostgres(cfg *config.DatabaseConfig) (Database, error) {
	return open(postgres.Open(cfg.GetDSN()), cfg)
}
