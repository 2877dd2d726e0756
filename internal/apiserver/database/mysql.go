package database

import (
	"github.com/amoylab/contentd/internal/common/config"
	"gorm.io/driver/mysql"
)

// NewMySQL opens a MySQL database
func NewMySQL(cfg *config.DatabaseConfig) (Database, error) {
	return open(mysql.Open(cfg.GetDSN()), cfg)
}
