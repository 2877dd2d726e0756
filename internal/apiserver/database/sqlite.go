package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/amoylab/contentd/internal/common/config"
	"github.com/glebarez/sqlite"
)

// NewSQLite opens a pure-Go SQLite database, creating the parent directory of
// file databases.
func NewSQLite(cfg *config.DatabaseConfig) (Database, error) {
	if !cfg.IsMemory() {
		if err := os.MkdirAll(filepath.Dir(cfg.DBName), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for sqlite database: %w", err)
		}
	}
	return open(sqlite.Open(cfg.GetDSN()), cfg)
}
