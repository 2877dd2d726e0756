package config

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DatabaseConfig selects the social posts store
type DatabaseConfig struct {
	Type     string `yaml:"type"`     // mysql, postgres, sqlite
	Host     string `yaml:"host"`     // localhost
	Port     int    `yaml:"port"`     // 3306 (for mysql), 5432 (for postgres)
	User     string `yaml:"user"`     // root (for mysql), postgres (for postgres)
	Password string `yaml:"password"` // password
	DBName   string `yaml:"dbname"`   // database name, or file path for sqlite
	SSLMode  string `yaml:"sslmode"`  // disable (for postgres)
	// Migrate runs gorm AutoMigrate on startup
	Migrate bool `yaml:"migrate"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// IsMemory reports whether the sqlite database lives only in memory
func (c *DatabaseConfig) IsMemory() bool {
	return c.Type == "sqlite" && (c.DBName == ":memory:" || c.DBName == "file::memory:")
}

// GetDSN returns the driver connection string. Credentials are escaped.
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return c.postgresDSN()
	case "mysql":
		return c.mysqlDSN()
	case "sqlite":
		return c.DBName
	default:
		return ""
	}
}

func (c *DatabaseConfig) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *DatabaseConfig) postgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.addr(),
		Path:   "/" + c.DBName,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// mysqlDSN keeps times in UTC; the store normalizes every timestamp to UTC
func (c *DatabaseConfig) mysqlDSN() string {
	m := mysql.NewConfig()
	m.User = c.User
	m.Passwd = c.Password
	m.Net = "tcp"
	m.Addr = c.addr()
	m.DBName = c.DBName
	m.ParseTime = true
	m.Loc = time.UTC
	m.Params = map[string]string{"charset": "utf8mb4"}
	return m.FormatDSN()
}
