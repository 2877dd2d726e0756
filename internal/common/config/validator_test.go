package config

import (
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg, err := Parse([]byte(`
database:
  type: oracle
hedgedoc:
  server: https://notes.example.com
  scheme: ftp
lock:
  type: redis
events:
  type: kafka
`))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{
		"database.type",
		"database.host",
		"hedgedoc.server",
		"hedgedoc.scheme",
		"lock.redis.addr",
		"events.kafka.brokers",
	}, fields)
	assert.Contains(t, err.Error(), "--> database.type")
}

func TestValidate_UnknownTypes(t *testing.T) {
	cfg, err := Parse([]byte("lock:\n  type: etcd\nevents:\n  type: nats\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported lock type "etcd"`)
	assert.Contains(t, err.Error(), `unsupported events type "nats"`)
}

func TestDatabaseConfig_GetDSN_Postgres(t *testing.T) {
	c := &DatabaseConfig{Type: "postgres", Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.GetDSN())

	c.Password = "p@ss/word"
	c.SSLMode = ""
	assert.Equal(t, "postgres://u:p%40ss%2Fword@h:5432/d", c.GetDSN())
}

func TestDatabaseConfig_GetDSN_MySQL(t *testing.T) {
	c := &DatabaseConfig{Type: "mysql", Host: "h", Port: 3306, User: "u", Password: "p@ss", DBName: "d"}
	parsed, err := mysql.ParseDSN(c.GetDSN())
	require.NoError(t, err)
	assert.Equal(t, "u", parsed.User)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "h:3306", parsed.Addr)
	assert.Equal(t, "d", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, time.UTC, parsed.Loc)
	assert.Equal(t, "utf8mb4", parsed.Params["charset"])
}

func TestDatabaseConfig_GetDSN_SQLite(t *testing.T) {
	c := &DatabaseConfig{Type: "sqlite", DBName: "./data/contentd.db"}
	assert.Equal(t, "./data/contentd.db", c.GetDSN())
	assert.False(t, c.IsMemory())

	mem := &DatabaseConfig{Type: "sqlite", DBName: ":memory:"}
	assert.Equal(t, ":memory:", mem.GetDSN())
	assert.True(t, mem.IsMemory())
	assert.False(t, (&DatabaseConfig{Type: "mysql", DBName: ":memory:"}).IsMemory())
}

func TestDatabaseConfig_GetDSN_Unknown(t *testing.T) {
	c := &DatabaseConfig{Type: "unknown"}
	assert.Equal(t, "", c.GetDSN())
}
