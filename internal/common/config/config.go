package config

import (
	"os"
	"regexp"
	"time"

	"github.com/amoylab/contentd/pkg/helper"
	"github.com/amoylab/contentd/pkg/trace"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// ContentdConfig represents the contentd service configuration
	ContentdConfig struct {
		Server   ServerConfig   `yaml:"server"`
		Database DatabaseConfig `yaml:"database"`
		Logger   LoggerConfig   `yaml:"logger"`
		HedgeDoc HedgeDocConfig `yaml:"hedgedoc"`
		Lock     LockConfig     `yaml:"lock"`
		Events   EventsConfig   `yaml:"events"`
		JWT      JWTConfig      `yaml:"jwt"`
		CORS     CORSConfig     `yaml:"cors"`
		Metrics  MetricsConfig  `yaml:"metrics"`
		Tracing  trace.Config   `yaml:"tracing"`
	}

	// ServerConfig represents the HTTP listener configuration
	ServerConfig struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		PID             string        `yaml:"pid"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file, both
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}

	// JWTConfig protects the mutating routes when SecretKey is set
	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
		Issuer    string        `yaml:"issuer"`
	}

	// CORSConfig maps onto gin-contrib/cors
	CORSConfig struct {
		AllowOrigins     []string      `yaml:"allow_origins"`
		AllowMethods     []string      `yaml:"allow_methods"`
		AllowHeaders     []string      `yaml:"allow_headers"`
		ExposeHeaders    []string      `yaml:"expose_headers"`
		AllowCredentials bool          `yaml:"allow_credentials"`
		MaxAge           time.Duration `yaml:"max_age"`
	}

	// MetricsConfig represents the prometheus configuration
	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Path      string    `yaml:"path"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}
)

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(filename string) (*ContentdConfig, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, cfgPath, err
	}
	return cfg, cfgPath, nil
}

// Parse resolves environment placeholders in data and decodes it with defaults applied
func Parse(data []byte) (*ContentdConfig, error) {
	data = resolveEnv(data)
	cfg := ContentdConfig{
		HedgeDoc: HedgeDocConfig{InsertDelay: DefaultInsertDelay, CloseGrace: DefaultCloseGrace},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default
func (c *ContentdConfig) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type == "sqlite" && c.Database.DBName == "" {
		c.Database.DBName = "./data/contentd.db"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if c.Logger.Output == "" {
		c.Logger.Output = "stdout"
	}
	c.HedgeDoc.applyDefaults()
	c.Lock.applyDefaults()
	c.Events.applyDefaults()
	if c.JWT.Duration <= 0 {
		c.JWT.Duration = 24 * time.Hour
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "contentd"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "contentd"
	}
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
