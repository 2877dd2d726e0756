package config

import "time"

type (
	// HedgeDocConfig configures the realtime note client
	HedgeDocConfig struct {
		Server           string        `yaml:"server"` // host[:port], no scheme
		Scheme           string        `yaml:"scheme"` // https or http
		Deadline         time.Duration `yaml:"deadline"`
		InsertDelay      time.Duration `yaml:"insert_delay"` // gap between delete and insert on override
		CloseGrace       time.Duration `yaml:"close_grace"`  // wait after the last operation before closing
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
		UserAgent        string        `yaml:"user_agent"`
		AcceptLanguage   string        `yaml:"accept_language"`
	}

	// LockConfig serializes pushes to the same note
	LockConfig struct {
		Type  string        `yaml:"type"` // memory or redis
		TTL   time.Duration `yaml:"ttl"`
		Wait  time.Duration `yaml:"wait"` // how long a push waits for a busy note
		Redis RedisConfig   `yaml:"redis"`
	}

	// EventsConfig selects where note push events are published
	EventsConfig struct {
		Type  string      `yaml:"type"` // noop, redis or kafka
		Redis RedisConfig `yaml:"redis"`
		Kafka KafkaConfig `yaml:"kafka"`
	}

	// RedisConfig represents a Redis connection
	RedisConfig struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"` // key prefix for locks
		Stream   string `yaml:"stream"` // stream name for events
		MaxLen   int64  `yaml:"max_len"`
	}

	// KafkaConfig represents a Kafka producer
	KafkaConfig struct {
		Brokers  []string `yaml:"brokers"`
		Topic    string   `yaml:"topic"`
		ClientID string   `yaml:"client_id"`
	}
)

// Timing defaults seeded before decoding, so an explicit zero in the file is kept
const (
	DefaultInsertDelay = 100 * time.Millisecond
	DefaultCloseGrace  = time.Second
)

func (c *HedgeDocConfig) applyDefaults() {
	if c.Server == "" {
		c.Server = "localhost:3001"
	}
	if c.Scheme == "" {
		c.Scheme = "https"
	}
	if c.Deadline <= 0 {
		c.Deadline = 15 * time.Second
	}
	if c.InsertDelay < 0 {
		c.InsertDelay = DefaultInsertDelay
	}
	if c.CloseGrace < 0 {
		c.CloseGrace = DefaultCloseGrace
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
}

func (c *LockConfig) applyDefaults() {
	if c.Type == "" {
		c.Type = "memory"
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	if c.Wait < 0 {
		c.Wait = 0
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "contentd:lock:"
	}
}

func (c *EventsConfig) applyDefaults() {
	if c.Type == "" {
		c.Type = "noop"
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "contentd:note-pushed"
	}
	if c.Redis.MaxLen == 0 {
		c.Redis.MaxLen = 1000
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "contentd.note-pushed"
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "contentd"
	}
}
