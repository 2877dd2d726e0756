package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	var sb strings.Builder
	for i, err := range e {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("--> ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Validate checks the loaded configuration
func (c *ContentdConfig) Validate() error {
	var errs ValidationErrors

	switch c.Database.Type {
	case "sqlite", "mysql", "postgres":
	default:
		errs = append(errs, &ValidationError{Field: "database.type", Message: fmt.Sprintf("unsupported database type %q", c.Database.Type)})
	}
	if c.Database.Type != "sqlite" && c.Database.Host == "" {
		errs = append(errs, &ValidationError{Field: "database.host", Message: "required for " + c.Database.Type})
	}

	if c.HedgeDoc.Server == "" {
		errs = append(errs, &ValidationError{Field: "hedgedoc.server", Message: "required"})
	} else if strings.Contains(c.HedgeDoc.Server, "://") {
		errs = append(errs, &ValidationError{Field: "hedgedoc.server", Message: "must be host[:port] without a scheme"})
	}
	if c.HedgeDoc.Scheme != "http" && c.HedgeDoc.Scheme != "https" {
		errs = append(errs, &ValidationError{Field: "hedgedoc.scheme", Message: fmt.Sprintf("unsupported scheme %q", c.HedgeDoc.Scheme)})
	}

	switch c.Lock.Type {
	case "memory":
	case "redis":
		if c.Lock.Redis.Addr == "" {
			errs = append(errs, &ValidationError{Field: "lock.redis.addr", Message: "required for redis lock"})
		}
	default:
		errs = append(errs, &ValidationError{Field: "lock.type", Message: fmt.Sprintf("unsupported lock type %q", c.Lock.Type)})
	}

	switch c.Events.Type {
	case "noop":
	case "redis":
		if c.Events.Redis.Addr == "" {
			errs = append(errs, &ValidationError{Field: "events.redis.addr", Message: "required for redis events"})
		}
	case "kafka":
		if len(c.Events.Kafka.Brokers) == 0 {
			errs = append(errs, &ValidationError{Field: "events.kafka.brokers", Message: "at least one broker is required"})
		}
	default:
		errs = append(errs, &ValidationError{Field: "events.type", Message: fmt.Sprintf("unsupported events type %q", c.Events.Type)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
