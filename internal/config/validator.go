package config

import (
	"fmt"
	"strings"

	"forumpipe/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	validators := []func(*Config) error{
		func(c *Config) error { return validateServer(c.Server) },
		func(c *Config) error { return validateBroker(c.Broker) },
		func(c *Config) error { return validateDatabase(c.Database) },
		func(c *Config) error { return validateCache(c.Cache) },
		func(c *Config) error { return validateNotification(c.Notification) },
		func(c *Config) error { return validateAuth(c.Auth) },
		func(c *Config) error { return validateRateLimit(c.RateLimit) },
	}

	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeout <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "":
		return &ValidationError{
			Field:   "broker.type",
			Message: "broker type is required",
		}
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	topics := map[string]string{
		"post_created":    cfg.Topics.PostCreated,
		"post_updated":    cfg.Topics.PostUpdated,
		"post_deleted":    cfg.Topics.PostDeleted,
		"comment_created": cfg.Topics.CommentCreated,
		"posts_cdc":       cfg.Topics.PostsCDC,
	}
	for name, topic := range topics {
		if topic == "" {
			return &ValidationError{
				Field:   "broker.kafka.topics." + name,
				Message: "topic name cannot be empty",
			}
		}
	}

	if cfg.Producer.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.producer.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Consumer.Workers < 0 {
		return &ValidationError{
			Field:   "broker.kafka.consumer.workers",
			Message: "workers must be non-negative",
		}
	}

	return validateRetry(cfg.Consumer.Retry)
}

func validateRetry(cfg RetryConfig) error {
	if cfg.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.consumer.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	// A single attempt means the skip policy; the backoff settings are unused.
	if cfg.MaxAttempts <= 1 {
		return nil
	}

	if cfg.InitialInterval <= 0 {
		return &ValidationError{
			Field:   "broker.kafka.consumer.retry.initial_interval",
			Message: "initial_interval must be positive when retries are enabled",
		}
	}

	if cfg.MaxInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.consumer.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier <= 0 {
		return &ValidationError{
			Field:   "broker.kafka.consumer.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	return nil
}

func validateCache(cfg CacheConfig) error {
	if cfg.PostTTL < 0 {
		return &ValidationError{
			Field:   "cache.post_ttl",
			Message: "TTL must be non-negative",
		}
	}
	return nil
}

func validateNotification(cfg NotificationConfig) error {
	switch strings.ToLower(cfg.Store) {
	case "", constants.NotificationStorePostgres, constants.NotificationStoreMongoDB:
	default:
		return &ValidationError{
			Field:   "notification.store",
			Message: fmt.Sprintf("invalid store: %s (valid: postgres, mongodb)", cfg.Store),
		}
	}

	if cfg.Email.Enabled && cfg.Email.SMTPHost == "" {
		return &ValidationError{
			Field:   "notification.email.smtp_host",
			Message: "SMTP host is required when email is enabled",
		}
	}

	return nil
}

func validateAuth(cfg AuthConfig) error {
	if cfg.Enabled && len(cfg.JWTSecret) < 16 {
		return &ValidationError{
			Field:   "auth.jwt_secret",
			Message: "JWT secret must be at least 16 characters when auth is enabled",
		}
	}
	return nil
}

func validateRateLimit(cfg RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.RPS <= 0 {
		return &ValidationError{
			Field:   "rate_limit.rps",
			Message: "rps must be positive",
		}
	}
	if cfg.Burst <= 0 {
		return &ValidationError{
			Field:   "rate_limit.burst",
			Message: "burst must be positive",
		}
	}
	return nil
}
