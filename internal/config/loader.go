package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"forumpipe/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")

	viper.SetDefault("broker.type", "kafka")
	viper.SetDefault("broker.kafka.topics.post_created", constants.TopicPostCreated)
	viper.SetDefault("broker.kafka.topics.post_updated", constants.TopicPostUpdated)
	viper.SetDefault("broker.kafka.topics.post_deleted", constants.TopicPostDeleted)
	viper.SetDefault("broker.kafka.topics.comment_created", constants.TopicCommentCreated)
	viper.SetDefault("broker.kafka.topics.posts_cdc", constants.TopicPostsCDC)
	viper.SetDefault("broker.kafka.producer.max_attempts", constants.KafkaMaxAttempts)
	viper.SetDefault("broker.kafka.producer.write_timeout", constants.KafkaWriteTimeout)
	viper.SetDefault("broker.kafka.producer.batch_timeout", constants.KafkaBatchTimeout)
	viper.SetDefault("broker.kafka.consumer.workers", 1)
	viper.SetDefault("broker.kafka.consumer.retry.max_attempts", 1)
	viper.SetDefault("broker.kafka.consumer.retry.initial_interval", "1s")
	viper.SetDefault("broker.kafka.consumer.retry.max_interval", "30s")
	viper.SetDefault("broker.kafka.consumer.retry.multiplier", 2.0)

	viper.SetDefault("cache.post_ttl", constants.DefaultPostTTL)
	viper.SetDefault("post_client.timeout", constants.DefaultHTTPTimeout)

	viper.SetDefault("notification.store", constants.NotificationStorePostgres)
	viper.SetDefault("notification.email.moderator_email", constants.DefaultModeratorEmail)
	viper.SetDefault("notification.email.admin_email", constants.DefaultAdminEmail)
	viper.SetDefault("notification.email.smtp_port", 587)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

func bindEnvVariables() {
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.client_id", "BROKER_KAFKA_CLIENT_ID")
	viper.BindEnv("broker.kafka.consumer.group_id", "BROKER_KAFKA_CONSUMER_GROUP_ID")
	viper.BindEnv("broker.kafka.consumer.dlq_topic", "BROKER_KAFKA_CONSUMER_DLQ_TOPIC")
	viper.BindEnv("broker.kafka.topics.posts_cdc", "BROKER_KAFKA_TOPICS_POSTS_CDC")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("post_client.base_url", "POST_CLIENT_BASE_URL")

	viper.BindEnv("notification.store", "NOTIFICATION_STORE")
	viper.BindEnv("notification.email.smtp_host", "NOTIFICATION_EMAIL_SMTP_HOST")
	viper.BindEnv("notification.email.username", "NOTIFICATION_EMAIL_USERNAME")
	viper.BindEnv("notification.email.password", "NOTIFICATION_EMAIL_PASSWORD")

	viper.BindEnv("auth.enabled", "AUTH_ENABLED")
	viper.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}
