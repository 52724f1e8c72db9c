package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
broker:
  kafka:
    brokers: ["localhost:9092"]
    consumer:
      group_id: notification-service-group
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "kafka", cfg.Broker.Type)
	assert.Equal(t, "post-created", cfg.Broker.Kafka.Topics.PostCreated)
	assert.Equal(t, "comment-created", cfg.Broker.Kafka.Topics.CommentCreated)
	assert.Equal(t, "dbserver1.public.posts", cfg.Broker.Kafka.Topics.PostsCDC)
	assert.Equal(t, 1, cfg.Broker.Kafka.Consumer.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Cache.PostTTL)
	assert.Equal(t, "postgres", cfg.Notification.Store)
	assert.Equal(t, "moderator@school.edu", cfg.Notification.Email.ModeratorEmail)
	assert.Equal(t, "admin@school.edu", cfg.Notification.Email.AdminEmail)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
broker:
  kafka:
    brokers: ["kafka-1:9092"]
`)
	t.Setenv("BROKER_KAFKA_BROKERS", "kafka-a:9092, kafka-b:9092")
	t.Setenv("SERVER_PORT", "9100")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-a:9092", "kafka-b:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateStatic(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080, ReadTimeout: time.Second, WriteTimeout: time.Second},
			Broker: BrokerConfig{
				Type: "kafka",
				Kafka: KafkaConfig{
					Brokers: []string{"localhost:9092"},
					Topics: TopicsConfig{
						PostCreated:    "post-created",
						PostUpdated:    "post-updated",
						PostDeleted:    "post-deleted",
						CommentCreated: "comment-created",
						PostsCDC:       "dbserver1.public.posts",
					},
					Consumer: ConsumerConfig{Retry: RetryConfig{MaxAttempts: 1}},
				},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "no brokers",
			mutate:  func(c *Config) { c.Broker.Kafka.Brokers = nil },
			wantErr: "broker.kafka.brokers",
		},
		{
			name:    "unknown broker",
			mutate:  func(c *Config) { c.Broker.Type = "rabbitmq" },
			wantErr: "broker.type",
		},
		{
			name: "retry enabled without interval",
			mutate: func(c *Config) {
				c.Broker.Kafka.Consumer.Retry = RetryConfig{MaxAttempts: 3, Multiplier: 2}
			},
			wantErr: "initial_interval",
		},
		{
			name:    "bad notification store",
			mutate:  func(c *Config) { c.Notification.Store = "cassandra" },
			wantErr: "notification.store",
		},
		{
			name:    "auth without secret",
			mutate:  func(c *Config) { c.Auth.Enabled = true },
			wantErr: "auth.jwt_secret",
		},
		{
			name:    "email without host",
			mutate:  func(c *Config) { c.Notification.Email.Enabled = true },
			wantErr: "smtp_host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateStatic(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
