//go:build integration

package broker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumpipe/internal/config"
	"forumpipe/internal/logger"
	"forumpipe/internal/testinfra"
)

func TestKafka_PerKeyOrdering(t *testing.T) {
	const topic = "post-updated"
	brokers := testinfra.Kafka(t, 3, topic)

	cfg := config.KafkaConfig{
		Brokers: brokers,
		Consumer: config.ConsumerConfig{
			GroupID: "ordering-test",
			Workers: 2,
		},
	}

	producer := NewKafkaProducer(cfg, "ordering-test", logger.NopLogger(), WithSynchronousWrites())
	defer producer.Close()

	ctx := context.Background()
	keys := []string{"1", "2", "3"}
	for seq := 0; seq < 5; seq++ {
		for _, key := range keys {
			require.NoError(t, producer.Publish(ctx, Message{
				Topic: topic,
				Key:   []byte(key),
				Value: []byte(fmt.Sprintf("%s-%d", key, seq)),
			}))
		}
	}

	var (
		mu   sync.Mutex
		seen = map[string][]string{}
		n    int
		done = make(chan struct{})
	)
	handler := NewHandler("ordering", func(m Message) (Message, error) { return m, nil },
		func(_ context.Context, m Message) error {
			mu.Lock()
			defer mu.Unlock()
			seen[string(m.Key)] = append(seen[string(m.Key)], string(m.Value))
			n++
			if n == len(keys)*5 {
				close(done)
			}
			return nil
		})

	consumer := NewKafkaConsumer(cfg, logger.NopLogger())
	consumeCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- consumer.Consume(consumeCtx, []string{topic}, handler)
	}()

	select {
	case <-done:
	case <-time.After(60 * time.Second):
		t.Fatal("timed out waiting for messages")
	}
	cancel()
	require.NoError(t, <-errCh)
	require.NoError(t, consumer.Close())

	mu.Lock()
	defer mu.Unlock()
	for _, key := range keys {
		want := make([]string, 0, 5)
		for seq := 0; seq < 5; seq++ {
			want = append(want, fmt.Sprintf("%s-%d", key, seq))
		}
		assert.Equal(t, want, seen[key], "key %s", key)
	}
}
