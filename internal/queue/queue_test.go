package queue

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Unique connection name per test to avoid global adapter caching
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func TestQueue_PublishAndConsume(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := New(adapter, Config{
		Name:              "test:tank-alerts",
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	alert := model.TankAlert{
		ID:        "evt-1",
		Severity:  model.AlertSeverityLow,
		LevelG:    40_000,
		CapacityG: 500_000,
		Percent:   8,
		CreatedAt: time.Now(),
	}

	_, err = q.PublishJSON(ctx, alert, map[string]string{"severity": string(model.AlertSeverityLow)})
	require.NoError(t, err)

	received := make(chan *Message, 1)
	err = q.Consume(func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		var got model.TankAlert
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, int64(40_000), got.LevelG)
		assert.Equal(t, model.AlertSeverityLow, got.Severity)
		assert.Equal(t, string(model.AlertSeverityLow), msg.Metadata["severity"])
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	require.NoError(t, q.Stop(time.Second))
}

func TestQueue_AckRemovesFromPending(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := New(adapter, Config{
		Name:              "test:ack",
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		PollInterval:      50 * time.Millisecond,
		VisibilityTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	defer q.Stop(time.Second)

	_, err = q.Publish(context.Background(), []byte(`{"level_g":1}`), nil)
	require.NoError(t, err)

	done := make(chan struct{}, 1)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		done <- struct{}{}
		return nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	// Acked messages must not stay pending.
	assert.Eventually(t, func() bool {
		_, pending, _, err := q.Len()
		return err == nil && pending == 0
	}, 2*time.Second, 50*time.Millisecond)
}

func TestQueue_FailedHandlerLeavesMessagePending(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := New(adapter, Config{
		Name:              "test:retry",
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        5,
		VisibilityTimeout: 30 * time.Second,
		PollInterval:      50 * time.Millisecond,
	})
	require.NoError(t, err)
	defer q.Stop(time.Second)

	_, err = q.Publish(context.Background(), []byte("boom"), nil)
	require.NoError(t, err)

	var calls int32
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		atomic.AddInt32(&calls, 1)
		return assert.AnError
	}))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 1
	}, 2*time.Second, 50*time.Millisecond)

	_, pending, _, err := q.Len()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestQueue_MetadataRoundTrip(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := New(adapter, Config{
		Name:          "test:meta",
		ConsumerGroup: "test-group",
		ConsumerName:  "test-consumer",
		PollInterval:  50 * time.Millisecond,
	})
	require.NoError(t, err)
	defer q.Stop(time.Second)

	_, err = q.Publish(context.Background(), []byte("x"), map[string]string{
		"severity": "critical",
		"source":   "fill-commit",
	})
	require.NoError(t, err)

	received := make(chan *Message, 1)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	}))

	select {
	case msg := <-received:
		assert.Equal(t, "critical", msg.Metadata["severity"])
		assert.Equal(t, "fill-commit", msg.Metadata["source"])
		assert.Equal(t, []byte("x"), msg.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}
}

func TestQueue_RequiresName(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	_, err := New(adapter, Config{})
	assert.Error(t, err)
}
