package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestEventMessages(t *testing.T) {
	for _, typ := range []string{EventSubscribed, EventCancelled, EventRenewed, EventPlanChanged} {
		assert.NotEmpty(t, EventMessages[typ], typ)
	}
}

func TestEvent_JSON(t *testing.T) {
	event := &Event{
		Type:           EventSubscribed,
		UserID:         1,
		SubscriptionID: 2,
		Amount:         "719.20",
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "subscription_created", m["type"])
	assert.Equal(t, float64(2), m["subscription_id"])
	_, hasPlan := m["plan_name"]
	assert.False(t, hasPlan, "empty plan name should be omitted")
}

func TestNewPublisher_DefaultChannel(t *testing.T) {
	client := setupTestRedis(t)

	assert.Equal(t, DefaultChannel, NewPublisher(client, "").channel)
	assert.Equal(t, "custom", NewSubscriber(client, "custom").channel)
}

func TestPublisherSubscriber(t *testing.T) {
	client := setupTestRedis(t)

	publisher := NewPublisher(client, "test_events")
	subscriber := NewSubscriber(client, "test_events")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *Event, 1)
	go func() {
		subscriber.Subscribe(ctx, func(e *Event) {
			received <- e
		})
	}()

	// 等待订阅建立
	require.Eventually(t, func() bool {
		n, _ := client.PubSubNumSub(ctx, "test_events").Result()
		return n["test_events"] > 0
	}, 2*time.Second, 20*time.Millisecond)

	err := publisher.Publish(ctx, &Event{
		Type:           EventCancelled,
		UserID:         7,
		SubscriptionID: 42,
	})
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, int64(7), e.UserID)
		assert.Equal(t, int64(42), e.SubscriptionID)
		assert.Equal(t, EventMessages[EventCancelled], e.Message)
		assert.False(t, e.OccurredAt.IsZero())
	case <-ctx.Done():
		t.Fatal("Timeout waiting for event")
	}
}

func TestSubscriber_StopsOnCancel(t *testing.T) {
	client := setupTestRedis(t)
	subscriber := NewSubscriber(client, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- subscriber.Subscribe(ctx, func(*Event) {})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
