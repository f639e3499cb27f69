package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultChannel = "billing_events"
)

// 事件类型
const (
	EventSubscribed  = "subscription_created"
	EventCancelled   = "subscription_cancelled"
	EventRenewed     = "subscription_renewed"
	EventPlanChanged = "plan_changed"
)

// 事件类型对应的提示
var EventMessages = map[string]string{
	EventSubscribed:  "Subscription activated",
	EventCancelled:   "Subscription cancelled",
	EventRenewed:     "Subscription renewed",
	EventPlanChanged: "Plan changed",
}

// Event 账单事件，推送给订阅所属用户
type Event struct {
	Type           string    `json:"type"`
	UserID         int64     `json:"user_id"`
	SubscriptionID int64     `json:"subscription_id"`
	PlanName       string    `json:"plan_name,omitempty"`
	Amount         string    `json:"amount,omitempty"`
	InvoiceNumber  string    `json:"invoice_number,omitempty"`
	Message        string    `json:"message,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher Redis 发布者
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher 创建发布者，channel 为空时使用默认频道
func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

// Publish 发布事件
func (p *Publisher) Publish(ctx context.Context, event *Event) error {
	if event.Message == "" {
		event.Message = EventMessages[event.Type]
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.client.Publish(ctx, p.channel, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client  *redis.Client
	channel string
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client, channel string) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Subscriber{client: client, channel: channel}
}

// Subscribe 订阅事件，阻塞直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*Event)) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// 等待订阅确认
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
