package ws

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/qs3c/sub_go_server/internal/pkg/pubsub"
)

// EventSource 账单事件订阅，阻塞直到 ctx 取消
type EventSource interface {
	Subscribe(ctx context.Context, handler func(*pubsub.Event)) error
}

// ForwardEvent 把账单事件推送给事件所属用户
func (h *Hub) ForwardEvent(event *pubsub.Event) {
	if event == nil || event.UserID == 0 {
		return
	}
	if event.Message == "" {
		event.Message = pubsub.EventMessages[event.Type]
	}
	if err := h.SendToUser(event.UserID, &Message{Type: event.Type, Data: event}); err != nil {
		log.WithError(err).WithField("user_id", event.UserID).Warn("ws: forward event failed")
	}
}

// Bridge 持续把订阅到的事件转发到在线连接
func (h *Hub) Bridge(ctx context.Context, source EventSource) error {
	return source.Subscribe(ctx, h.ForwardEvent)
}
