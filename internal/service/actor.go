package service

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/sub_go_server/internal/pkg/queue"
	"github.com/qs3c/sub_go_server/internal/repository"
)

var (
	ErrForbidden             = errors.New("permission denied")
	ErrUserNotFound          = errors.New("user not found")
	ErrPlanNotFound          = errors.New("plan not found")
	ErrPlanInactive          = errors.New("plan is not available")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrNoPaymentMethod       = errors.New("add a payment method before subscribing")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrInvalidPaymentDetails = errors.New("invalid payment details")
	ErrSamePlan              = errors.New("new plan must differ from the current plan")
	ErrDirectionMismatch     = errors.New("plan change direction does not match")
	ErrInvalidTransition     = errors.New("subscription status does not allow this change")
	ErrDiscountNotFound      = errors.New("discount not found")
	ErrDiscountCodeExists    = errors.New("discount code already exists")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidValidity       = errors.New("valid_until must be after valid_from")
	ErrChatNotFound          = errors.New("chat not found")
	ErrInvalidMessage        = errors.New("message must not be empty")
)

// Actor 当前调用者，由认证中间件根据令牌构造
type Actor struct {
	UserID   int64
	Username string
	Role     string
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// CanAccess 本人或管理员
func (a Actor) CanAccess(ownerID int64) bool {
	return a.IsAdmin() || a.UserID == ownerID
}

// EventPublisher 账单事件发布
type EventPublisher interface {
	Publish(ctx context.Context, event *pubsub.Event) error
}

// ReceiptQueue 回执任务队列
type ReceiptQueue interface {
	Push(ctx context.Context, job *queue.ReceiptJob) error
}

// ReceiptSigner 生成回执的临时下载地址
type ReceiptSigner interface {
	GetSignedURL(objectKey string, expireSeconds ...int64) (string, error)
}

// QueueInspector 查询队列积压
type QueueInspector interface {
	Length(ctx context.Context) (int64, error)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

func writeAudit(audit *repository.AuditRepository, actor Actor, action string) error {
	return audit.Create(&model.AuditLog{
		ActorID: actor.UserID,
		Actor:   actor.Username,
		Action:  action,
	})
}

// 事件推送失败不影响主流程
func publish(ctx context.Context, p EventPublisher, event *pubsub.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("type", event.Type).Warn("pubsub: publish event failed")
	}
}
