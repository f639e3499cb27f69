package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/repository"
)

// 回复来源
const (
	ReplyLocal    = "local"
	ReplyProvider = "provider"
	ReplyFallback = "fallback"
)

const (
	greetingReply = "Hello! How can I help you today? Ask me to suggest subscription plans."
	fallbackReply = "Thanks for your message. Here are some quick tips:\n" +
		"- Check your current plan in My Subscriptions.\n" +
		"- Visit Offers to apply discounts.\n" +
		"- Use Account Settings to update your profile."
	systemPrompt = "You are a helpful assistant for an internet subscription app. " +
		"Use the provided context to recommend 1-2 plans. " +
		"Be concise and actionable. If a discount applies, mention it."
)

var (
	greetingPattern = regexp.MustCompile(`\b(hi|hello|hey|hlo)\b`)
	suggestPattern  = regexp.MustCompile(`\b(suggest|recommend|plan|plans|subscription|offer|offers|upgrade|change plan)\b`)
)

// ChatProvider 外部文本生成服务
type ChatProvider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type ChatService struct {
	chatRepo  *repository.ChatRepository
	subRepo   *repository.SubscriptionRepository
	plans     *PlanService
	discounts *DiscountService
	provider  ChatProvider
	cfg       *config.Config
	now       func() time.Time
}

func NewChatService(
	chatRepo *repository.ChatRepository,
	subRepo *repository.SubscriptionRepository,
	plans *PlanService,
	discounts *DiscountService,
	provider ChatProvider,
	cfg *config.Config,
) *ChatService {
	return &ChatService{
		chatRepo:  chatRepo,
		subRepo:   subRepo,
		plans:     plans,
		discounts: discounts,
		provider:  provider,
		cfg:       cfg,
		now:       time.Now,
	}
}

// List 用户的会话
func (s *ChatService) List(actor Actor) ([]dto.ChatItem, error) {
	chats, err := s.chatRepo.ListByUser(actor.UserID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ChatItem, 0, len(chats))
	for _, c := range chats {
		items = append(items, dto.ChatItem{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt})
	}
	return items, nil
}

// Create 新建会话
func (s *ChatService) Create(actor Actor, req *dto.CreateChatRequest) (*dto.ChatItem, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Chat " + s.now().Format("150405")
	}

	chat := &model.Chat{UserID: actor.UserID, Title: title}
	if err := s.chatRepo.Create(chat); err != nil {
		return nil, err
	}
	return &dto.ChatItem{ID: chat.ID, Title: chat.Title, CreatedAt: chat.CreatedAt}, nil
}

// Messages 会话消息，按时间升序
func (s *ChatService) Messages(actor Actor, chatID int64) ([]dto.MessageItem, error) {
	if _, err := s.ownedChat(actor, chatID); err != nil {
		return nil, err
	}

	msgs, err := s.chatRepo.ListMessages(chatID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.MessageItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, dto.MessageItem{ID: m.ID, Sender: m.Sender, Text: m.Text, CreatedAt: m.CreatedAt})
	}
	return items, nil
}

// AddMessage 追加一条消息
func (s *ChatService) AddMessage(actor Actor, chatID int64, req *dto.AddMessageRequest) (*dto.MessageItem, error) {
	if _, err := s.ownedChat(actor, chatID); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	msg := &model.ChatMessage{ChatID: chatID, Sender: req.Sender, Text: text}
	if err := s.chatRepo.CreateMessage(msg); err != nil {
		return nil, err
	}
	return &dto.MessageItem{ID: msg.ID, Sender: msg.Sender, Text: msg.Text, CreatedAt: msg.CreatedAt}, nil
}

// Reply 生成机器人回复：问候与套餐建议本地处理，其余交给外部服务，
// 外部服务失败或超时时返回固定提示。用户消息与回复都会保存。
func (s *ChatService) Reply(ctx context.Context, actor Actor, req *dto.ChatbotRequest) (*dto.ChatbotResponse, error) {
	if _, err := s.ownedChat(actor, req.ChatID); err != nil {
		return nil, err
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrInvalidMessage
	}

	kb, err := s.knowledge(actor.UserID)
	if err != nil {
		return nil, err
	}

	resp := s.localReply(message, kb)
	if resp == nil {
		resp = s.providerReply(ctx, message, kb)
	}

	if !req.UserSaved {
		if err := s.chatRepo.CreateMessage(&model.ChatMessage{ChatID: req.ChatID, Sender: model.SenderUser, Text: message}); err != nil {
			return nil, err
		}
	}
	if err := s.chatRepo.CreateMessage(&model.ChatMessage{ChatID: req.ChatID, Sender: model.SenderBot, Text: resp.Reply}); err != nil {
		return nil, err
	}

	return resp, nil
}

// chatKnowledge 回复所需的套餐上下文
type chatKnowledge struct {
	current *model.Plan
	plans   []model.Plan // 按价格升序
	offers  []dto.DiscountItem
}

func (s *ChatService) knowledge(userID int64) (*chatKnowledge, error) {
	kb := &chatKnowledge{}

	subs, err := s.subRepo.ListActiveByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(subs) > 0 {
		kb.current = subs[0].Plan
	}

	if kb.plans, err = s.plans.ListActive(); err != nil {
		return nil, err
	}
	if kb.offers, err = s.discounts.Offers(); err != nil {
		return nil, err
	}
	return kb, nil
}

func (s *ChatService) localReply(message string, kb *chatKnowledge) *dto.ChatbotResponse {
	lower := strings.ToLower(message)

	if greetingPattern.MatchString(lower) && len(lower) <= 40 {
		return &dto.ChatbotResponse{Reply: greetingReply, Source: ReplyLocal}
	}

	if !suggestPattern.MatchString(lower) || len(kb.plans) == 0 {
		return nil
	}

	var picks []model.Plan
	if kb.current != nil {
		for i, p := range kb.plans {
			if p.ID == kb.current.ID && i+1 < len(kb.plans) {
				picks = append(picks, kb.plans[i+1])
				break
			}
		}
		picks = append(picks, kb.plans[0])
	} else {
		picks = kb.plans[:min(2, len(kb.plans))]
	}

	var sb strings.Builder
	sb.WriteString("Here are my plan suggestions:")
	for i := range picks {
		sb.WriteString("\n- " + s.planLine(&picks[i]))
	}
	if len(kb.offers) > 0 {
		d := kb.offers[0]
		fmt.Fprintf(&sb, "\nTip: %s (%s) - %s off.", d.Name, d.Code, d.Label)
	}

	return &dto.ChatbotResponse{Reply: sb.String(), Source: ReplyLocal}
}

func (s *ChatService) providerReply(ctx context.Context, message string, kb *chatKnowledge) *dto.ChatbotResponse {
	if s.provider == nil {
		return &dto.ChatbotResponse{Reply: fallbackReply, Source: ReplyFallback}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Chatbot.Timeout())
	defer cancel()

	prompt := "Context:\n" + s.contextText(kb) + "\n\n" +
		"User question: " + message + "\n\n" +
		"Return: 1-2 suggested plan(s) with price, brief reason, and any discount."

	reply, err := s.provider.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		log.WithError(err).Warn("chatbot: provider failed, using fallback reply")
		return &dto.ChatbotResponse{Reply: fallbackReply, Source: ReplyFallback}
	}
	if strings.TrimSpace(reply) == "" {
		log.Warn("chatbot: provider returned empty reply, using fallback reply")
		return &dto.ChatbotResponse{Reply: fallbackReply, Source: ReplyFallback}
	}
	return &dto.ChatbotResponse{Reply: reply, Source: ReplyProvider}
}

func (s *ChatService) contextText(kb *chatKnowledge) string {
	var sb strings.Builder

	sb.WriteString("Current Plan: ")
	if kb.current != nil {
		sb.WriteString(s.planLine(kb.current))
	} else {
		sb.WriteString("None")
	}

	sb.WriteString("\nAvailable Plans:")
	for i := range kb.plans {
		sb.WriteString("\n- " + s.planLine(&kb.plans[i]))
	}

	sb.WriteString("\nActive Discounts:")
	if len(kb.offers) == 0 {
		sb.WriteString("\n- None")
	}
	for _, d := range kb.offers {
		fmt.Fprintf(&sb, "\n- %s (%s): %s", d.Name, d.Code, d.Label)
	}
	return sb.String()
}

// planLine 如 "Pro Fiber: ₹899.00/mo, 500GB"
func (s *ChatService) planLine(p *model.Plan) string {
	return fmt.Sprintf("%s: %s%s/mo, %s", p.Name, s.cfg.Billing.CurrencySymbol, money(p.Price), quotaLabel(p))
}

func (s *ChatService) ownedChat(actor Actor, chatID int64) (*model.Chat, error) {
	chat, err := s.chatRepo.GetByID(chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	if chat.UserID != actor.UserID {
		return nil, ErrChatNotFound
	}
	return chat, nil
}
