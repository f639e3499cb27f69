package dto

import "time"

// CreateChatRequest 新建会话，标题为空时自动生成
type CreateChatRequest struct {
	Title string `json:"title,omitempty" binding:"omitempty,max=100"`
}

// ChatItem 会话
type ChatItem struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// AddMessageRequest 追加消息
type AddMessageRequest struct {
	Sender string `json:"sender" binding:"required,oneof=user bot"`
	Text   string `json:"text" binding:"required,max=2000"`
}

// MessageItem 消息
type MessageItem struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatbotRequest 机器人对话，user_saved 表示用户消息已由前端保存
type ChatbotRequest struct {
	ChatID    int64  `json:"chat_id" binding:"required"`
	Message   string `json:"message" binding:"required,max=2000"`
	UserSaved bool   `json:"user_saved"`
}

// ChatbotResponse 机器人回复
type ChatbotResponse struct {
	Reply  string `json:"reply"`
	Source string `json:"source"` // local, provider, fallback
}
