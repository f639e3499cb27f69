package model

import (
	"time"
)

// 消息发送方
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

type Chat struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:100;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func (Chat) TableName() string {
	return "chats"
}

type ChatMessage struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ChatID    int64     `gorm:"not null;index" json:"chat_id"`
	Sender    string    `gorm:"size:10;not null" json:"sender"` // user, bot
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
