package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(chat *model.Chat) error {
	return r.db.Create(chat).Error
}

func (r *ChatRepository) GetByID(id int64) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.Where("id = ?", id).First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepository) ListByUser(userID int64) ([]model.Chat, error) {
	var chats []model.Chat
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&chats).Error
	return chats, err
}

func (r *ChatRepository) CreateMessage(msg *model.ChatMessage) error {
	return r.db.Create(msg).Error
}

// ListMessages 按时间正序
func (r *ChatRepository) ListMessages(chatID int64) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.Where("chat_id = ?", chatID).Order("created_at ASC, id ASC").Find(&msgs).Error
	return msgs, err
}
