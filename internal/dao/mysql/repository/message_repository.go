package repository

import (
	"context"

	"contract_chat_server/internal/model"
	"contract_chat_server/pkg/util/snowflake"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create 创建消息
func (r *messageRepository) Create(ctx context.Context, message *model.Message) error {
	if message.Uuid == 0 {
		message.Uuid = snowflake.GenerateID()
	}
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return wrapDBErrorf(err, "创建消息 conversation_id=%s", message.ConversationId)
	}
	return nil
}

// FindRecentByConversation 按会话倒序取最近消息后翻转为正序
func (r *messageRepository) FindRecentByConversation(ctx context.Context, conversationId string, beforeUuid int64, limit int) ([]model.Message, error) {
	var messages []model.Message
	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationId)
	if beforeUuid > 0 {
		query = query.Where("uuid < ?", beforeUuid)
	}
	if err := query.Order("uuid DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话消息 conversation_id=%s", conversationId)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
