package chat

import (
	"context"
	"fmt"

	"contract_chat_server/internal/model"
	"contract_chat_server/pkg/errorx"
)

// MessageStore 消息表读写
type MessageStore interface {
	Create(ctx context.Context, message *model.Message) error
	FindRecentByConversation(ctx context.Context, conversationId string, beforeUuid int64, limit int) ([]model.Message, error)
}

// Persistence 消息持久化网关
type Persistence interface {
	// InsertDirectMessage 单行插入单聊消息，返回消息 ID 并回填信封
	InsertDirectMessage(ctx context.Context, env *Envelope) (int64, error)
	// InsertGroupMessage 单行插入群聊消息，返回消息 ID 并回填信封
	InsertGroupMessage(ctx context.Context, env *Envelope) (int64, error)
	// RecentHistory 会话中 beforeId 之前最近 limit 条消息，按时间正序
	RecentHistory(ctx context.Context, conversationId string, beforeId int64, limit int) ([]HistoryLine, error)
}

// HistoryLine 拼接 AI 上下文用的一条历史消息
type HistoryLine struct {
	SenderName string
	Content    string
}

// String 格式为 "{senderName}: {content}"
func (h HistoryLine) String() string {
	return h.SenderName + ": " + h.Content
}

// Gateway 基于 MessageStore 的持久化网关
type Gateway struct {
	store MessageStore
}

// NewGateway 创建持久化网关
func NewGateway(store MessageStore) *Gateway {
	return &Gateway{store: store}
}

func (g *Gateway) InsertDirectMessage(ctx context.Context, env *Envelope) (int64, error) {
	if env.Scope != ScopeDirect || env.ReceiverId == "" {
		return 0, errorx.Newf(errorx.CodeInvalidParam, "not a direct message: scope=%s receiver=%q", env.Scope, env.ReceiverId)
	}
	return g.insert(ctx, env, env.ReceiverId)
}

func (g *Gateway) InsertGroupMessage(ctx context.Context, env *Envelope) (int64, error) {
	if env.Scope != ScopeGroup || env.GroupId == "" {
		return 0, errorx.Newf(errorx.CodeInvalidParam, "not a group message: scope=%s group=%q", env.Scope, env.GroupId)
	}
	return g.insert(ctx, env, env.GroupId)
}

func (g *Gateway) insert(ctx context.Context, env *Envelope, receiveId string) (int64, error) {
	msg := &model.Message{
		ConversationId: env.ConversationId(),
		Scope:          string(env.Scope),
		SendId:         env.SenderId,
		SendName:       env.SenderName,
		ReceiveId:      receiveId,
		Content:        env.Content,
		Tags:           env.Tags.toModel(),
		IsAIResponse:   env.IsAIResponse,
		IsError:        env.IsError,
	}
	if err := g.store.Create(ctx, msg); err != nil {
		return 0, fmt.Errorf("insert %s message: %w", env.Scope, err)
	}
	env.PersistedId = msg.Uuid
	env.CreatedAt = msg.CreatedAt
	return msg.Uuid, nil
}

func (g *Gateway) RecentHistory(ctx context.Context, conversationId string, beforeId int64, limit int) ([]HistoryLine, error) {
	messages, err := g.store.FindRecentByConversation(ctx, conversationId, beforeId, limit)
	if err != nil {
		return nil, err
	}
	lines := make([]HistoryLine, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, HistoryLine{SenderName: m.SendName, Content: m.Content})
	}
	return lines, nil
}

var _ Persistence = (*Gateway)(nil)
