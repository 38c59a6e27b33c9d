// Package chat 实现了聊天系统的核心服务层
// envelope.go
// 核心职责：定义消息信封、标签集合和事件名称
package chat

import (
	"time"

	"contract_chat_server/internal/dto/respond"
	"contract_chat_server/internal/model"
	"contract_chat_server/pkg/constants"
)

// Scope 消息作用域
type Scope string

const (
	ScopeDirect Scope = model.ScopeDirect
	ScopeGroup  Scope = model.ScopeGroup
)

// 客户端发来的事件
const (
	EventAuthenticate   = "authenticate"
	EventPrivateMessage = "privateMessage"
	EventGroupMessage   = "groupMessage"
	EventAnalyzeChat    = "analyzeChat"
	EventDisconnect     = "disconnect"
)

// 推送给客户端的事件
const (
	EventAuthenticated    = "authenticated"
	EventNewMessage       = "newMessage"
	EventNewGroupMessage  = "newGroupMessage"
	EventMessageSent      = "messageSent"
	EventMessageError     = "messageError"
	EventNotification     = "notification"
	EventAnalysisComplete = "analysisComplete"
	EventAnalysisError    = "analysisError"
)

// 特殊指令的规范化名称
const (
	SpecialAIRequest    = "ai_request"
	SpecialBroadcastAll = "broadcast_all"
	SpecialAIResponse   = "is_ai_response"
)

// Mention 被 @ 的用户
type Mention struct {
	UserId   string
	Username string
}

// TagSet 一条消息解析出的标签
type TagSet struct {
	Mentions []Mention
	Special  []string
	Hashtags []string
}

// Has 判断是否包含某个特殊指令
func (t TagSet) Has(special string) bool {
	for _, s := range t.Special {
		if s == special {
			return true
		}
	}
	return false
}

func (t TagSet) toModel() model.MessageTags {
	tags := model.MessageTags{
		Mentions: make([]model.MessageMention, 0, len(t.Mentions)),
		Special:  append([]string{}, t.Special...),
		Hashtags: append([]string{}, t.Hashtags...),
	}
	for _, m := range t.Mentions {
		tags.Mentions = append(tags.Mentions, model.MessageMention{UserId: m.UserId, Username: m.Username})
	}
	return tags
}

// Identity 发送者身份，AI 助手使用启动时注入的保留身份
type Identity struct {
	UserId string
	Name   string
}

// Envelope 消息信封
// PersistedId 为 0 表示消息未落库（AI 回复落库失败时的降级投递）
type Envelope struct {
	PersistedId int64
	SenderId    string
	SenderName  string
	Scope       Scope
	// ReceiverId 单聊接收者
	ReceiverId string
	// GroupId 群聊群组 ID
	GroupId string
	Content string
	Tags    TagSet
	// Thread 单聊会话的双方，为空时取发送者与接收者
	Thread       [2]string
	CreatedAt    time.Time
	IsAIResponse bool
	IsError      bool
}

// participants 单聊会话双方
func (e *Envelope) participants() (string, string) {
	if e.Thread[0] != "" && e.Thread[1] != "" {
		return e.Thread[0], e.Thread[1]
	}
	return e.SenderId, e.ReceiverId
}

// ConversationId 会话键，群聊为群组 ID，单聊与双方顺序无关
func (e *Envelope) ConversationId() string {
	if e.Scope == ScopeGroup {
		return e.GroupId
	}
	a, b := e.participants()
	return model.DirectConversationId(a, b)
}

// Payload 转换为推送给客户端的消息载荷
func (e *Envelope) Payload() respond.MessagePayload {
	return respond.MessagePayload{
		Id:           e.PersistedId,
		SenderId:     e.SenderId,
		SenderName:   e.SenderName,
		ReceiverId:   e.ReceiverId,
		GroupId:      e.GroupId,
		Content:      e.Content,
		Tags:         e.Tags.toModel(),
		IsAIResponse: e.IsAIResponse,
		IsError:      e.IsError,
		CreatedAt:    e.CreatedAt,
	}
}

// RoomName 群组对应的广播房间名
func RoomName(groupId string) string {
	return constants.GROUP_ROOM_PREFIX + groupId
}
