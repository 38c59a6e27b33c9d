// Package model 定义数据库实体模型
// 本文件定义消息模型，用于存储单聊、群聊以及 AI 回复消息
package model

import (
	"gorm.io/gorm"
)

// 消息作用域
const (
	ScopeDirect = "direct" // 单聊
	ScopeGroup  = "group"  // 群聊
)

// MessageTags 消息标注，序列化为 JSON 存入 tags 列
type MessageTags struct {
	Mentions []MessageMention `json:"mentions"`
	Special  []string         `json:"special"`
	Hashtags []string         `json:"hashtags"`
}

// MessageMention 被 @ 的用户
type MessageMention struct {
	UserId   string `json:"user_id"`
	Username string `json:"username"`
}

// Message 消息模型
// 对应数据库 message 表
type Message struct {
	gorm.Model

	// Uuid 消息唯一标识，雪花算法生成
	Uuid int64 `gorm:"column:uuid;uniqueIndex;type:bigint;not null;comment:消息雪花ID"`

	// ConversationId 会话键
	// 群聊为群组 UUID，单聊为两个用户 UUID 按字典序以 "_" 连接
	ConversationId string `gorm:"column:conversation_id;index;type:varchar(64);not null;comment:会话键"`

	// Scope 作用域：direct / group
	Scope string `gorm:"column:scope;type:varchar(10);not null;comment:作用域"`

	// SendId 发送者 UUID，AI 回复为保留的 AI 身份
	SendId string `gorm:"column:send_id;index;type:varchar(32);not null;comment:发送者uuid"`

	// SendName 发送者昵称，冗余存储，拼接 AI 上下文时直接使用
	SendName string `gorm:"column:send_name;type:varchar(64);not null;comment:发送者昵称"`

	// ReceiveId 接收者 UUID（单聊）或群组 UUID（群聊）
	ReceiveId string `gorm:"column:receive_id;index;type:varchar(32);not null;comment:接受者uuid"`

	// Content 消息文本内容
	Content string `gorm:"column:content;type:TEXT;comment:消息内容"`

	// Tags 解析出的 @ 提及、指令和话题
	Tags MessageTags `gorm:"column:tags;serializer:json;type:TEXT;comment:消息标注"`

	// IsAIResponse 是否为 AI 生成的回复
	IsAIResponse bool `gorm:"column:is_ai_response;not null;default:false;comment:是否AI回复"`

	// IsError 是否为 AI 失败时生成的提示消息
	IsError bool `gorm:"column:is_error;not null;default:false;comment:是否错误提示"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "message"
}

// DirectConversationId 生成单聊会话键，与双方顺序无关
func DirectConversationId(userOneId, userTwoId string) string {
	if userOneId > userTwoId {
		userOneId, userTwoId = userTwoId, userOneId
	}
	return userOneId + "_" + userTwoId
}
