package respond

import (
	"time"

	"contract_chat_server/internal/model"
)

// MessagePayload newMessage / newGroupMessage / messageSent 事件载荷
type MessagePayload struct {
	Id           int64             `json:"id"`
	SenderId     string            `json:"sender_id"`
	SenderName   string            `json:"sender_name"`
	ReceiverId   string            `json:"receiver_id,omitempty"`
	GroupId      string            `json:"group_id,omitempty"`
	Content      string            `json:"content"`
	Tags         model.MessageTags `json:"tags"`
	IsAIResponse bool              `json:"is_ai_response"`
	IsError      bool              `json:"is_error"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NotificationPayload notification 事件载荷
// Kind 为 mention 或 broadcast
type NotificationPayload struct {
	Kind       string `json:"kind"`
	MessageId  int64  `json:"message_id"`
	SenderId   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	GroupId    string `json:"group_id,omitempty"`
	Content    string `json:"content"`
}

// ErrorPayload messageError / analysisError 事件载荷
type ErrorPayload struct {
	Code     int    `json:"code"`
	Msg      string `json:"msg"`
	ChatId   string `json:"chatId,omitempty"`
	ChatType string `json:"chatType,omitempty"`
}

// AnalysisPayload analysisComplete 事件载荷
type AnalysisPayload struct {
	ChatId   string `json:"chatId"`
	ChatType string `json:"chatType"`
	Summary  string `json:"summary"`
}

// AuthenticatedPayload authenticated 事件载荷
type AuthenticatedPayload struct {
	UserId string   `json:"user_id"`
	Groups []string `json:"groups"`
}

// OnlineUsersRespond GET /chat/online 响应
type OnlineUsersRespond struct {
	Users []string `json:"users"`
	Total int      `json:"total"`
}
