package request

// AuthenticateRequest WebSocket authenticate 事件载荷
// data 也可以直接是 token 字符串
type AuthenticateRequest struct {
	Token string `json:"token" binding:"required"`
}

// PrivateMessageRequest 单聊消息
type PrivateMessageRequest struct {
	ReceiverId     string `json:"receiverId" binding:"required,max=64"`
	MessageContent string `json:"messageContent"`
}

// GroupMessageRequest 群聊消息
type GroupMessageRequest struct {
	GroupId        string `json:"groupId" binding:"required,max=64"`
	MessageContent string `json:"messageContent"`
}

// AnalyzeChatRequest 会话总结请求
// chatType 为 group 时 chatId 是群组 ID，为 direct 时是对方用户 ID
type AnalyzeChatRequest struct {
	ChatId   string `json:"chatId" binding:"required,max=64"`
	ChatType string `json:"chatType" binding:"required,oneof=direct group"`
}
