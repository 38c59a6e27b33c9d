package chat

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrTransportClosed 连接已关闭
var ErrTransportClosed = errors.New("transport closed")

// ErrSendBufferFull 出站队列已满，消息被丢弃
var ErrSendBufferFull = errors.New("send buffer full")

// Transport 一条与客户端之间的双向连接
type Transport interface {
	// ID 连接唯一标识
	ID() string
	// UserID 已认证的用户 ID，未认证时为空
	UserID() string
	// Bind 认证成功后绑定用户
	Bind(userId string)
	// Emit 将事件放入出站队列，不阻塞
	Emit(event string, payload any) error
	// Close 关闭连接，可重复调用
	Close() error
}

// EventHandler 处理单条连接上的事件
// 同一连接的事件按到达顺序串行调用
type EventHandler interface {
	HandleEvent(ctx context.Context, t Transport, event string, data json.RawMessage)
	OnClose(t Transport)
}

// Frame WebSocket 文本帧格式
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
