// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
package handler

import (
	myredis "contract_chat_server/internal/dao/redis"
	"contract_chat_server/internal/service/chat"
)

// Handlers 聚合所有 Handler 实例
// Router 层通过此结构访问各个 Handler
type Handlers struct {
	Ws     *WsHandler
	Online *OnlineHandler
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(server chat.EventHandler, opts chat.WsOptions, cache myredis.CacheService) *Handlers {
	return &Handlers{
		Ws:     NewWsHandler(server, opts),
		Online: NewOnlineHandler(cache),
	}
}
