// Package router 提供 HTTP 路由注册
// 本文件定义 WebSocket 和聊天相关的路由
package router

import (
	"contract_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes 注册 WebSocket 路由
// 认证在连接建立后通过 authenticate 事件完成
// 请求示例: ws://host:port/wss
func (rt *Router) RegisterWebSocketRoutes(rg *gin.RouterGroup) {
	rg.GET("/wss", rt.handlers.Ws.WsLoginHandler)
}

// RegisterChatRoutes 注册聊天查询路由（需要认证）
func (rt *Router) RegisterChatRoutes(rg *gin.RouterGroup) {
	rg.Use(middleware.JWTAuth())
	{
		rg.GET("/online", rt.handlers.Online.GetOnlineUsers)
	}
}
