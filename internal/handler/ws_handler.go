// Package handler 提供 HTTP 请求处理器
// 本文件处理 WebSocket 连接的建立
package handler

import (
	"context"
	"net/http"

	"contract_chat_server/internal/service/chat"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WsHandler 升级 HTTP 连接并交给聊天服务器
type WsHandler struct {
	server   chat.EventHandler
	opts     chat.WsOptions
	upgrader websocket.Upgrader
}

// NewWsHandler 创建 WebSocket 处理器
func NewWsHandler(server chat.EventHandler, opts chat.WsOptions) *WsHandler {
	return &WsHandler{
		server: server,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			// 跨域由 CORS 中间件控制
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WsLoginHandler 升级为 WebSocket 连接
// GET /wss
// 连接建立后客户端需先发送 authenticate 事件
func (h *WsHandler) WsLoginHandler(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.String("remote", c.ClientIP()), zap.Error(err))
		return
	}
	wc := chat.NewWsConn(conn, h.opts)
	zap.L().Debug("websocket connected", zap.String("transport_id", wc.ID()), zap.String("remote", c.ClientIP()))
	// 请求返回后连接仍然存活，不能沿用请求的取消信号
	wc.Serve(context.WithoutCancel(c.Request.Context()), h.server)
}
