// Package handler 提供 HTTP 请求处理器
// 本文件处理在线用户查询
package handler

import (
	"context"
	"sort"
	"time"

	myredis "contract_chat_server/internal/dao/redis"
	"contract_chat_server/internal/dto/request"
	"contract_chat_server/internal/dto/respond"
	"contract_chat_server/pkg/constants"
	"contract_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// OnlineHandler 在线用户查询
type OnlineHandler struct {
	cache myredis.CacheService
}

// NewOnlineHandler cache 为 nil 时接口返回服务繁忙
func NewOnlineHandler(cache myredis.CacheService) *OnlineHandler {
	return &OnlineHandler{cache: cache}
}

// GetOnlineUsers 获取在线用户 ID 列表
// GET /chat/online?limit=
// 响应: respond.OnlineUsersRespond，total 为截断前的在线人数
func (h *OnlineHandler) GetOnlineUsers(c *gin.Context) {
	var req request.OnlineUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if h.cache == nil {
		HandleError(c, errorx.ErrServerBusy)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	users, err := h.cache.GetSetMembers(ctx, constants.ONLINE_USERS_KEY)
	if err != nil {
		HandleError(c, err)
		return
	}
	sort.Strings(users)
	if users == nil {
		users = []string{}
	}
	total := len(users)
	if req.Limit > 0 && total > req.Limit {
		users = users[:req.Limit]
	}
	HandleSuccess(c, respond.OnlineUsersRespond{Users: users, Total: total})
}
