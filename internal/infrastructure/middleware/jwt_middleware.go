package middleware

import (
	"net/http"
	"strings"

	"contract_chat_server/pkg/errorx"
	"contract_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

// ContextUserID 认证通过后存入 gin.Context 的用户 ID 键
const ContextUserID = "user_id"

// JWTAuth JWT 认证中间件
// 优先读取 Authorization: Bearer，WebSocket 握手无法带 Header 时使用 ?token=
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "请先登录",
			})
			return
		}

		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "Token 已过期或无效，请重新登录",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}
