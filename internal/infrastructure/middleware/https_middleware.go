package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// TlsHandler 将 HTTP 请求重定向到 HTTPS
// dev 模式下 secure 不做重定向
func TlsHandler(host string, port int, isDev bool) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:   true,
		SSLHost:       host + ":" + strconv.Itoa(port),
		IsDevelopment: isDev,
	})

	return func(c *gin.Context) {
		// 发生重定向时 Process 也会返回 error
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			zap.L().Debug("TLS redirect", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Abort()
			return
		}
		c.Next()
	}
}
