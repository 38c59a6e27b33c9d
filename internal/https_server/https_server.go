// Package https_server 提供 HTTP/HTTPS 服务器的初始化和配置
// 负责创建 Gin 引擎实例并配置中间件和路由
package https_server

import (
	"contract_chat_server/internal/config"
	"contract_chat_server/internal/handler"
	"contract_chat_server/internal/infrastructure/logger"
	"contract_chat_server/internal/infrastructure/middleware"
	"contract_chat_server/internal/router"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Init 创建 Gin 引擎并注册中间件和路由
// 配置顺序：日志和恢复中间件 -> CORS -> 可选 TLS 重定向 -> 业务路由
func Init(conf *config.MainConfig, handlers *handler.Handlers) *gin.Engine {
	if conf.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // 生产环境应指定具体域名
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	// 由 Nginx 处理 SSL 时关闭 forceTLS
	if conf.ForceTLS {
		engine.Use(middleware.TlsHandler(conf.Host, conf.Port, conf.Mode == "dev"))
	}

	router.NewRouter(handlers).RegisterRoutes(engine)
	return engine
}
