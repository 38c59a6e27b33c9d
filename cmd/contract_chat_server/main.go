package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"contract_chat_server/internal/config"
	dao "contract_chat_server/internal/dao/mysql"
	myredis "contract_chat_server/internal/dao/redis"
	"contract_chat_server/internal/handler"
	"contract_chat_server/internal/https_server"
	"contract_chat_server/internal/infrastructure/logger"
	mq "contract_chat_server/internal/infrastructure/mq"
	"contract_chat_server/internal/service/chat"
	"contract_chat_server/pkg/util/jwt"
	"contract_chat_server/pkg/util/snowflake"
	"contract_chat_server/pkg/util/validate"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode, conf.MainConfig.AppName); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zap.L().Sync() }()
	zap.L().Info("日志初始化成功")

	// 3. 初始化工具组件
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)
	snowflake.Init(conf.SnowflakeConfig.MachineID)
	if err := validate.InitTrans("zh"); err != nil {
		zap.L().Fatal("init validator translator failed", zap.Error(err))
	}

	// 4. 初始化数据库
	repos, err := dao.Init(&conf.MysqlConfig)
	if err != nil {
		zap.L().Fatal("数据库初始化失败", zap.Error(err))
	}
	defer func() { _ = repos.Close() }()
	zap.L().Info("数据库初始化成功")

	// 5. 初始化 Redis
	cache, err := myredis.Init(&conf.RedisConfig)
	if err != nil {
		zap.L().Fatal("Redis 初始化失败", zap.Error(err))
	}
	defer cache.Close()
	zap.L().Info("Redis 初始化成功")

	// 6. 组装聊天服务
	ioTimeout := time.Duration(conf.MainConfig.IOTimeout) * time.Second
	registry := chat.NewMemoryRegistry()
	rooms := chat.NewRooms()
	local := chat.NewLocalFanout(registry, rooms)

	var fanout chat.Fanout = local
	var kafkaFanout *mq.KafkaFanout
	if conf.KafkaConfig.MessageMode == "kafka" {
		nodeId := strconv.FormatInt(conf.SnowflakeConfig.MachineID, 10)
		kafkaService, err := mq.Init(&conf.KafkaConfig, nodeId)
		if err != nil {
			zap.L().Fatal("Kafka 初始化失败", zap.Error(err))
		}
		defer kafkaService.Close()
		kafkaFanout = mq.NewKafkaFanout(kafkaService.Writer, kafkaService.Reader, local)
		fanout = kafkaFanout
	}
	zap.L().Info("投递模式", zap.String("message_mode", conf.KafkaConfig.MessageMode))

	persistence := chat.NewGateway(repos.Message)
	bridge := chat.NewBridge(chat.BridgeConfig{
		Identity:        chat.Identity{UserId: conf.AIConfig.BotUserID, Name: conf.AIConfig.BotName},
		Timeout:         time.Duration(conf.AIConfig.TimeoutSeconds) * time.Second,
		HistoryLimit:    conf.AIConfig.HistoryLimit,
		DefaultQuestion: conf.AIConfig.DefaultQuestion,
		IOTimeout:       ioTimeout,
	}, chat.NewHTTPCompleter(conf.AIConfig.BaseURL, nil), persistence, chat.NewDispatcher(fanout, repos.GroupMember))

	server := chat.NewChatServer(chat.Deps{
		Registry:    registry,
		Rooms:       rooms,
		Verifier:    chat.JWTVerifier{},
		Membership:  repos.GroupMember,
		Directory:   chat.NewCachedDirectory(repos.User, cache),
		Persistence: persistence,
		Fanout:      fanout,
		Bridge:      bridge,
		Presence:    cache,
		IOTimeout:   ioTimeout,
	})
	zap.L().Info("ChatServer 初始化成功")

	// 7. 初始化 HTTP 服务器
	handlers := handler.NewHandlers(server, chat.WsOptions{
		SendBuffer:     conf.WsConfig.SendBuffer,
		RateLimit:      conf.WsConfig.RateLimit,
		RateBurst:      conf.WsConfig.RateBurst,
		ReadLimitBytes: conf.WsConfig.ReadLimitBytes,
	}, cache)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: https_server.Init(&conf.MainConfig, handlers),
	}

	// 8. 启动服务，收到信号后优雅退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("HTTP 服务启动", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if kafkaFanout != nil {
		g.Go(func() error {
			return kafkaFanout.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("关闭服务器...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("http shutdown", zap.Error(err))
		}
		if err := bridge.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("pending ai replies abandoned", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("服务异常退出", zap.Error(err))
		os.Exit(1)
	}
	zap.L().Info("服务器已关闭")
}
