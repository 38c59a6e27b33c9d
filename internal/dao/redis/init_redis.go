// Package redis 提供 Redis 缓存操作的封装
// 使用 github.com/redis/go-redis/v9 作为底层客户端
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"contract_chat_server/internal/config"

	"github.com/redis/go-redis/v9"
)

// Init 初始化 Redis 连接并启动异步任务 Worker
// 启动时 Ping 一次，连接失败直接返回错误
func Init(conf *config.RedisConfig) (*RedisCache, error) {
	addr := conf.Host + ":" + strconv.Itoa(conf.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: conf.Password,
		DB:       conf.Db,
		// 最小空闲连接与 Worker 数量匹配
		PoolSize:     50,
		MinIdleConns: conf.WorkerNum,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return NewRedisCache(client, conf.WorkerNum, conf.TaskBuffer), nil
}
