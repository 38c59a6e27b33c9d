package chat

import (
	"context"
	"encoding/json"
	"time"

	myredis "contract_chat_server/internal/dao/redis"
	"contract_chat_server/internal/model"
	"contract_chat_server/pkg/constants"
	"contract_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// UserStore 用户表查询
type UserStore interface {
	FindByUuidOrNickname(ctx context.Context, token string) (*model.UserInfo, error)
}

// 缓存中表示"用户不存在"的占位值
const directoryMiss = "-"

// CachedDirectory 带 Redis 读穿缓存的用户目录
// 缓存不可用时直接查库
type CachedDirectory struct {
	store UserStore
	cache myredis.CacheService
	ttl   time.Duration
}

// NewCachedDirectory cache 为 nil 时不使用缓存
func NewCachedDirectory(store UserStore, cache myredis.CacheService) *CachedDirectory {
	return &CachedDirectory{
		store: store,
		cache: cache,
		ttl:   constants.DIRECTORY_CACHE_MINUTES * time.Minute,
	}
}

type directoryEntry struct {
	UserId   string `json:"user_id"`
	Username string `json:"username"`
}

func (d *CachedDirectory) LookupByUsernameOrId(ctx context.Context, token string) (Mention, bool, error) {
	key := constants.DIRECTORY_CACHE_PREFIX + token

	if d.cache != nil {
		cached, err := d.cache.Get(ctx, key)
		if err != nil {
			zap.L().Warn("directory cache get failed", zap.String("key", key), zap.Error(err))
		} else if cached == directoryMiss {
			return Mention{}, false, nil
		} else if cached != "" {
			var entry directoryEntry
			if err := json.Unmarshal([]byte(cached), &entry); err == nil {
				return Mention{UserId: entry.UserId, Username: entry.Username}, true, nil
			}
		}
	}

	user, err := d.store.FindByUuidOrNickname(ctx, token)
	if err != nil {
		if errorx.IsNotFound(err) {
			d.remember(ctx, key, directoryMiss)
			return Mention{}, false, nil
		}
		return Mention{}, false, err
	}

	m := Mention{UserId: user.Uuid, Username: user.Nickname}
	if data, err := json.Marshal(directoryEntry{UserId: m.UserId, Username: m.Username}); err == nil {
		d.remember(ctx, key, string(data))
	}
	return m, true, nil
}

func (d *CachedDirectory) remember(ctx context.Context, key, value string) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Set(ctx, key, value, d.ttl); err != nil {
		zap.L().Warn("directory cache set failed", zap.String("key", key), zap.Error(err))
	}
}

var _ UserDirectory = (*CachedDirectory)(nil)
