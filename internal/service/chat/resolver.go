package chat

import (
	"context"

	"go.uber.org/zap"
)

// MembershipStore 群成员关系查询
type MembershipStore interface {
	GroupMembers
	FindGroupUuidsByUser(ctx context.Context, userUuid string) ([]string, error)
}

// Resolver 认证成功后加载用户所在群组并订阅对应房间
// 每条连接只解析一次，会话期间群成员变化要等重连后生效
type Resolver struct {
	store MembershipStore
	rooms *Rooms
}

// NewResolver 创建 Resolver
func NewResolver(store MembershipStore, rooms *Rooms) *Resolver {
	return &Resolver{store: store, rooms: rooms}
}

// ResolveAndJoin 返回已加入的群组 ID
// 查询失败时保持已认证状态，不加入任何房间，只记录日志
func (r *Resolver) ResolveAndJoin(ctx context.Context, userId string, t Transport) []string {
	groupIds, err := r.store.FindGroupUuidsByUser(ctx, userId)
	if err != nil {
		zap.L().Error("load group membership failed",
			zap.String("user_id", userId),
			zap.String("transport_id", t.ID()),
			zap.Error(err),
		)
		return nil
	}
	for _, groupId := range groupIds {
		r.rooms.Join(RoomName(groupId), t)
	}
	zap.L().Debug("joined group rooms", zap.String("user_id", userId), zap.Strings("groups", groupIds))
	return groupIds
}
