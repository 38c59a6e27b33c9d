// Package repository 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
// 所有 Repository 接口在此文件定义，具体实现在各自的文件中
package repository

import (
	"context"

	"contract_chat_server/internal/model"

	"gorm.io/gorm"
)

// ==================== Repository 接口定义 ====================

// UserRepository 用户数据访问接口
// 消息核心只读，用户的增删改由外部服务负责
type UserRepository interface {
	// FindByUuidOrNickname 按 UUID 或昵称精确查找正常状态的用户，UUID 优先
	FindByUuidOrNickname(ctx context.Context, token string) (*model.UserInfo, error)
	// Create 创建用户
	Create(ctx context.Context, user *model.UserInfo) error
}

// GroupMemberRepository 群成员数据访问接口
type GroupMemberRepository interface {
	// FindGroupUuidsByUser 获取用户加入的全部群组 UUID
	FindGroupUuidsByUser(ctx context.Context, userUuid string) ([]string, error)
	// IsMember 判断用户是否在群中，用于过滤群聊提及通知
	IsMember(ctx context.Context, groupUuid, userUuid string) (bool, error)
	// Create 添加群成员
	Create(ctx context.Context, member *model.GroupMember) error
}

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	// Create 插入单条消息，Uuid 为空时自动生成雪花 ID
	Create(ctx context.Context, message *model.Message) error
	// FindRecentByConversation 获取会话中 beforeUuid 之前的最近 limit 条消息，按时间正序返回
	// beforeUuid 为 0 时不做上界限制
	FindRecentByConversation(ctx context.Context, conversationId string, beforeUuid int64, limit int) ([]model.Message, error)
}

// ==================== Repository 聚合 ====================

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过此结构访问数据层
type Repositories struct {
	db          *gorm.DB
	User        UserRepository
	GroupMember GroupMemberRepository
	Message     MessageRepository
}

// NewRepositories 创建所有 Repository 实例
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:          db,
		User:        NewUserRepository(db),
		GroupMember: NewGroupMemberRepository(db),
		Message:     NewMessageRepository(db),
	}
}

// Close 关闭底层连接池
func (r *Repositories) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
