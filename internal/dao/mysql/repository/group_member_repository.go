// Package repository 提供数据访问层的具体实现
// 本文件实现 GroupMemberRepository 接口，处理群成员相关的数据库操作
package repository

import (
	"context"

	"contract_chat_server/internal/model"

	"gorm.io/gorm"
)

// groupMemberRepository GroupMemberRepository 接口的实现
type groupMemberRepository struct {
	db *gorm.DB
}

// NewGroupMemberRepository 创建 GroupMemberRepository 实例
func NewGroupMemberRepository(db *gorm.DB) GroupMemberRepository {
	return &groupMemberRepository{db: db}
}

// FindGroupUuidsByUser 根据用户UUID查找加入的所有群组
// Distinct 去重，避免重复入群记录导致重复订阅
func (r *groupMemberRepository) FindGroupUuidsByUser(ctx context.Context, userUuid string) ([]string, error) {
	var groupUuids []string
	if err := r.db.WithContext(ctx).Model(&model.GroupMember{}).
		Distinct("group_uuid").
		Where("user_uuid = ?", userUuid).
		Order("group_uuid ASC").
		Pluck("group_uuid", &groupUuids).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询用户所在群 user_uuid=%s", userUuid)
	}
	return groupUuids, nil
}

// IsMember 检查用户是否在群中
func (r *groupMemberRepository) IsMember(ctx context.Context, groupUuid, userUuid string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_uuid = ? AND user_uuid = ?", groupUuid, userUuid).
		Count(&count).Error; err != nil {
		return false, wrapDBErrorf(err, "查询群成员 group_uuid=%s user_uuid=%s", groupUuid, userUuid)
	}
	return count > 0, nil
}

// Create 添加群成员
func (r *groupMemberRepository) Create(ctx context.Context, member *model.GroupMember) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return wrapDBError(err, "创建群成员")
	}
	return nil
}
