package repository

import (
	"context"
	"errors"

	"contract_chat_server/internal/model"

	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户 Repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByUuidOrNickname 先按 UUID 匹配，再按昵称匹配
// 禁用状态的用户不参与匹配
func (r *userRepository) FindByUuidOrNickname(ctx context.Context, token string) (*model.UserInfo, error) {
	var user model.UserInfo
	err := r.db.WithContext(ctx).Where("status = ? AND uuid = ?", 0, token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 昵称可能重复，取最早注册的用户
		err = r.db.WithContext(ctx).Where("status = ? AND nickname = ?", 0, token).Order("id ASC").First(&user).Error
	}
	if err != nil {
		return nil, wrapDBErrorf(err, "查询用户 token=%s", token)
	}
	return &user, nil
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, user *model.UserInfo) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return wrapDBError(err, "创建用户")
	}
	return nil
}
