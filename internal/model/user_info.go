// Package model 定义数据库实体模型
// 本文件定义用户信息模型，消息核心只读取 uuid 和昵称
package model

import (
	"gorm.io/gorm"
)

// UserInfo 用户信息模型
// 对应数据库 user_info 表，由外部的用户 CRUD 服务维护
type UserInfo struct {
	gorm.Model

	// Uuid 用户唯一标识
	Uuid string `gorm:"column:uuid;uniqueIndex;type:varchar(32);comment:用户唯一id"`

	// Nickname 用户昵称，@ 提及按昵称精确匹配
	Nickname string `gorm:"column:nickname;index;type:varchar(64);not null;comment:昵称"`

	// Status 账号状态，0=正常, 1=禁用
	Status int8 `gorm:"column:status;index;not null;default:0;comment:状态，0.正常，1.禁用"`
}

// TableName 指定表名
func (UserInfo) TableName() string {
	return "user_info"
}
