// Package mysql 提供数据访问层的初始化
// 负责建立 MySQL 连接、自动迁移表结构、初始化 Repository 层
package mysql

import (
	"fmt"

	"contract_chat_server/internal/config"
	"contract_chat_server/internal/dao/mysql/repository"
	"contract_chat_server/internal/model"

	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init 根据配置建立 MySQL 连接并返回 Repository 集合
func Init(conf *config.MysqlConfig) (*repository.Repositories, error) {
	// 格式：user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		conf.User,
		conf.Password,
		conf.Host,
		conf.Port,
		conf.DatabaseName,
	)
	return Open(mysqldriver.Open(dsn))
}

// Open 使用任意 GORM 方言打开数据库并迁移表结构
// 测试中传入 sqlite 方言
func Open(dialector gorm.Dialector) (*repository.Repositories, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// AutoMigrate 不会删除已有字段或数据
	if err = db.AutoMigrate(
		&model.UserInfo{},
		&model.GroupMember{},
		&model.Message{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return repository.NewRepositories(db), nil
}
