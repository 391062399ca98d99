package database

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"qudao-go/internal/model"
	"qudao-go/pkg/log"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 数据库连接
func InitMySQL(dsn string) {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		// 可以在这里添加 GORM 的配置
	})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间

	log.Info("MySQL database connected successfully")
}

// Migrate 同步表结构。业务不变量（路径、去重）全部由应用层保证，
// 这里只负责建表。
func Migrate() {
	err := DB.AutoMigrate(
		&model.User{},
		&model.PosterTemplate{},
		&model.ChatLog{},
	)
	if err != nil {
		log.Fatal("failed to migrate database", err)
	}
	log.Info("数据库表结构同步完成")
}
