// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"gorm.io/gorm"

	"qudao-go/internal/model"
)

// ChatLogRepository 接口定义了聊天记录的持久化操作。
// 记录由外部 AI 侧经消息队列写入，本服务对其只增不改。
type ChatLogRepository interface {
	Create(chatLog *model.ChatLog) error
	FindByUserID(userID uint) ([]model.ChatLog, error)
}

type chatLogRepository struct {
	db *gorm.DB
}

// NewChatLogRepository 创建一个新的 ChatLogRepository 实例。
func NewChatLogRepository(db *gorm.DB) ChatLogRepository {
	return &chatLogRepository{db: db}
}

// Create 追加一条聊天记录。
func (r *chatLogRepository) Create(chatLog *model.ChatLog) error {
	return r.db.Create(chatLog).Error
}

// FindByUserID 按时间正序返回某个客户的全部聊天记录。
func (r *chatLogRepository) FindByUserID(userID uint) ([]model.ChatLog, error) {
	var logs []model.ChatLog
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&logs).Error
	return logs, err
}
