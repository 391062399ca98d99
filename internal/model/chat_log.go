// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 聊天记录发送方角色。
const (
	ChatSenderUser   = "USER"
	ChatSenderAI     = "AI"
	ChatSenderSystem = "SYSTEM"
)

// ChatLog 对应于数据库中的 'chat_logs' 表。
// 记录由外部 AI 侧产生并经消息队列灌入，本服务只读展示，不做修改。
type ChatLog struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	SessionID       string    `gorm:"column:session_id;type:varchar(64)" json:"session_id"`
	SenderRole      string    `gorm:"column:sender_role;type:varchar(16);not null" json:"sender_role"`
	Content         string    `gorm:"type:text" json:"content"`
	IsVoiceCall     int       `gorm:"column:is_voice_call;type:tinyint;not null;default:0" json:"is_voice_call"`
	IntentScoreSnap int       `gorm:"column:intent_score_snap;not null;default:0" json:"intent_score_snap"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatLog) TableName() string {
	return "chat_logs"
}
