// Package tasks 定义了经消息队列传递的任务/消息结构。
package tasks

// ChatLogMessage 是外部 AI 侧在会话结束后发送的聊天记录消息，
// 消费后写入 chat_logs 表，本服务对其只读。
type ChatLogMessage struct {
	UserID          uint   `json:"user_id"`
	SessionID       string `json:"session_id"`
	SenderRole      string `json:"sender_role"`
	Content         string `json:"content"`
	IsVoiceCall     int    `json:"is_voice_call"`
	IntentScoreSnap int    `json:"intent_score_snap"`
}
