// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"qudao-go/internal/model"
	"qudao-go/internal/repository"
	"qudao-go/pkg/log"
	"qudao-go/pkg/tasks"
)

// LeadService 接口定义了单条线索上的操作：跟进记录、状态流转和聊天记录。
type LeadService interface {
	AddFollowUp(operator *model.User, leadID uint, note string, status *model.LeadStatus) (*model.User, error)
	GetChatHistory(caller *model.User, leadID uint) ([]model.ChatLog, error)
	// Process 实现 kafka 消费侧的 ChatLogProcessor，把外部 AI 侧产生的
	// 聊天记录落入 chat_logs 表。
	Process(ctx context.Context, msg tasks.ChatLogMessage) error
}

type leadService struct {
	userRepo    repository.UserRepository
	chatLogRepo repository.ChatLogRepository
}

// NewLeadService 创建一个新的 LeadService 实例。
func NewLeadService(userRepo repository.UserRepository, chatLogRepo repository.ChatLogRepository) LeadService {
	return &leadService{userRepo: userRepo, chatLogRepo: chatLogRepo}
}

// loadScopedLead 读取线索并校验其位于调用者子树内（超级管理员不受限）。
func (s *leadService) loadScopedLead(caller *model.User, leadID uint) (*model.User, error) {
	lead, err := s.userRepo.FindByID(leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 线索不存在", ErrNotFound)
		}
		return nil, err
	}
	if lead.RoleCode != model.RoleCustomer {
		return nil, fmt.Errorf("%w: 目标不是线索账号", ErrValidation)
	}
	if caller.RoleCode != model.RoleAdmin && !caller.IsDescendant(lead) {
		return nil, fmt.Errorf("%w: 该线索不在您的管辖范围内", ErrForbidden)
	}
	return lead, nil
}

// AddFollowUp 追加一条跟进记录，按时间正序排在历史末尾，并在同一次写入里
// 处理状态流转：
//   - 显式传入状态（定金/成交/无效等动作）则直接覆盖，备注为空时
//     回填动作的中文标签；
//   - 未传状态且线索还是"待跟进"，首条人工跟进自动流转为"跟进中"。
//
// 整个过程是无锁的读-改-写：并发提交同一线索时后写者整体覆盖先写者，
// 这是既有产品接受的行为，这里不做冲突检测。
func (s *leadService) AddFollowUp(operator *model.User, leadID uint, note string, status *model.LeadStatus) (*model.User, error) {
	lead, err := s.loadScopedLead(operator, leadID)
	if err != nil {
		return nil, err
	}

	note = strings.TrimSpace(note)
	if note == "" {
		if status == nil {
			return nil, fmt.Errorf("%w: 请填写跟进内容", ErrValidation)
		}
		if *status == model.LeadInvalid {
			note = "标记线索为无效"
		} else {
			note = (*status).Label()
		}
	}

	operatorName := operator.Nickname
	if operatorName == "" {
		operatorName = operator.Username
	}

	history := append(lead.FollowUpHistory, model.FollowUpRecord{
		Operator: operatorName,
		Time:     time.Now(),
		Note:     note,
	})

	nextStatus := lead.LeadStatus
	switch {
	case status != nil:
		nextStatus = *status
	case lead.LeadStatus == model.LeadNew:
		nextStatus = model.LeadFollowing
	}

	// 历史和状态放在同一次 UPDATE 里落库，失败时不会留下部分写入。
	err = s.userRepo.UpdateFields(leadID, map[string]interface{}{
		"follow_up_history": history,
		"lead_status":       nextStatus,
	})
	if err != nil {
		return nil, err
	}

	lead.FollowUpHistory = history
	lead.LeadStatus = nextStatus
	return lead, nil
}

// GetChatHistory 返回线索的 AI/人工聊天记录，按时间正序，只读透传。
func (s *leadService) GetChatHistory(caller *model.User, leadID uint) ([]model.ChatLog, error) {
	if _, err := s.loadScopedLead(caller, leadID); err != nil {
		return nil, err
	}
	return s.chatLogRepo.FindByUserID(leadID)
}

// Process 消费一条外部聊天记录消息并落库。
func (s *leadService) Process(ctx context.Context, msg tasks.ChatLogMessage) error {
	if msg.UserID == 0 {
		return fmt.Errorf("%w: 聊天记录缺少 user_id", ErrValidation)
	}
	senderRole := msg.SenderRole
	switch senderRole {
	case model.ChatSenderUser, model.ChatSenderAI, model.ChatSenderSystem:
	default:
		senderRole = model.ChatSenderSystem
	}
	chatLog := &model.ChatLog{
		UserID:          msg.UserID,
		SessionID:       msg.SessionID,
		SenderRole:      senderRole,
		Content:         msg.Content,
		IsVoiceCall:     msg.IsVoiceCall,
		IntentScoreSnap: msg.IntentScoreSnap,
	}
	if err := s.chatLogRepo.Create(chatLog); err != nil {
		return err
	}
	log.Infof("聊天记录已灌入: userID=%d, session=%s", msg.UserID, msg.SessionID)
	return nil
}
