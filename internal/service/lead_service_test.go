package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qudao-go/internal/model"
	"qudao-go/internal/repository"
	"qudao-go/pkg/tasks"
)

type leadFixture struct {
	userRepo    repository.UserRepository
	chatLogRepo repository.ChatLogRepository
	svc         LeadService
	promoter    *model.User
	outsider    *model.User
	lead        *model.User
}

func newLeadFixture(t *testing.T) *leadFixture {
	t.Helper()
	db := newTestDB(t)
	f := &leadFixture{
		userRepo:    repository.NewUserRepository(db),
		chatLogRepo: repository.NewChatLogRepository(db),
	}
	f.svc = NewLeadService(f.userRepo, f.chatLogRepo)

	f.promoter = seedUser(t, f.userRepo, &model.User{ID: 40, RoleCode: model.RolePromoter, Status: model.StatusNormal, Mobile: "13800000040", Nickname: "小推", RelationPath: "0/11/20/30/"})
	f.outsider = seedUser(t, f.userRepo, &model.User{ID: 41, RoleCode: model.RolePromoter, Status: model.StatusNormal, Mobile: "13800000041", RelationPath: "0/11/21/"})
	f.lead = seedUser(t, f.userRepo, &model.User{ID: 50, RoleCode: model.RoleCustomer, Status: model.StatusNormal, Mobile: "13600000001", RelationPath: "0/11/20/30/40/", LeadStatus: model.LeadNew})
	return f
}

func TestAddFollowUp_AutoTransition(t *testing.T) {
	f := newLeadFixture(t)

	// 待跟进的线索收到首条人工跟进后自动流转为跟进中
	got, err := f.svc.AddFollowUp(f.promoter, f.lead.ID, "电话已接通，约了到店", nil)
	require.NoError(t, err)
	assert.Equal(t, model.LeadFollowing, got.LeadStatus)
	require.Len(t, got.FollowUpHistory, 1)
	assert.Equal(t, "小推", got.FollowUpHistory[0].Operator)
	assert.Equal(t, "电话已接通，约了到店", got.FollowUpHistory[0].Note)

	// 再次跟进不再改变状态，历史按时间正序追加到末尾
	got, err = f.svc.AddFollowUp(f.promoter, f.lead.ID, "到店看了样品", nil)
	require.NoError(t, err)
	assert.Equal(t, model.LeadFollowing, got.LeadStatus)
	require.Len(t, got.FollowUpHistory, 2)
	assert.Equal(t, "到店看了样品", got.FollowUpHistory[1].Note)

	// 落库内容与返回一致
	stored, err := f.userRepo.FindByID(f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadFollowing, stored.LeadStatus)
	require.Len(t, stored.FollowUpHistory, 2)
	assert.Equal(t, "电话已接通，约了到店", stored.FollowUpHistory[0].Note)
}

func TestAddFollowUp_ExplicitStatus(t *testing.T) {
	f := newLeadFixture(t)

	// 显式动作 + 空备注时回填动作标签
	deposit := model.LeadDeposit
	got, err := f.svc.AddFollowUp(f.promoter, f.lead.ID, "", &deposit)
	require.NoError(t, err)
	assert.Equal(t, model.LeadDeposit, got.LeadStatus)
	require.Len(t, got.FollowUpHistory, 1)
	assert.Equal(t, "已付定金", got.FollowUpHistory[0].Note)

	invalid := model.LeadInvalid
	got, err = f.svc.AddFollowUp(f.promoter, f.lead.ID, "", &invalid)
	require.NoError(t, err)
	assert.Equal(t, model.LeadInvalid, got.LeadStatus)
	require.Len(t, got.FollowUpHistory, 2)
	assert.Equal(t, "标记线索为无效", got.FollowUpHistory[1].Note)
}

func TestAddFollowUp_Validation(t *testing.T) {
	f := newLeadFixture(t)

	// 既没有备注也没有动作
	_, err := f.svc.AddFollowUp(f.promoter, f.lead.ID, "   ", nil)
	assert.ErrorIs(t, err, ErrValidation)

	// 旁系推广员无权跟进别人的线索
	_, err = f.svc.AddFollowUp(f.outsider, f.lead.ID, "想挖一下", nil)
	assert.ErrorIs(t, err, ErrForbidden)

	// 目标不是线索账号
	_, err = f.svc.AddFollowUp(f.promoter, f.outsider.ID, "跟进", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.AddFollowUp(f.promoter, 9999, "跟进", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddFollowUp_OperatorNameFallback(t *testing.T) {
	f := newLeadFixture(t)
	// 无昵称的后台账号用用户名落记录
	operator := seedUser(t, f.userRepo, &model.User{ID: 12, RoleCode: model.RoleAdmin, Status: model.StatusNormal, Mobile: "13900000012", Username: "ops01", RelationPath: "0/"})

	got, err := f.svc.AddFollowUp(operator, f.lead.ID, "后台代跟进", nil)
	require.NoError(t, err)
	require.Len(t, got.FollowUpHistory, 1)
	assert.Equal(t, "ops01", got.FollowUpHistory[0].Operator)
}

func TestGetChatHistory(t *testing.T) {
	f := newLeadFixture(t)
	require.NoError(t, f.chatLogRepo.Create(&model.ChatLog{UserID: f.lead.ID, SessionID: "s1", SenderRole: model.ChatSenderUser, Content: "想了解一下价格"}))
	require.NoError(t, f.chatLogRepo.Create(&model.ChatLog{UserID: f.lead.ID, SessionID: "s1", SenderRole: model.ChatSenderAI, Content: "这是报价单"}))

	logs, err := f.svc.GetChatHistory(f.promoter, f.lead.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "想了解一下价格", logs[0].Content)

	_, err = f.svc.GetChatHistory(f.outsider, f.lead.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestProcessChatLogMessage(t *testing.T) {
	f := newLeadFixture(t)
	ctx := context.Background()

	err := f.svc.Process(ctx, tasks.ChatLogMessage{
		UserID: f.lead.ID, SessionID: "s1", SenderRole: model.ChatSenderAI,
		Content: "您好，我是智能顾问", IntentScoreSnap: 72,
	})
	require.NoError(t, err)

	// 未知的发送方角色归一为 system
	err = f.svc.Process(ctx, tasks.ChatLogMessage{UserID: f.lead.ID, SessionID: "s1", SenderRole: "alien", Content: "x"})
	require.NoError(t, err)

	logs, err := f.chatLogRepo.FindByUserID(f.lead.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.ChatSenderAI, logs[0].SenderRole)
	assert.Equal(t, 72, logs[0].IntentScoreSnap)
	assert.Equal(t, model.ChatSenderSystem, logs[1].SenderRole)

	// 缺 user_id 直接拒绝
	err = f.svc.Process(ctx, tasks.ChatLogMessage{SessionID: "s1", Content: "x"})
	assert.ErrorIs(t, err, ErrValidation)
}
