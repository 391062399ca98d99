package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qudao-go/internal/model"
)

func TestEnsureRootAdmin(t *testing.T) {
	svc, userRepo := newTestAccountService(t)

	require.NoError(t, svc.EnsureRootAdmin("13900000000"))
	root, err := userRepo.FindByID(11)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, root.RoleCode)
	assert.Equal(t, model.StatusNormal, root.Status)
	assert.Equal(t, "0/", root.RelationPath)

	// 重复调用不报错也不覆盖
	require.NoError(t, svc.EnsureRootAdmin("13911111111"))
	root, err = userRepo.FindByID(11)
	require.NoError(t, err)
	assert.Equal(t, "13900000000", root.Mobile)
}

func TestRegisterViaQR_RoleInference(t *testing.T) {
	svc, _ := newTestAccountService(t)
	require.NoError(t, svc.EnsureRootAdmin("13900000000"))

	// 根管理员邀请 → 市场经理，待审核
	m1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000001", ParentID: 11, PosterType: 1})
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, m1.RoleCode)
	assert.Equal(t, model.StatusPending, m1.Status)
	assert.Equal(t, "0/11/", m1.RelationPath)
	assert.Equal(t, uint(11), m1.ParentID)

	// 经理 + 招募类海报 → 服务商，待审核
	a1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000002", ParentID: m1.ID, PosterType: 1})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAgent, a1.RoleCode)
	assert.Equal(t, model.StatusPending, a1.Status)
	assert.Equal(t, fmt.Sprintf("0/11/%d/", m1.ID), a1.RelationPath)
	assert.Equal(t, m1.ID, a1.ManagerID)

	// 服务商 + 招募类海报 → 推广员，待审核
	p1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000003", ParentID: a1.ID, PosterType: 0})
	require.NoError(t, err)
	assert.Equal(t, model.RolePromoter, p1.RoleCode)
	assert.Equal(t, model.StatusPending, p1.Status)
	assert.Equal(t, m1.ID, p1.ManagerID)
	assert.Equal(t, a1.ID, p1.OwnerAgentID)

	// 推广类海报 → 终端客户，直接生效
	c1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000004", ParentID: p1.ID, PosterType: 2, PosterID: 7})
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, c1.RoleCode)
	assert.Equal(t, model.StatusNormal, c1.Status)
	assert.Equal(t, model.LeadNew, c1.LeadStatus)
	assert.Equal(t, 60, c1.IntentScore)
	assert.Equal(t, uint(7), c1.SourcePosterID)
	// 归因指针整条链继承
	assert.Equal(t, m1.ID, c1.ManagerID)
	assert.Equal(t, a1.ID, c1.OwnerAgentID)
	assert.Equal(t, p1.ID, c1.SourcePromoterID)
	assert.Equal(t, fmt.Sprintf("0/11/%d/%d/%d/", m1.ID, a1.ID, p1.ID), c1.RelationPath)
}

func TestRegisterViaQR_Defaults(t *testing.T) {
	svc, _ := newTestAccountService(t)
	require.NoError(t, svc.EnsureRootAdmin("13900000000"))
	p := seedUserTree(t, svc)

	c, err := svc.RegisterViaQR(RegisterParams{Mobile: "13811112222", ParentID: p.ID, PosterType: 2})
	require.NoError(t, err)
	assert.Equal(t, "新用户_2222", c.Nickname)
	assert.Equal(t, "探测中...", c.CityName)
	assert.Equal(t, "待补充门店", c.StoreName)

	// 显式传入的资料不被默认值覆盖
	c2, err := svc.RegisterViaQR(RegisterParams{
		Mobile: "13811113333", ParentID: p.ID, PosterType: 2,
		Nickname: "老王", StoreName: "望京店", Region: "北京",
	})
	require.NoError(t, err)
	assert.Equal(t, "老王", c2.Nickname)
	assert.Equal(t, "望京店", c2.StoreName)
	assert.Equal(t, "北京", c2.CityName)
}

func TestRegisterViaQR_DuplicateMobile(t *testing.T) {
	svc, _ := newTestAccountService(t)
	require.NoError(t, svc.EnsureRootAdmin("13900000000"))

	m1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000001", ParentID: 11, PosterType: 1})
	require.NoError(t, err)

	_, err = svc.RegisterViaQR(RegisterParams{Mobile: "13800000001", ParentID: 11, PosterType: 1})
	assert.ErrorIs(t, err, ErrDuplicateMobile)

	// 被驳回的账号占用的手机号同样不允许重复注册
	admin, err2 := svc.CreateSuperAdmin("13999999999", "运营")
	require.NoError(t, err2)
	require.NoError(t, svc.RejectUser(admin, m1.ID, "资料不全"))
	_, err = svc.RegisterViaQR(RegisterParams{Mobile: "13800000001", ParentID: 11, PosterType: 1})
	assert.ErrorIs(t, err, ErrDuplicateMobile)
}

func TestRegisterViaQR_InvalidParent(t *testing.T) {
	svc, _ := newTestAccountService(t)
	_, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000001", ParentID: 999, PosterType: 1})
	assert.ErrorIs(t, err, ErrInvalidInviteSource)
}

func TestRegisterViaQR_VirtualRootFallback(t *testing.T) {
	// 根管理员尚未落库时，顶层邀请依旧可用
	svc, _ := newTestAccountService(t)
	m1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000001", ParentID: 11, PosterType: 1})
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, m1.RoleCode)
	assert.Equal(t, "0/11/", m1.RelationPath)
}

func TestAuditFlow(t *testing.T) {
	svc, userRepo := newTestAccountService(t)
	require.NoError(t, svc.EnsureRootAdmin("13900000000"))
	root, err := userRepo.FindByID(11)
	require.NoError(t, err)

	m1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000001", ParentID: 11, PosterType: 1})
	require.NoError(t, err)

	// 驳回必须给出原因
	err = svc.RejectUser(root, m1.ID, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.RejectUser(root, m1.ID, "资料不全"))
	got, err := userRepo.FindByID(m1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, got.Status)
	assert.Equal(t, "资料不全", got.RejectReason)

	// 审核通过后状态恢复正常，历史驳回原因被清空
	require.NoError(t, svc.ApproveUser(root, m1.ID))
	got, err = userRepo.FindByID(m1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNormal, got.Status)
	assert.Empty(t, got.RejectReason)
}

func TestAuditScope(t *testing.T) {
	svc, userRepo := newTestAccountService(t)
	require.NoError(t, svc.EnsureRootAdmin("13900000000"))

	m1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000001", ParentID: 11, PosterType: 1})
	require.NoError(t, err)
	m2, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000002", ParentID: 11, PosterType: 1})
	require.NoError(t, err)
	a1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000003", ParentID: m1.ID, PosterType: 1})
	require.NoError(t, err)

	// 旁系经理无权审核别人的下属
	err = svc.ApproveUser(m2, a1.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// 直属经理可以
	require.NoError(t, svc.ApproveUser(m1, a1.ID))
	got, err := userRepo.FindByID(a1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNormal, got.Status)

	// 不存在的目标
	err = svc.ApproveUser(m1, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpgradeUserByQR(t *testing.T) {
	svc, userRepo := newTestAccountService(t)
	require.NoError(t, svc.EnsureRootAdmin("13900000000"))

	m1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000001", ParentID: 11, PosterType: 1})
	require.NoError(t, err)
	c1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000004", ParentID: m1.ID, PosterType: 2})
	require.NoError(t, err)
	oldPath := c1.RelationPath

	upgraded, err := svc.UpgradeUserByQR(c1.ID, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAgent, upgraded.RoleCode)
	assert.Equal(t, model.StatusPending, upgraded.Status)
	assert.Equal(t, m1.ID, upgraded.ParentID)
	// 升级只重绑 parent_id，原有路径保持不动
	assert.Equal(t, oldPath, upgraded.RelationPath)

	// 待审核状态下不能重复申请
	_, err = svc.UpgradeUserByQR(c1.ID, 11)
	assert.ErrorIs(t, err, ErrValidation)

	// 非终端客户不能走升级
	_, err = svc.UpgradeUserByQR(m1.ID, 11)
	assert.ErrorIs(t, err, ErrValidation)

	got, err := userRepo.FindByID(c1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAgent, got.RoleCode)
}

func TestDeleteUser(t *testing.T) {
	svc, userRepo := newTestAccountService(t)
	require.NoError(t, svc.EnsureRootAdmin("13900000000"))
	root, err := userRepo.FindByID(11)
	require.NoError(t, err)

	m1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000001", ParentID: 11, PosterType: 1})
	require.NoError(t, err)
	c1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000002", ParentID: m1.ID, PosterType: 2})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(root, m1.ID))
	_, err = userRepo.FindByID(m1.ID)
	assert.Error(t, err)
	// 删除不做级联，下属仍然在库
	_, err = userRepo.FindByID(c1.ID)
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	svc, userRepo := newTestAccountService(t)
	require.NoError(t, svc.EnsureRootAdmin("13900000000"))
	m1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000001", ParentID: 11, PosterType: 1})
	require.NoError(t, err)

	nickname := "李经理"
	store := "朝阳旗舰店"
	require.NoError(t, svc.UpdateProfile(m1.ID, ProfileUpdate{Nickname: &nickname, StoreName: &store}))
	got, err := userRepo.FindByID(m1.ID)
	require.NoError(t, err)
	assert.Equal(t, "李经理", got.Nickname)
	assert.Equal(t, "朝阳旗舰店", got.StoreName)
	// 未传字段不动
	assert.Equal(t, "13800000001", got.Mobile)

	empty := ""
	assert.ErrorIs(t, svc.UpdateProfile(m1.ID, ProfileUpdate{Mobile: &empty}), ErrValidation)
	assert.ErrorIs(t, svc.UpdateProfile(m1.ID, ProfileUpdate{}), ErrValidation)
}

func TestUpdateProfile_DuplicateMobile(t *testing.T) {
	svc, userRepo := newTestAccountService(t)
	require.NoError(t, svc.EnsureRootAdmin("13900000000"))
	m1, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000001", ParentID: 11, PosterType: 1})
	require.NoError(t, err)
	m2, err := svc.RegisterViaQR(RegisterParams{Mobile: "13800000002", ParentID: 11, PosterType: 1})
	require.NoError(t, err)

	// 换号不允许占用其他账号的手机号
	taken := m1.Mobile
	err = svc.UpdateProfile(m2.ID, ProfileUpdate{Mobile: &taken})
	assert.ErrorIs(t, err, ErrDuplicateMobile)
	got, err := userRepo.FindByID(m2.ID)
	require.NoError(t, err)
	assert.Equal(t, "13800000002", got.Mobile)

	// 提交自己当前的手机号不算重复
	own := m2.Mobile
	require.NoError(t, svc.UpdateProfile(m2.ID, ProfileUpdate{Mobile: &own}))

	fresh := "13800000003"
	require.NoError(t, svc.UpdateProfile(m2.ID, ProfileUpdate{Mobile: &fresh}))
	got, err = userRepo.FindByID(m2.ID)
	require.NoError(t, err)
	assert.Equal(t, "13800000003", got.Mobile)
}

// seedUserTree 搭一条 经理→服务商→推广员 的链，返回末端推广员。
func seedUserTree(t *testing.T, svc AccountService) *model.User {
	t.Helper()
	m, err := svc.RegisterViaQR(RegisterParams{Mobile: "13700000001", ParentID: 11, PosterType: 1})
	require.NoError(t, err)
	a, err := svc.RegisterViaQR(RegisterParams{Mobile: "13700000002", ParentID: m.ID, PosterType: 1})
	require.NoError(t, err)
	p, err := svc.RegisterViaQR(RegisterParams{Mobile: "13700000003", ParentID: a.ID, PosterType: 1})
	require.NoError(t, err)
	return p
}
