// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"qudao-go/internal/model"
	"qudao-go/internal/repository"
	"qudao-go/pkg/log"
)

// RegisterParams 是扫码注册的入参，完整对应邀请链接携带的参数：
// users_id（上级）、templates_id（海报）、p_type 映射后的海报类型。
type RegisterParams struct {
	Mobile     string
	ParentID   uint
	PosterID   uint
	PosterType int
	Nickname   string
	StoreName  string
	Region     string
}

// ProfileUpdate 是账号自助资料修改的入参，nil 表示不修改该字段。
type ProfileUpdate struct {
	Nickname  *string
	Mobile    *string
	StoreName *string
	CityName  *string
}

// AccountService 接口定义了账号的注册、升级与审核操作。
// 注册与升级共用同一套上级解析和角色推断规则。
type AccountService interface {
	RegisterViaQR(params RegisterParams) (*model.User, error)
	UpgradeUserByQR(userID, parentID uint) (*model.User, error)
	CreateSuperAdmin(mobile, nickname string) (*model.User, error)
	EnsureRootAdmin(mobile string) error
	ApproveUser(operator *model.User, userID uint) error
	RejectUser(operator *model.User, userID uint, reason string) error
	DeleteUser(operator *model.User, userID uint) error
	UpdateProfile(userID uint, update ProfileUpdate) error
}

type accountService struct {
	userRepo    repository.UserRepository
	rootAdminID uint
}

// NewAccountService 创建一个新的 AccountService 实例。
// rootAdminID 是邀请链接中约定的根管理员 ID，来自配置而非硬编码。
func NewAccountService(userRepo repository.UserRepository, rootAdminID uint) AccountService {
	return &accountService{userRepo: userRepo, rootAdminID: rootAdminID}
}

// resolveParent 按邀请参数解析上级账号。
// 约定的根管理员 ID 在库中不存在时合成一个内存中的虚拟根（relation_path "0/"），
// 保证根账号尚未落库时顶层邀请依然可用；其余 ID 查不到一律视为无效邀请。
func (s *accountService) resolveParent(parentID uint) (*model.User, error) {
	parent, err := s.userRepo.FindByID(parentID)
	if err == nil {
		return parent, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if parentID == s.rootAdminID {
		log.Warnf("根管理员 %d 尚未落库，使用虚拟上级兜底", parentID)
		return &model.User{
			ID:           s.rootAdminID,
			RoleCode:     model.RoleAdmin,
			RelationPath: "0/",
		}, nil
	}
	return nil, fmt.Errorf("%w (ParentID %d 不存在)", ErrInvalidInviteSource, parentID)
}

// inferRole 按邀请参数推断目标角色和初始状态：
//   - 根管理员邀请 → 市场经理，待审核；
//   - 招募类海报（type 0/1）→ 上级是经理则服务商、否则推广员，待审核；
//   - 推广类海报 → 终端客户，直接生效，无需审核。
func (s *accountService) inferRole(parentID uint, parent *model.User, posterType int) (model.RoleCode, model.UserStatus) {
	if parentID == s.rootAdminID {
		return model.RoleManager, model.StatusPending
	}
	if posterType == 0 || posterType == 1 {
		if parent.RoleCode == model.RoleManager {
			return model.RoleAgent, model.StatusPending
		}
		return model.RolePromoter, model.StatusPending
	}
	return model.RoleCustomer, model.StatusNormal
}

// RegisterViaQR 处理扫码注册。
// 手机号在任何状态下都不允许重复；归因指针从上级继承后不再重算。
func (s *accountService) RegisterViaQR(params RegisterParams) (*model.User, error) {
	if params.Mobile == "" {
		return nil, fmt.Errorf("%w: 手机号不能为空", ErrValidation)
	}

	if _, err := s.userRepo.FindByMobile(params.Mobile); err == nil {
		return nil, ErrDuplicateMobile
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	parent, err := s.resolveParent(params.ParentID)
	if err != nil {
		return nil, err
	}

	targetRole, initialStatus := s.inferRole(params.ParentID, parent, params.PosterType)

	nickname := params.Nickname
	if nickname == "" && len(params.Mobile) >= 4 {
		nickname = "新用户_" + params.Mobile[len(params.Mobile)-4:]
	}
	cityName := params.Region
	if cityName == "" {
		cityName = "探测中..."
	}
	storeName := params.StoreName
	if storeName == "" && targetRole == model.RoleCustomer {
		storeName = "待补充门店"
	}
	intentScore := 0
	if targetRole == model.RoleCustomer {
		intentScore = 60
	}

	newUser := &model.User{
		RoleCode: targetRole,
		Mobile:   params.Mobile,
		Nickname: nickname,
		Status:   initialStatus,
		ParentID: params.ParentID,
		// 最近一级经理/服务商/推广员的冗余指针：上级正好是该角色则取上级，
		// 否则沿用上级继承到的值。
		ManagerID:        inheritPointer(parent, model.RoleManager),
		RelationPath:     parent.ChildRelationPath(),
		OwnerAgentID:     inheritPointer(parent, model.RoleAgent),
		SourcePromoterID: inheritPointer(parent, model.RolePromoter),
		SourcePosterID:   params.PosterID,
		FollowUpHistory:  model.FollowUpHistory{},
		LeadStatus:       model.LeadNew,
		IntentScore:      intentScore,
		CityName:         cityName,
		StoreName:        storeName,
	}

	if err := s.userRepo.Create(newUser); err != nil {
		return nil, err
	}
	log.Infof("扫码注册成功: id=%d, role=%d, parent=%d, poster=%d",
		newUser.ID, newUser.RoleCode, newUser.ParentID, newUser.SourcePosterID)
	return newUser, nil
}

// inheritPointer 计算子节点某一角色归因指针的继承值。
func inheritPointer(parent *model.User, role model.RoleCode) uint {
	if parent.RoleCode == role {
		return parent.ID
	}
	switch role {
	case model.RoleManager:
		return parent.ManagerID
	case model.RoleAgent:
		return parent.OwnerAgentID
	case model.RolePromoter:
		return parent.SourcePromoterID
	}
	return 0
}

// UpgradeUserByQR 处理终端客户扫到招募码后的在位升级申请。
// 只重绑 parent_id 并把状态置回待审核；relation_path 和三个归因指针保持
// 原链路不动，待重新审核后另行处理。该操作必须由用户显式确认后才会调用。
func (s *accountService) UpgradeUserByQR(userID, parentID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 账号不存在", ErrNotFound)
		}
		return nil, err
	}
	if user.RoleCode != model.RoleCustomer || user.Status != model.StatusNormal {
		return nil, fmt.Errorf("%w: 仅正常状态的终端客户可申请升级", ErrValidation)
	}

	parent, err := s.resolveParent(parentID)
	if err != nil {
		return nil, err
	}

	var targetRole model.RoleCode
	switch {
	case parentID == s.rootAdminID:
		targetRole = model.RoleManager
	case parent.RoleCode == model.RoleManager:
		targetRole = model.RoleAgent
	default:
		targetRole = model.RolePromoter
	}

	err = s.userRepo.UpdateFields(userID, map[string]interface{}{
		"role_code":     targetRole,
		"status":        model.StatusPending,
		"parent_id":     parentID,
		"reject_reason": "",
	})
	if err != nil {
		return nil, err
	}
	log.Infof("升级申请已提交: id=%d, targetRole=%d, newParent=%d", userID, targetRole, parentID)
	return s.userRepo.FindByID(userID)
}

// CreateSuperAdmin 创建一个不挂在邀请树上的超级管理员（parent 0，路径 "0/"）。
func (s *accountService) CreateSuperAdmin(mobile, nickname string) (*model.User, error) {
	if mobile == "" {
		return nil, fmt.Errorf("%w: 手机号不能为空", ErrValidation)
	}
	if _, err := s.userRepo.FindByMobile(mobile); err == nil {
		return nil, fmt.Errorf("%w: 该手机号已存在", ErrDuplicateMobile)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	admin := &model.User{
		RoleCode:        model.RoleAdmin,
		Mobile:          mobile,
		Nickname:        nickname,
		Status:          model.StatusNormal,
		ParentID:        0,
		RelationPath:    "0/",
		FollowUpHistory: model.FollowUpHistory{},
		LeadStatus:      model.LeadNew,
	}
	if err := s.userRepo.Create(admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// EnsureRootAdmin 在启动时保证约定 ID 的根管理员已落库，避免长期依赖
// 注册路径里的虚拟上级兜底。已存在则什么都不做。
func (s *accountService) EnsureRootAdmin(mobile string) error {
	_, err := s.userRepo.FindByID(s.rootAdminID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	root := &model.User{
		ID:              s.rootAdminID,
		RoleCode:        model.RoleAdmin,
		Mobile:          mobile,
		Nickname:        "超级管理员",
		Status:          model.StatusNormal,
		ParentID:        0,
		RelationPath:    "0/",
		FollowUpHistory: model.FollowUpHistory{},
	}
	if err := s.userRepo.Create(root); err != nil {
		return err
	}
	log.Infof("根管理员已初始化: id=%d", s.rootAdminID)
	return nil
}

// authorizeAudit 校验操作者对目标账号的审核权限：超级管理员不受限，
// 其余角色要求目标位于自己的子树内。
func (s *accountService) authorizeAudit(operator *model.User, userID uint) (*model.User, error) {
	target, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 账号不存在", ErrNotFound)
		}
		return nil, err
	}
	if operator.RoleCode != model.RoleAdmin && !operator.IsDescendant(target) {
		return nil, fmt.Errorf("%w: 该账号不在您的管辖范围内", ErrForbidden)
	}
	return target, nil
}

// ApproveUser 审核通过：状态置为正常，并清空历史驳回原因。
func (s *accountService) ApproveUser(operator *model.User, userID uint) error {
	if _, err := s.authorizeAudit(operator, userID); err != nil {
		return err
	}
	return s.userRepo.UpdateFields(userID, map[string]interface{}{
		"status":        model.StatusNormal,
		"reject_reason": "",
	})
}

// RejectUser 审核驳回，驳回原因必填并持久化；被驳回的账号可再次提交升级申请。
func (s *accountService) RejectUser(operator *model.User, userID uint, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: 请填写驳回原因", ErrValidation)
	}
	if _, err := s.authorizeAudit(operator, userID); err != nil {
		return err
	}
	return s.userRepo.UpdateFields(userID, map[string]interface{}{
		"status":        model.StatusRejected,
		"reject_reason": reason,
	})
}

// DeleteUser 物理删除账号，不可恢复。不做级联：下属的 parent_id 和
// relation_path 会指向已删除的节点，这里只记录受影响数量以便排查。
func (s *accountService) DeleteUser(operator *model.User, userID uint) error {
	if _, err := s.authorizeAudit(operator, userID); err != nil {
		return err
	}
	if children, err := s.userRepo.CountChildren(userID); err == nil && children > 0 {
		log.Warnf("删除账号 %d 后有 %d 个直接下属的 parent_id 悬空", userID, children)
	}
	return s.userRepo.Delete(userID)
}

// UpdateProfile 更新账号自助资料。
func (s *accountService) UpdateProfile(userID uint, update ProfileUpdate) error {
	fields := make(map[string]interface{})
	if update.Nickname != nil {
		fields["nickname"] = *update.Nickname
	}
	if update.Mobile != nil {
		if *update.Mobile == "" {
			return fmt.Errorf("%w: 手机号不能为空", ErrValidation)
		}
		// 手机号的唯一性由这里保证，不依赖存储层约束；
		// 换号同样不允许占用其他账号（任意状态）的号码。
		if existing, err := s.userRepo.FindByMobile(*update.Mobile); err == nil {
			if existing.ID != userID {
				return ErrDuplicateMobile
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		fields["mobile"] = *update.Mobile
	}
	if update.StoreName != nil {
		fields["store_name"] = *update.StoreName
	}
	if update.CityName != nil {
		fields["city_name"] = *update.CityName
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: 没有需要更新的字段", ErrValidation)
	}
	return s.userRepo.UpdateFields(userID, fields)
}
