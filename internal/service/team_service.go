// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"qudao-go/internal/model"
	"qudao-go/internal/repository"
	"qudao-go/pkg/log"
)

// 团队页分组标识。
const (
	TabManager        = "manager"
	TabAgent          = "agent"
	TabPromoter       = "promoter"
	TabValidCustomers = "valid_customers"
)

// 线索池筛选标识。"following" 口径包含定金阶段。
const (
	LeadTabAll       = "all"
	LeadTabNew       = "new"
	LeadTabFollowing = "following"
	LeadTabDeal      = "deal"
	LeadTabInvalid   = "invalid"
)

// tabMinViewRole 规定每个分组允许查看的最低权限角色（数值越小权限越高）：
// 经理分组仅超管可见，服务商分组超管/经理可见，推广员分组超管/经理/服务商可见，
// 有效客户分组对所有角色开放。
var tabMinViewRole = map[string]model.RoleCode{
	TabManager:        model.RoleAdmin,
	TabAgent:          model.RoleManager,
	TabPromoter:       model.RoleAgent,
	TabValidCustomers: model.RoleCode(99),
}

// TeamService 接口定义了按调用者子树限定范围的查询操作。
// 任何调用者能看到的数据完全由这里的范围规则决定，存储层不再做行级限制。
type TeamService interface {
	ResolveSubtree(user *model.User) []model.User
	GetTeamMembers(ctx context.Context, user *model.User, tab string) ([]model.User, error)
	GetLeads(user *model.User, tab, keyword string) ([]model.User, error)
	GetDashboardStats(user *model.User) (*model.DashboardStats, error)
}

type teamService struct {
	userRepo repository.UserRepository
}

// NewTeamService 创建一个新的 TeamService 实例。
func NewTeamService(userRepo repository.UserRepository) TeamService {
	return &teamService{userRepo: userRepo}
}

// ResolveSubtree 解析调用者的整棵下属子树（不含自身）。
// 超级管理员返回除自己外的所有账号，其余角色按 relation_path 定界匹配。
// 存储出错时降级为空集并记录日志——空结果在调用方语义上无法与"确实没有
// 数据"区分，这是既有设计的已知缺口，靠日志保留区分度。
func (s *teamService) ResolveSubtree(user *model.User) []model.User {
	var (
		subordinates []model.User
		err          error
	)
	if user.RoleCode == model.RoleAdmin {
		subordinates, err = s.userRepo.FindAllExcept(user.ID)
	} else {
		subordinates, err = s.userRepo.FindByPathToken(user.ID)
	}
	if err != nil {
		log.Errorf("解析子树失败，降级为空集: userID=%d, err=%v", user.ID, err)
		return []model.User{}
	}
	return subordinates
}

// GetTeamMembers 返回调用者在指定分组下可见的团队成员。
// 越权请求直接拒绝，而不是静默返回空列表，以便与"没有数据"区分。
func (s *teamService) GetTeamMembers(ctx context.Context, user *model.User, tab string) ([]model.User, error) {
	minViewRole, ok := tabMinViewRole[tab]
	if !ok {
		return nil, fmt.Errorf("%w: 未知的分组 %q", ErrValidation, tab)
	}
	if user.RoleCode > minViewRole {
		return nil, fmt.Errorf("%w: 无权查看该分组", ErrForbidden)
	}

	subordinates := s.ResolveSubtree(user)

	var filtered []model.User
	for _, sub := range subordinates {
		switch tab {
		case TabValidCustomers:
			if sub.RoleCode == model.RoleCustomer && isValidCustomer(sub.LeadStatus) {
				filtered = append(filtered, sub)
			}
		case TabManager:
			if sub.RoleCode == model.RoleManager {
				filtered = append(filtered, sub)
			}
		case TabAgent:
			if sub.RoleCode == model.RoleAgent {
				filtered = append(filtered, sub)
			}
		case TabPromoter:
			if sub.RoleCode == model.RolePromoter {
				filtered = append(filtered, sub)
			}
		}
	}

	// 一次 IN 查询批量取回归因链上的昵称，绝不逐个上级查询。
	relatedIDs := make(map[uint]struct{})
	for _, member := range filtered {
		for _, id := range []uint{member.ManagerID, member.OwnerAgentID, member.SourcePromoterID} {
			if id != 0 {
				relatedIDs[id] = struct{}{}
			}
		}
	}
	idList := make([]uint, 0, len(relatedIDs))
	for id := range relatedIDs {
		idList = append(idList, id)
	}
	nameMap, err := s.userRepo.FindNicknamesByIDs(idList)
	if err != nil {
		return nil, err
	}

	// 每个成员一条子树计数查询，并发发出，全部完成后才返回列表。
	g, _ := errgroup.WithContext(ctx)
	for i := range filtered {
		i := i
		g.Go(func() error {
			count, err := s.userRepo.CountSubtreeLeads(filtered[i].ID)
			if err != nil {
				return err
			}
			filtered[i].SubordinateLeadsCount = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range filtered {
		filtered[i].ManagerName = nameMap[filtered[i].ManagerID]
		filtered[i].AgentName = nameMap[filtered[i].OwnerAgentID]
		filtered[i].PromoterName = nameMap[filtered[i].SourcePromoterID]
	}

	// 排序：待审核的排最前（稳定分区），其次按下属线索数降序，再按创建时间降序。
	// 这样待办事项和高价值成员都浮在列表顶部。
	sort.SliceStable(filtered, func(a, b int) bool {
		pa, pb := filtered[a].Status == model.StatusPending, filtered[b].Status == model.StatusPending
		if pa != pb {
			return pa
		}
		if filtered[a].SubordinateLeadsCount != filtered[b].SubordinateLeadsCount {
			return filtered[a].SubordinateLeadsCount > filtered[b].SubordinateLeadsCount
		}
		return filtered[a].CreatedAt.After(filtered[b].CreatedAt)
	})

	return filtered, nil
}

// GetLeads 返回调用者子树内符合筛选条件的线索。
// 关键词对门店名和手机号做大小写不敏感的子串匹配。
func (s *teamService) GetLeads(user *model.User, tab, keyword string) ([]model.User, error) {
	subordinates := s.ResolveSubtree(user)

	var leads []model.User
	for _, sub := range subordinates {
		if sub.RoleCode != model.RoleCustomer {
			continue
		}
		switch tab {
		case LeadTabNew:
			if sub.LeadStatus != model.LeadNew {
				continue
			}
		case LeadTabFollowing:
			if sub.LeadStatus != model.LeadFollowing && sub.LeadStatus != model.LeadDeposit {
				continue
			}
		case LeadTabDeal:
			if sub.LeadStatus != model.LeadDeal {
				continue
			}
		case LeadTabInvalid:
			if sub.LeadStatus != model.LeadInvalid {
				continue
			}
		}
		leads = append(leads, sub)
	}

	if keyword != "" {
		k := strings.ToLower(keyword)
		matched := leads[:0]
		for _, lead := range leads {
			if strings.Contains(strings.ToLower(lead.StoreName), k) || strings.Contains(lead.Mobile, keyword) {
				matched = append(matched, lead)
			}
		}
		leads = matched
	}
	return leads, nil
}

// GetDashboardStats 计算工作台的聚合统计：漏斗分布、团队规模和近 7 天趋势。
// 子树只解析一次，其余均在内存聚合。
func (s *teamService) GetDashboardStats(user *model.User) (*model.DashboardStats, error) {
	subordinates := s.ResolveSubtree(user)

	stats := &model.DashboardStats{}
	for _, sub := range subordinates {
		switch sub.RoleCode {
		case model.RoleManager:
			stats.TeamCounts.Managers++
		case model.RoleAgent:
			stats.TeamCounts.Agents++
		case model.RolePromoter:
			stats.TeamCounts.Promoters++
		case model.RoleCustomer:
			stats.StatusCounts.Total++
			switch sub.LeadStatus {
			case model.LeadNew:
				stats.StatusCounts.New++
			case model.LeadFollowing:
				stats.StatusCounts.Following++
				stats.TeamCounts.ValidCustomers++
			case model.LeadDeposit:
				stats.StatusCounts.Deposit++
				stats.TeamCounts.ValidCustomers++
			case model.LeadDeal:
				stats.StatusCounts.Deal++
				stats.TeamCounts.ValidCustomers++
			case model.LeadInvalid:
				stats.StatusCounts.Invalid++
			}
		}
	}

	// 近 7 个自然日（旧在前）的新增线索数，以及这批当日新增中
	// 目前已经走到定金/成交的数量（同批转化，不是当日转化事件数）。
	const trendDays = 7
	now := time.Now()
	stats.TrendData = make([]model.TrendPoint, 0, trendDays)
	for i := 0; i < trendDays; i++ {
		day := now.AddDate(0, 0, -(trendDays - 1 - i))
		dayKey := day.Format("2006-01-02")
		point := model.TrendPoint{
			Date: fmt.Sprintf("%d/%d", int(day.Month()), day.Day()),
		}
		for _, sub := range subordinates {
			if sub.RoleCode != model.RoleCustomer || sub.CreatedAt.Format("2006-01-02") != dayKey {
				continue
			}
			point.NewLeads++
			if sub.LeadStatus == model.LeadDeposit || sub.LeadStatus == model.LeadDeal {
				point.Deals++
			}
		}
		stats.TrendData = append(stats.TrendData, point)
	}

	return stats, nil
}

// isValidCustomer 判断线索是否计入"有效客户"：跟进中、定金或成交。
func isValidCustomer(status model.LeadStatus) bool {
	return status == model.LeadFollowing || status == model.LeadDeposit || status == model.LeadDeal
}
