// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"qudao-go/internal/model"
	"qudao-go/internal/service"
	"qudao-go/pkg/log"
)

// AccountHandler 负责处理账号注册、升级与审核相关的 API 请求。
type AccountHandler struct {
	accountService service.AccountService
}

// NewAccountHandler 创建一个新的 AccountHandler 实例。
func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// RegisterRequest 定义了扫码注册 API 的请求体结构。
// parent_id / poster_id / p_type 来自邀请链接的 users_id / templates_id / p_type。
type RegisterRequest struct {
	Mobile     string `json:"mobile" binding:"required"`
	ParentID   uint   `json:"parent_id" binding:"required"`
	PosterID   uint   `json:"poster_id"`
	PosterType *int   `json:"poster_type"`
	PType      string `json:"p_type"`
	Nickname   string `json:"nickname"`
	StoreName  string `json:"store_name"`
	Region     string `json:"region"`
}

// Register 处理扫码注册请求。
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：手机号和邀请人不能为空",
		})
		return
	}

	// 链接里只有 p_type 时按约定映射：B=招募邀请，C=终端推广。
	posterType := model.PosterTypeRecruit
	if req.PosterType != nil {
		posterType = *req.PosterType
	} else if req.PType == "C" {
		posterType = model.PosterTypePromotion
	}

	user, err := h.accountService.RegisterViaQR(service.RegisterParams{
		Mobile:     req.Mobile,
		ParentID:   req.ParentID,
		PosterID:   req.PosterID,
		PosterType: posterType,
		Nickname:   req.Nickname,
		StoreName:  req.StoreName,
		Region:     req.Region,
	})
	if err != nil {
		log.Warnf("Register: 扫码注册失败, mobile=%s, error: %v", req.Mobile, err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "user": user})
}

// UpgradeRequest 定义了身份升级申请 API 的请求体结构。
// confirm 必须为 true：升级会改变账号的基础身份，只在用户明确确认后执行。
type UpgradeRequest struct {
	ParentID uint `json:"parent_id" binding:"required"`
	Confirm  bool `json:"confirm"`
}

// Upgrade 处理终端客户扫招募码后的身份升级申请。
func (h *AccountHandler) Upgrade(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：升级申请需要明确确认",
		})
		return
	}

	updated, err := h.accountService.UpgradeUserByQR(user.ID, req.ParentID)
	if err != nil {
		log.Warnf("Upgrade: 升级申请失败, userID=%d, error: %v", user.ID, err)
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "user": updated})
}

// UpdateProfileRequest 定义了资料修改 API 的请求体结构。
type UpdateProfileRequest struct {
	Nickname  *string `json:"nickname"`
	Mobile    *string `json:"mobile"`
	StoreName *string `json:"store_name"`
	CityName  *string `json:"city_name"`
}

// UpdateProfile 处理账号自助资料修改请求。
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载",
		})
		return
	}

	err := h.accountService.UpdateProfile(user.ID, service.ProfileUpdate{
		Nickname:  req.Nickname,
		Mobile:    req.Mobile,
		StoreName: req.StoreName,
		CityName:  req.CityName,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "资料已更新"})
}

// CreateSuperAdminRequest 定义了超管创建 API 的请求体结构。
type CreateSuperAdminRequest struct {
	Mobile   string `json:"mobile" binding:"required"`
	Nickname string `json:"nickname" binding:"required"`
}

// CreateSuperAdmin 处理超级管理员创建请求（仅管理员）。
func (h *AccountHandler) CreateSuperAdmin(c *gin.Context) {
	var req CreateSuperAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：手机号和昵称不能为空",
		})
		return
	}

	admin, err := h.accountService.CreateSuperAdmin(req.Mobile, req.Nickname)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "user": admin})
}

// AuditRequest 定义了审核 API 的请求体结构。
// action 三选一：approve / reject / delete；reject 时 reason 必填。
type AuditRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// Audit 处理对待审核/已驳回账号的审核动作。
// 三种动作互斥；delete 不可恢复，由前端二次确认后才会提交。
func (h *AccountHandler) Audit(c *gin.Context) {
	operator, ok := currentUser(c)
	if !ok {
		return
	}
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的账号 ID"})
		return
	}
	var req AuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：请选择审核动作",
		})
		return
	}

	switch req.Action {
	case "approve":
		err = h.accountService.ApproveUser(operator, uint(targetID))
	case "reject":
		err = h.accountService.RejectUser(operator, uint(targetID), req.Reason)
	case "delete":
		err = h.accountService.DeleteUser(operator, uint(targetID))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "未知的审核动作"})
		return
	}
	if err != nil {
		log.Warnf("Audit: 审核操作失败, operator=%d, target=%d, action=%s, error: %v",
			operator.ID, targetID, req.Action, err)
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "操作成功"})
}
