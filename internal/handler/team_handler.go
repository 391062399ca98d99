// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qudao-go/internal/service"
)

// TeamHandler 负责处理团队与工作台相关的 API 请求。
type TeamHandler struct {
	teamService service.TeamService
}

// NewTeamHandler 创建一个新的 TeamHandler 实例。
func NewTeamHandler(teamService service.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// Members 返回当前用户在指定分组下可见的团队成员列表。
func (h *TeamHandler) Members(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	tab := c.DefaultQuery("tab", service.TabValidCustomers)

	members, err := h.teamService.GetTeamMembers(c.Request.Context(), user, tab)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "members": members})
}

// Dashboard 返回当前用户子树的工作台统计。
func (h *TeamHandler) Dashboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	stats, err := h.teamService.GetDashboardStats(user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "stats": stats})
}
