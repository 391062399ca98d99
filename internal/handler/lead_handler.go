// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"qudao-go/internal/model"
	"qudao-go/internal/service"
)

// LeadHandler 负责处理线索池与跟进相关的 API 请求。
type LeadHandler struct {
	teamService service.TeamService
	leadService service.LeadService
}

// NewLeadHandler 创建一个新的 LeadHandler 实例。
func NewLeadHandler(teamService service.TeamService, leadService service.LeadService) *LeadHandler {
	return &LeadHandler{teamService: teamService, leadService: leadService}
}

// List 返回当前用户子树内符合筛选条件的线索。
func (h *LeadHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	tab := c.DefaultQuery("tab", service.LeadTabAll)
	keyword := c.Query("keyword")

	leads, err := h.teamService.GetLeads(user, tab, keyword)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "leads": leads})
}

// FollowUpRequest 定义了跟进提交 API 的请求体结构。
// status 省略时表示普通跟进（"待跟进"的线索会自动流转到"跟进中"）；
// 传入时表示定金/成交/无效等状态动作。
type FollowUpRequest struct {
	Note   string            `json:"note"`
	Status *model.LeadStatus `json:"status"`
}

// AddFollowUp 处理对某条线索的跟进提交。
func (h *LeadHandler) AddFollowUp(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	leadID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的线索 ID"})
		return
	}
	var req FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	lead, err := h.leadService.AddFollowUp(user, uint(leadID), req.Note, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "lead": lead})
}

// ChatLogs 返回某条线索的 AI/人工聊天记录（只读透传）。
func (h *LeadHandler) ChatLogs(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	leadID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的线索 ID"})
		return
	}

	logs, err := h.leadService.GetChatHistory(user, uint(leadID))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "chat_logs": logs})
}
