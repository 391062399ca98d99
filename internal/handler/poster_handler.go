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

// PosterHandler 负责处理海报/物料中心相关的 API 请求。
type PosterHandler struct {
	posterService service.PosterService
}

// NewPosterHandler 创建一个新的 PosterHandler 实例。
func NewPosterHandler(posterService service.PosterService) *PosterHandler {
	return &PosterHandler{posterService: posterService}
}

// List 按类型返回海报模板，招募数按当前查看者的子树实时重算。
func (h *PosterHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	posterType, err := strconv.Atoi(c.DefaultQuery("type", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的海报类型"})
		return
	}

	posters, err := h.posterService.GetPosterResources(user, posterType)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "posters": posters})
}

// CreatePosterRequest 定义了海报创建 API 的请求体结构。
type CreatePosterRequest struct {
	Title    string          `json:"title" binding:"required"`
	ImageURL string          `json:"image_url"`
	Type     int             `json:"type"`
	QRConfig *model.QRConfig `json:"qr_config"`
}

// Create 处理海报创建请求（仅管理员）。
func (h *PosterHandler) Create(c *gin.Context) {
	var req CreatePosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：海报标题不能为空",
		})
		return
	}

	poster := &model.PosterTemplate{
		Title: req.Title,
		BgURL: req.ImageURL,
		Type:  req.Type,
	}
	if req.QRConfig != nil {
		poster.QRConfig = *req.QRConfig
	}
	if err := h.posterService.CreatePoster(poster); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "poster": poster})
}

// UpdatePosterRequest 定义了海报编辑 API 的请求体结构。
type UpdatePosterRequest struct {
	Title    *string         `json:"title"`
	ImageURL *string         `json:"image_url"`
	Type     *int            `json:"type"`
	Status   *int            `json:"status"`
	QRConfig *model.QRConfig `json:"qr_config"`
}

// Update 处理海报编辑请求（仅管理员）。
func (h *PosterHandler) Update(c *gin.Context) {
	posterID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的海报 ID"})
		return
	}
	var req UpdatePosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	err = h.posterService.UpdatePoster(uint(posterID), service.PosterUpdate{
		Title:    req.Title,
		BgURL:    req.ImageURL,
		Type:     req.Type,
		Status:   req.Status,
		QRConfig: req.QRConfig,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "海报已更新"})
}

// Delete 处理海报删除请求（仅管理员）。
func (h *PosterHandler) Delete(c *gin.Context) {
	posterID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的海报 ID"})
		return
	}
	if err := h.posterService.DeletePoster(uint(posterID)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "海报已删除"})
}

// UploadImage 处理海报底图上传（仅管理员），返回对象存储中的公开地址。
func (h *PosterHandler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "请选择要上传的图片"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取上传文件失败"})
		return
	}
	defer file.Close()

	url, err := h.posterService.UploadPosterImage(
		c.Request.Context(),
		fileHeader.Filename,
		file,
		fileHeader.Size,
		fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		log.Errorf("UploadImage: 底图上传失败: %v", err)
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "image_url": url})
}
