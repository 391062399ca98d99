// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"qudao-go/internal/model"
	"qudao-go/internal/service"
	"qudao-go/pkg/log"
)

// currentUser 从 AuthMiddleware 写入的上下文中取出当前用户。
func currentUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return nil, false
	}
	user, ok := value.(*model.User)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "用户数据类型错误"})
		return nil, false
	}
	return user, true
}

// fail 把业务错误按类别映射为 HTTP 状态码并统一返回。
// 所有错误在操作边界一次性转换为一条用户可读信息。
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateMobile):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidInviteSource):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrLoginTimeout):
		status = http.StatusGatewayTimeout
	default:
		log.Errorf("未分类的业务错误: %v", err)
		c.JSON(status, gin.H{"code": status, "message": "服务器内部错误"})
		return
	}
	c.JSON(status, gin.H{"code": status, "message": err.Error()})
}
