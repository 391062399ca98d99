// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"qudao-go/internal/service"
	"qudao-go/pkg/log"
)

// AuthHandler 负责处理登录与令牌相关的 API 请求。
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest 定义了小程序端登录 API 的请求体结构。
// 手机号由微信侧换取并校验后传入，这里直接信任。
type LoginRequest struct {
	Mobile string `json:"mobile" binding:"required"`
}

// Login 处理小程序端的手机号登录请求。
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：手机号不能为空",
		})
		return
	}

	user, accessToken, refreshToken, err := h.authService.LoginByMobile(c.Request.Context(), req.Mobile)
	if err != nil {
		log.Warnf("Login: 手机号登录失败, error: %v", err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":         http.StatusOK,
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         user,
	})
}

// AdminLoginRequest 定义了管理后台登录 API 的请求体结构。
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin 处理管理后台的用户名密码登录请求。
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：用户名和密码不能为空",
		})
		return
	}

	user, accessToken, refreshToken, err := h.authService.AdminLogin(req.Username, req.Password)
	if err != nil {
		log.Warnf("AdminLogin: 登录失败 for '%s', error: %v", req.Username, err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    http.StatusUnauthorized,
			"message": "无效的凭证",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":         http.StatusOK,
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         user,
	})
}

// RefreshTokenRequest 定义了刷新令牌 API 的请求体结构。
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken 处理令牌刷新请求。
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：refreshToken 不能为空",
		})
		return
	}

	accessToken, refreshToken, err := h.authService.RefreshToken(req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":         http.StatusOK,
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}

// Logout 处理登出请求，将当前 token 拉黑。
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if err := h.authService.Logout(tokenString); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "已退出登录"})
}
