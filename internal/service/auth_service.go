// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"qudao-go/internal/model"
	"qudao-go/internal/repository"
	"qudao-go/pkg/database"
	"qudao-go/pkg/hash"
	"qudao-go/pkg/log"
	"qudao-go/pkg/token"
)

// AuthService 接口定义了登录、令牌和登出相关的业务操作。
// 手机号由上游小程序侧换取并校验，到达这里时视为可信断言。
type AuthService interface {
	LoginByMobile(ctx context.Context, mobile string) (*model.User, string, string, error)
	AdminLogin(username, password string) (*model.User, string, string, error)
	RefreshToken(refreshTokenString string) (string, string, error)
	Logout(tokenString string) error
	GetUserByID(userID uint) (*model.User, error)
}

type authService struct {
	userRepo     repository.UserRepository
	jwtManager   *token.JWTManager
	loginTimeout time.Duration
}

// NewAuthService 创建一个新的 AuthService 实例。
func NewAuthService(userRepo repository.UserRepository, jwtManager *token.JWTManager, loginTimeout time.Duration) AuthService {
	return &authService{
		userRepo:     userRepo,
		jwtManager:   jwtManager,
		loginTimeout: loginTimeout,
	}
}

// LoginByMobile 按手机号登录。查询与固定时限赛跑：超时按网络失败上报并
// 放弃本次操作，但不向存储层传播取消信号——底层查询可能在客户端放弃后
// 仍在服务端完成，结果被丢弃。
// 待审核与已驳回的账号允许登录，前端据状态展示审核进度；已禁用的拒绝。
func (s *authService) LoginByMobile(ctx context.Context, mobile string) (*model.User, string, string, error) {
	if mobile == "" {
		return nil, "", "", fmt.Errorf("%w: 手机号不能为空", ErrValidation)
	}

	type lookupResult struct {
		user *model.User
		err  error
	}
	resultCh := make(chan lookupResult, 1)
	started := time.Now()
	go func() {
		user, err := s.userRepo.FindByMobile(mobile)
		resultCh <- lookupResult{user: user, err: err}
	}()

	var user *model.User
	select {
	case res := <-resultCh:
		log.Infof("手机号查询耗时 %dms", time.Since(started).Milliseconds())
		if res.err != nil {
			if errors.Is(res.err, gorm.ErrRecordNotFound) {
				return nil, "", "", fmt.Errorf("%w: 该手机号尚未注册", ErrNotFound)
			}
			return nil, "", "", res.err
		}
		user = res.user
	case <-time.After(s.loginTimeout):
		return nil, "", "", ErrLoginTimeout
	case <-ctx.Done():
		return nil, "", "", ErrLoginTimeout
	}

	if user.Status == model.StatusDisabled {
		return nil, "", "", fmt.Errorf("%w: 账号已被禁用", ErrForbidden)
	}

	accessToken, refreshToken, err := s.issueTokens(user)
	if err != nil {
		return nil, "", "", err
	}
	return user, accessToken, refreshToken, nil
}

// AdminLogin 处理管理后台的用户名密码登录。
func (s *authService) AdminLogin(username, password string) (*model.User, string, string, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", fmt.Errorf("%w: 无效的凭证", ErrForbidden)
		}
		return nil, "", "", err
	}
	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, "", "", fmt.Errorf("%w: 无效的凭证", ErrForbidden)
	}
	if user.RoleCode != model.RoleAdmin {
		return nil, "", "", fmt.Errorf("%w: 仅管理员可使用后台登录", ErrForbidden)
	}

	accessToken, refreshToken, err := s.issueTokens(user)
	if err != nil {
		return nil, "", "", err
	}
	return user, accessToken, refreshToken, nil
}

func (s *authService) issueTokens(user *model.User) (string, string, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Mobile, int(user.RoleCode))
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Mobile, int(user.RoleCode))
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// RefreshToken 校验 refresh token 并签发新的令牌对。
func (s *authService) RefreshToken(refreshTokenString string) (string, string, error) {
	claims, err := s.jwtManager.VerifyToken(refreshTokenString)
	if err != nil {
		return "", "", fmt.Errorf("%w: 无效或已过期的 refresh token", ErrForbidden)
	}
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return "", "", fmt.Errorf("%w: 用户不存在", ErrNotFound)
	}
	return s.issueTokens(user)
}

// Logout 将 token 加入 Redis 黑名单，剩余有效期内拒绝复用。
func (s *authService) Logout(tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		// 已经失效的 token 无需入黑名单
		return nil
	}
	expiration := time.Until(claims.ExpiresAt.Time)
	if expiration <= 0 {
		return nil
	}
	return database.RDB.Set(context.Background(), "blacklist:"+tokenString, strconv.FormatUint(uint64(claims.UserID), 10), expiration).Err()
}

// GetUserByID 供认证中间件按令牌中的 ID 加载完整账号。
func (s *authService) GetUserByID(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 用户不存在", ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}
