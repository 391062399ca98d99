// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 业务错误按类别定义哨兵，handler 层据此映射 HTTP 状态码，
// 对外只暴露一条用户可读的提示信息。所有错误都在操作边界一次性上报，
// 服务内部不做自动重试。
var (
	// ErrValidation 参数校验失败：缺少必填项、驳回原因为空等，未产生任何写入。
	ErrValidation = errors.New("参数校验失败")
	// ErrForbidden 越权访问：角色不允许查看该分组，或目标不在调用者的子树内。
	ErrForbidden = errors.New("权限不足")
	// ErrNotFound 目标记录不存在。
	ErrNotFound = errors.New("记录不存在")
	// ErrDuplicateMobile 手机号已注册（任意状态均算重复）。
	ErrDuplicateMobile = errors.New("您已注册过，请不要重复注册或联系管理员")
	// ErrInvalidInviteSource 邀请链接中的上级 ID 无效，且不是约定的根管理员兜底 ID。
	ErrInvalidInviteSource = errors.New("无效的邀请来源")
	// ErrLoginTimeout 登录查询超过时限，按网络失败上报；底层查询不会被取消，
	// 可能在客户端放弃后仍在服务端完成。
	ErrLoginTimeout = errors.New("网络请求超时，请检查网络或重试")
)
