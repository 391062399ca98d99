// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RoleCode 表示账号在渠道树中的角色，数值越小权限越高。
type RoleCode int

const (
	RoleAdmin    RoleCode = 0 // 超级管理员
	RoleManager  RoleCode = 1 // 市场经理
	RoleAgent    RoleCode = 2 // 服务商
	RolePromoter RoleCode = 3 // 推广员
	RoleCustomer RoleCode = 4 // 终端客户（线索）
)

// UserStatus 表示账号的生命周期状态。
type UserStatus int

const (
	StatusDisabled UserStatus = 0 // 已禁用
	StatusNormal   UserStatus = 1 // 正常
	StatusPending  UserStatus = 2 // 待审核
	StatusRejected UserStatus = 3 // 已驳回
)

// LeadStatus 表示线索在销售漏斗中的阶段。
// 取值刻意不连续，便于将来在中间插入新阶段。
type LeadStatus int

const (
	LeadNew       LeadStatus = 0  // 待跟进
	LeadFollowing LeadStatus = 10 // 跟进中
	LeadDeposit   LeadStatus = 20 // 已付定金
	LeadDeal      LeadStatus = 30 // 已成交
	LeadInvalid   LeadStatus = 40 // 无效
	LeadPublic    LeadStatus = 99 // 公海
)

// Label 返回线索状态的中文展示名。
func (s LeadStatus) Label() string {
	switch s {
	case LeadNew:
		return "待跟进"
	case LeadFollowing:
		return "跟进中"
	case LeadDeposit:
		return "已付定金"
	case LeadDeal:
		return "已成交"
	case LeadInvalid:
		return "无效线索"
	default:
		return "未知"
	}
}

// FollowUpRecord 是跟进历史中的一条记录。
type FollowUpRecord struct {
	Operator string    `json:"operator"`
	Time     time.Time `json:"time"`
	Note     string    `json:"note"`
}

// FollowUpHistory 是按时间正序（旧在前）保存的跟进历史。
// 它以 JSON 形式持久化在 sys_users.follow_up_history 列中，
// 在存储边界统一解析；历史数据损坏时回退为空列表而不是报错。
type FollowUpHistory []FollowUpRecord

// Value 实现 driver.Valuer，将历史序列化为 JSON 写入数据库。
func (h FollowUpHistory) Value() (driver.Value, error) {
	if h == nil {
		h = FollowUpHistory{}
	}
	return json.Marshal(h)
}

// Scan 实现 sql.Scanner，从数据库读出并解析 JSON。
func (h *FollowUpHistory) Scan(value interface{}) error {
	if value == nil {
		*h = FollowUpHistory{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("follow_up_history 列类型不受支持")
	}
	if len(data) == 0 {
		*h = FollowUpHistory{}
		return nil
	}
	var records []FollowUpRecord
	if err := json.Unmarshal(data, &records); err != nil {
		// 兼容历史上的脏数据：解析失败按空历史处理
		*h = FollowUpHistory{}
		return nil
	}
	*h = records
	return nil
}

// User 对应于数据库中的 'sys_users' 表。
// 同一张表同时承载渠道成员（经理/服务商/推广员）和终端客户（线索），
// 由 RoleCode 区分两种形态。
type User struct {
	ID       uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleCode RoleCode   `gorm:"column:role_code;type:tinyint;not null;index" json:"role_code"`
	// Status 不带列默认值：带默认值的列在 GORM 写入时会跳过零值字段，
	// 已禁用（0）就永远落不了库。所有写入路径都显式赋 Status。
	Status UserStatus `gorm:"type:tinyint;not null" json:"status"`
	Mobile   string     `gorm:"type:varchar(20);not null;index" json:"mobile"`
	Username string     `gorm:"type:varchar(64)" json:"username,omitempty"`
	Password string     `gorm:"type:varchar(255)" json:"-"`
	Nickname string     `gorm:"type:varchar(64)" json:"nickname"`
	// RejectReason 仅在状态流转到已驳回时写入，后续任何角色/状态变化都会清空。
	RejectReason string `gorm:"column:reject_reason;type:varchar(255)" json:"reject_reason,omitempty"`

	// ParentID 是直接邀请人的 ID，根管理员为 0。
	ParentID uint `gorm:"column:parent_id;not null;default:0" json:"parent_id"`
	// RelationPath 是物化的祖先链，形如 "0/11/25/"：从根到直接上级的每个 ID
	// 依次以 '/' 分隔并以 '/' 结尾。子树归属判断只依赖这一个字段。
	RelationPath string `gorm:"column:relation_path;type:varchar(512);not null;index" json:"relation_path"`
	// ManagerID / OwnerAgentID / SourcePromoterID 是创建时从上级继承的
	// 最近一级对应角色的冗余指针，创建后不再重算。
	ManagerID        uint `gorm:"column:manager_id;not null;default:0" json:"manager_id"`
	OwnerAgentID     uint `gorm:"column:owner_agent_id;not null;default:0" json:"owner_agent_id"`
	SourcePromoterID uint `gorm:"column:source_promoter_id;not null;default:0" json:"source_promoter_id"`
	// SourcePosterID 记录该账号经由哪张海报被招募（归因键），0 表示无。
	SourcePosterID uint `gorm:"column:source_poster_id;not null;default:0" json:"source_poster_id"`

	CityName  string `gorm:"column:city_name;type:varchar(64)" json:"city_name,omitempty"`
	StoreName string `gorm:"column:store_name;type:varchar(128)" json:"store_name,omitempty"`

	// LeadStatus 仅当 RoleCode 为终端客户时有业务含义。
	LeadStatus      LeadStatus      `gorm:"column:lead_status;type:int;not null;default:0" json:"lead_status"`
	FollowUpHistory FollowUpHistory `gorm:"column:follow_up_history;type:text" json:"follow_up_history"`

	// IntentScore 为 0-100 的意向分，由外部 AI 侧计算，本服务只在创建时赋初值。
	IntentScore int       `gorm:"column:intent_score;not null;default:0" json:"intent_score"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	// 以下为列表接口的展示辅助字段，不落库。
	SubordinateLeadsCount int64  `gorm:"-" json:"subordinate_leads_count"`
	ManagerName           string `gorm:"-" json:"manager_name,omitempty"`
	AgentName             string `gorm:"-" json:"agent_name,omitempty"`
	PromoterName          string `gorm:"-" json:"promoter_name,omitempty"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "sys_users"
}

// PathToken 返回该节点在下属 relation_path 中出现的定界片段 "/{id}/"。
// 两侧的 '/' 保证按完整路径段匹配，避免 ID 1 误中 ID 11 这类子串碰撞。
func (u *User) PathToken() string {
	return fmt.Sprintf("/%d/", u.ID)
}

// ChildRelationPath 返回以该节点为直接上级的子节点应写入的 relation_path。
func (u *User) ChildRelationPath() string {
	return fmt.Sprintf("%s%d/", u.RelationPath, u.ID)
}

// IsDescendant 判断 other 是否位于该节点的子树内（不含自身）。
func (u *User) IsDescendant(other *User) bool {
	if other == nil || other.ID == u.ID {
		return false
	}
	// relation_path 以 '/' 结尾且段间以 '/' 分隔，对 "/{id}/" 的包含判断
	// 即为按完整路径段匹配。
	return strings.Contains(other.RelationPath, u.PathToken())
}
