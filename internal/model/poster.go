// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// 海报类型：0/1 为招募类（扫码注册为合作伙伴），2 为推广类（扫码注册为终端客户）。
const (
	PosterTypeRecruit   = 1
	PosterTypePromotion = 2
)

// 海报状态。
const (
	PosterStatusDisabled = 0
	PosterStatusActive   = 1
)

// QRConfig 描述二维码在海报底图上的叠加位置，均为相对底图宽高的百分比。
type QRConfig struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size float64 `json:"size"`
}

// Value 实现 driver.Valuer。
func (q QRConfig) Value() (driver.Value, error) {
	return json.Marshal(q)
}

// Scan 实现 sql.Scanner。
func (q *QRConfig) Scan(value interface{}) error {
	if value == nil {
		*q = QRConfig{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("qr_config 列类型不受支持")
	}
	if len(data) == 0 {
		*q = QRConfig{}
		return nil
	}
	return json.Unmarshal(data, q)
}

// PosterTemplate 对应于数据库中的 'sys_poster_templates' 表。
// 它是可分享的邀请物料：每张海报绑定一个邀请二维码，
// 扫码注册的账号会把海报 ID 写入 source_poster_id 以便归因统计。
type PosterTemplate struct {
	ID    uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title string `gorm:"type:varchar(128);not null" json:"title"`
	// BgURL 为对象存储中的底图地址，接口字段沿用前端的 image_url。
	BgURL    string   `gorm:"column:bg_url;type:varchar(512)" json:"image_url"`
	Type     int      `gorm:"type:tinyint;not null;index" json:"type"`
	QRConfig QRConfig `gorm:"column:qr_config;type:text" json:"qr_config"`
	// Status 同样不带列默认值，零值的已下架（0）才能正常落库；上架默认由
	// service 层在创建时显式赋值。
	Status int `gorm:"type:tinyint;not null" json:"status"`
	// RegisterCount 是历史遗留的全局注册计数列，对外不直接暴露；
	// 接口返回的是按查看者子树实时重算的 MyRecruitCount。
	RegisterCount int64     `gorm:"column:register_count;not null;default:0" json:"-"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`

	// MyRecruitCount 为相对当前查看者的招募数，不落库。
	MyRecruitCount int64 `gorm:"-" json:"my_recruit_count"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (PosterTemplate) TableName() string {
	return "sys_poster_templates"
}
