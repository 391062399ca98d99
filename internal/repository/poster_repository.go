// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"gorm.io/gorm"

	"qudao-go/internal/model"
)

// PosterRepository 接口定义了海报模板的持久化操作。
type PosterRepository interface {
	Create(poster *model.PosterTemplate) error
	UpdateFields(posterID uint, fields map[string]interface{}) error
	Delete(posterID uint) error
	FindByID(posterID uint) (*model.PosterTemplate, error)
	FindByType(posterType int, onlyActive bool) ([]model.PosterTemplate, error)
}

type posterRepository struct {
	db *gorm.DB
}

// NewPosterRepository 创建一个新的 PosterRepository 实例。
func NewPosterRepository(db *gorm.DB) PosterRepository {
	return &posterRepository{db: db}
}

// Create 创建一张海报模板。
func (r *posterRepository) Create(poster *model.PosterTemplate) error {
	return r.db.Create(poster).Error
}

// UpdateFields 按字段更新海报模板。
func (r *posterRepository) UpdateFields(posterID uint, fields map[string]interface{}) error {
	return r.db.Model(&model.PosterTemplate{}).Where("id = ?", posterID).Updates(fields).Error
}

// Delete 删除一张海报模板。
func (r *posterRepository) Delete(posterID uint) error {
	return r.db.Delete(&model.PosterTemplate{}, posterID).Error
}

// FindByID 根据 ID 查找海报模板。
func (r *posterRepository) FindByID(posterID uint) (*model.PosterTemplate, error) {
	var poster model.PosterTemplate
	err := r.db.First(&poster, posterID).Error
	if err != nil {
		return nil, err
	}
	return &poster, nil
}

// FindByType 按类型查询海报模板；onlyActive 为真时仅返回上架中的模板。
func (r *posterRepository) FindByType(posterType int, onlyActive bool) ([]model.PosterTemplate, error) {
	var posters []model.PosterTemplate
	query := r.db.Where("type = ?", posterType)
	if onlyActive {
		query = query.Where("status = ?", model.PosterStatusActive)
	}
	err := query.Order("created_at DESC").Find(&posters).Error
	return posters, err
}
