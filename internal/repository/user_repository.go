// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"fmt"

	"gorm.io/gorm"

	"qudao-go/internal/model"
)

// UserRepository 接口定义了账号数据的持久化操作。
// 子树相关查询统一基于 relation_path 的定界匹配："/{id}/" 两侧的斜杠
// 保证按完整路径段命中，ID 1 不会误中 "0/11/" 这类路径。
type UserRepository interface {
	Create(user *model.User) error
	Save(user *model.User) error
	UpdateFields(userID uint, fields map[string]interface{}) error
	Delete(userID uint) error
	FindByID(userID uint) (*model.User, error)
	FindByMobile(mobile string) (*model.User, error)
	FindByUsername(username string) (*model.User, error)
	FindAllExcept(userID uint) ([]model.User, error)
	FindByPathToken(userID uint) ([]model.User, error)
	CountSubtreeLeads(userID uint) (int64, error)
	CountChildren(parentID uint) (int64, error)
	FindSubtreeLeadPosterIDs(userID uint) ([]uint, error)
	FindNicknamesByIDs(ids []uint) (map[uint]string, error)
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// pathPattern 返回子树匹配用的 LIKE 模式。
func pathPattern(userID uint) string {
	return fmt.Sprintf("%%/%d/%%", userID)
}

// Create 在数据库中创建一个新的账号记录。
func (r *userRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// Save 整体更新一个已存在的账号记录。
func (r *userRepository) Save(user *model.User) error {
	return r.db.Save(user).Error
}

// UpdateFields 按字段更新账号记录，用于审核、升级和跟进这类局部写入。
func (r *userRepository) UpdateFields(userID uint, fields map[string]interface{}) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).Updates(fields).Error
}

// Delete 物理删除一个账号记录。删除不做级联，下属的 parent_id 会悬空，
// 由调用方决定如何提示。
func (r *userRepository) Delete(userID uint) error {
	return r.db.Delete(&model.User{}, userID).Error
}

// FindByID 根据 ID 查找账号。
func (r *userRepository) FindByID(userID uint) (*model.User, error) {
	var user model.User
	err := r.db.First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByMobile 根据手机号查找账号，不区分状态。
func (r *userRepository) FindByMobile(mobile string) (*model.User, error) {
	var user model.User
	err := r.db.Where("mobile = ?", mobile).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername 根据用户名查找账号（仅管理后台账号设置用户名）。
func (r *userRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindAllExcept 返回除指定账号外的全部账号，按创建时间倒序。
// 超级管理员解析子树时走这条路径。
func (r *userRepository) FindAllExcept(userID uint) ([]model.User, error) {
	var users []model.User
	err := r.db.Where("id <> ?", userID).Order("created_at DESC").Find(&users).Error
	return users, err
}

// FindByPathToken 返回 relation_path 中包含 "/{userID}/" 的全部账号，
// 即该账号的整棵下属子树，按创建时间倒序。
func (r *userRepository) FindByPathToken(userID uint) ([]model.User, error) {
	var users []model.User
	err := r.db.Where("relation_path LIKE ?", pathPattern(userID)).
		Where("id <> ?", userID).
		Order("created_at DESC").
		Find(&users).Error
	return users, err
}

// CountSubtreeLeads 统计子树内终端客户的数量。
func (r *userRepository) CountSubtreeLeads(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).
		Where("role_code = ?", model.RoleCustomer).
		Where("relation_path LIKE ?", pathPattern(userID)).
		Count(&count).Error
	return count, err
}

// CountChildren 统计 parent_id 直接指向某账号的下属数量。
func (r *userRepository) CountChildren(parentID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("parent_id = ?", parentID).Count(&count).Error
	return count, err
}

// FindSubtreeLeadPosterIDs 返回子树内每个终端客户的 source_poster_id，
// 供海报招募数在内存中按模板聚合。
func (r *userRepository) FindSubtreeLeadPosterIDs(userID uint) ([]uint, error) {
	var posterIDs []uint
	err := r.db.Model(&model.User{}).
		Where("role_code = ?", model.RoleCustomer).
		Where("relation_path LIKE ?", pathPattern(userID)).
		Pluck("source_poster_id", &posterIDs).Error
	return posterIDs, err
}

// FindNicknamesByIDs 批量查询昵称，一次 IN 查询解决列表页的归因展示，
// 避免逐个上级查询。
func (r *userRepository) FindNicknamesByIDs(ids []uint) (map[uint]string, error) {
	result := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []struct {
		ID       uint
		Nickname string
	}
	err := r.db.Model(&model.User{}).Select("id", "nickname").Where("id IN ?", ids).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row.Nickname
	}
	return result, nil
}
