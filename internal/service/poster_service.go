// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"qudao-go/internal/config"
	"qudao-go/internal/model"
	"qudao-go/internal/repository"
	"qudao-go/pkg/storage"
	"qudao-go/pkg/token"
)

// PosterUpdate 是海报模板编辑的入参，nil 表示不修改该字段。
type PosterUpdate struct {
	Title    *string
	BgURL    *string
	Type     *int
	Status   *int
	QRConfig *model.QRConfig
}

// PosterService 接口定义了海报模板的查询与管理操作。
type PosterService interface {
	GetPosterResources(user *model.User, posterType int) ([]model.PosterTemplate, error)
	CreatePoster(poster *model.PosterTemplate) error
	UpdatePoster(posterID uint, update PosterUpdate) error
	DeletePoster(posterID uint) error
	UploadPosterImage(ctx context.Context, fileName string, reader io.Reader, size int64, contentType string) (string, error)
}

type posterService struct {
	posterRepo repository.PosterRepository
	userRepo   repository.UserRepository
	minioCfg   config.MinIOConfig
}

// NewPosterService 创建一个新的 PosterService 实例。
func NewPosterService(posterRepo repository.PosterRepository, userRepo repository.UserRepository, minioCfg config.MinIOConfig) PosterService {
	return &posterService{posterRepo: posterRepo, userRepo: userRepo, minioCfg: minioCfg}
}

// GetPosterResources 按类型返回海报模板，并为每张模板实时重算
// my_recruit_count：当前查看者子树内、来源为该海报的线索数。
// 计数永远相对查看者——同一张海报在不同人眼里的数字不同。
// 非管理员只能看到上架中的模板。
func (s *posterService) GetPosterResources(user *model.User, posterType int) ([]model.PosterTemplate, error) {
	onlyActive := user.RoleCode != model.RoleAdmin
	posters, err := s.posterRepo.FindByType(posterType, onlyActive)
	if err != nil {
		return nil, err
	}
	if len(posters) == 0 {
		return posters, nil
	}

	// 一次取回子树内全部线索的海报来源，再按模板聚合。
	posterIDs, err := s.userRepo.FindSubtreeLeadPosterIDs(user.ID)
	if err != nil {
		return nil, err
	}
	countByPoster := make(map[uint]int64, len(posters))
	for _, id := range posterIDs {
		countByPoster[id]++
	}
	for i := range posters {
		posters[i].MyRecruitCount = countByPoster[posters[i].ID]
	}
	return posters, nil
}

// CreatePoster 创建一张海报模板，默认上架。
func (s *posterService) CreatePoster(poster *model.PosterTemplate) error {
	if poster.Title == "" {
		return fmt.Errorf("%w: 海报标题不能为空", ErrValidation)
	}
	poster.Status = model.PosterStatusActive
	return s.posterRepo.Create(poster)
}

// UpdatePoster 按字段更新海报模板。
func (s *posterService) UpdatePoster(posterID uint, update PosterUpdate) error {
	if _, err := s.posterRepo.FindByID(posterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: 海报不存在", ErrNotFound)
		}
		return err
	}
	fields := make(map[string]interface{})
	if update.Title != nil {
		fields["title"] = *update.Title
	}
	if update.BgURL != nil {
		fields["bg_url"] = *update.BgURL
	}
	if update.Type != nil {
		fields["type"] = *update.Type
	}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if update.QRConfig != nil {
		fields["qr_config"] = *update.QRConfig
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: 没有需要更新的字段", ErrValidation)
	}
	return s.posterRepo.UpdateFields(posterID, fields)
}

// DeletePoster 删除一张海报模板。
func (s *posterService) DeletePoster(posterID uint) error {
	return s.posterRepo.Delete(posterID)
}

// UploadPosterImage 把海报底图上传到对象存储并返回可公开访问的地址。
// 对象名带时间戳和随机串，避免覆盖。
func (s *posterService) UploadPosterImage(ctx context.Context, fileName string, reader io.Reader, size int64, contentType string) (string, error) {
	ext := filepath.Ext(fileName)
	objectName := fmt.Sprintf("custom/%d_%s%s", time.Now().Unix(), token.GenerateRandomString(6), ext)
	return storage.UploadPublicObject(ctx, s.minioCfg, objectName, reader, size, contentType)
}
