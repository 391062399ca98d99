package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qudao-go/internal/config"
	"qudao-go/internal/model"
	"qudao-go/internal/repository"
)

type posterFixture struct {
	userRepo   repository.UserRepository
	posterRepo repository.PosterRepository
	svc        PosterService
	admin      *model.User
	m1, m2     *model.User
}

func newPosterFixture(t *testing.T) *posterFixture {
	t.Helper()
	db := newTestDB(t)
	f := &posterFixture{
		userRepo:   repository.NewUserRepository(db),
		posterRepo: repository.NewPosterRepository(db),
	}
	f.svc = NewPosterService(f.posterRepo, f.userRepo, config.MinIOConfig{})

	f.admin = seedUser(t, f.userRepo, &model.User{ID: 11, RoleCode: model.RoleAdmin, Status: model.StatusNormal, Mobile: "13900000000", RelationPath: "0/"})
	f.m1 = seedUser(t, f.userRepo, &model.User{ID: 20, RoleCode: model.RoleManager, Status: model.StatusNormal, Mobile: "13800000020", ParentID: 11, RelationPath: "0/11/"})
	f.m2 = seedUser(t, f.userRepo, &model.User{ID: 21, RoleCode: model.RoleManager, Status: model.StatusNormal, Mobile: "13800000021", ParentID: 11, RelationPath: "0/11/"})
	return f
}

func TestGetPosterResources_PerViewerCounts(t *testing.T) {
	f := newPosterFixture(t)
	poster := &model.PosterTemplate{Title: "春季招募", Type: model.PosterTypePromotion}
	require.NoError(t, f.svc.CreatePoster(poster))

	// 经理一的分支有两条该海报来的线索，经理二只有一条
	seedUser(t, f.userRepo, &model.User{ID: 50, RoleCode: model.RoleCustomer, Status: model.StatusNormal, Mobile: "13600000001", RelationPath: "0/11/20/", SourcePosterID: poster.ID})
	seedUser(t, f.userRepo, &model.User{ID: 51, RoleCode: model.RoleCustomer, Status: model.StatusNormal, Mobile: "13600000002", RelationPath: "0/11/20/", SourcePosterID: poster.ID})
	seedUser(t, f.userRepo, &model.User{ID: 52, RoleCode: model.RoleCustomer, Status: model.StatusNormal, Mobile: "13600000003", RelationPath: "0/11/21/", SourcePosterID: poster.ID})
	// 别的海报来的线索不计入
	seedUser(t, f.userRepo, &model.User{ID: 53, RoleCode: model.RoleCustomer, Status: model.StatusNormal, Mobile: "13600000004", RelationPath: "0/11/20/", SourcePosterID: 999})

	got, err := f.svc.GetPosterResources(f.m1, model.PosterTypePromotion)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].MyRecruitCount)

	got, err = f.svc.GetPosterResources(f.m2, model.PosterTypePromotion)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].MyRecruitCount)

	// 超管看到全量
	got, err = f.svc.GetPosterResources(f.admin, model.PosterTypePromotion)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].MyRecruitCount)
}

func TestGetPosterResources_ActiveFilter(t *testing.T) {
	f := newPosterFixture(t)
	active := &model.PosterTemplate{Title: "上架中", Type: model.PosterTypeRecruit}
	require.NoError(t, f.svc.CreatePoster(active))
	disabled := &model.PosterTemplate{Title: "已下架", Type: model.PosterTypeRecruit}
	require.NoError(t, f.svc.CreatePoster(disabled))
	status := model.PosterStatusDisabled
	require.NoError(t, f.svc.UpdatePoster(disabled.ID, PosterUpdate{Status: &status}))

	// 普通角色只能看到上架中的模板
	got, err := f.svc.GetPosterResources(f.m1, model.PosterTypeRecruit)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "上架中", got[0].Title)

	// 超管两张都能看到
	got, err = f.svc.GetPosterResources(f.admin, model.PosterTypeRecruit)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPosterCRUD(t *testing.T) {
	f := newPosterFixture(t)

	err := f.svc.CreatePoster(&model.PosterTemplate{Type: model.PosterTypeRecruit})
	assert.ErrorIs(t, err, ErrValidation)

	poster := &model.PosterTemplate{Title: "门店招募", Type: model.PosterTypeRecruit, QRConfig: model.QRConfig{X: 0.3, Y: 0.7, Size: 0.2}}
	require.NoError(t, f.svc.CreatePoster(poster))
	assert.Equal(t, model.PosterStatusActive, poster.Status)

	title := "门店招募（改）"
	qr := model.QRConfig{X: 0.5, Y: 0.5, Size: 0.25}
	require.NoError(t, f.svc.UpdatePoster(poster.ID, PosterUpdate{Title: &title, QRConfig: &qr}))
	got, err := f.posterRepo.FindByID(poster.ID)
	require.NoError(t, err)
	assert.Equal(t, "门店招募（改）", got.Title)
	assert.Equal(t, 0.25, got.QRConfig.Size)

	assert.ErrorIs(t, f.svc.UpdatePoster(poster.ID, PosterUpdate{}), ErrValidation)
	assert.ErrorIs(t, f.svc.UpdatePoster(9999, PosterUpdate{Title: &title}), ErrNotFound)

	require.NoError(t, f.svc.DeletePoster(poster.ID))
	_, err = f.posterRepo.FindByID(poster.ID)
	assert.Error(t, err)
}
