package repositories

import (
	"context"

	"gorm.io/gorm"

	"milorg-admin/models"
)

type RankRepository interface {
	Create(ctx context.Context, rank *models.Rank) error
	FindByID(ctx context.Context, id uint) (*models.Rank, error)
	FindAll(ctx context.Context) ([]models.Rank, error)
	CountUsers(ctx context.Context, id uint) (int64, error)
	Delete(ctx context.Context, rank *models.Rank) error
}

type rankRepository struct {
	db *gorm.DB
}

var _ RankRepository = (*rankRepository)(nil)

func NewRankRepository(db *gorm.DB) RankRepository {
	return &rankRepository{db: db}
}

func (r *rankRepository) Create(ctx context.Context, rank *models.Rank) error {
	return r.db.WithContext(ctx).Create(rank).Error
}

func (r *rankRepository) FindByID(ctx context.Context, id uint) (*models.Rank, error) {
	var rank models.Rank
	if err := r.db.WithContext(ctx).First(&rank, id).Error; err != nil {
		return nil, err
	}
	return &rank, nil
}

// FindAll returns ranks from highest to lowest.
func (r *rankRepository) FindAll(ctx context.Context) ([]models.Rank, error) {
	var ranks []models.Rank
	err := r.db.WithContext(ctx).Order("rank_order DESC").Order("name").Find(&ranks).Error
	return ranks, err
}

func (r *rankRepository) CountUsers(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("rank_id = ?", id).Count(&count).Error
	return count, err
}

func (r *rankRepository) Delete(ctx context.Context, rank *models.Rank) error {
	return r.db.WithContext(ctx).Delete(rank).Error
}
