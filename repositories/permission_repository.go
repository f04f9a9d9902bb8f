package repositories

import (
	"context"

	"gorm.io/gorm"

	"milorg-admin/models"
)

// PermissionRepository reads the seeded permission reference data.
type PermissionRepository interface {
	FindAll(ctx context.Context) ([]models.Permission, error)
	FindBySlugs(ctx context.Context, slugs []string) ([]models.Permission, error)
}

type permissionRepository struct {
	db *gorm.DB
}

var _ PermissionRepository = (*permissionRepository)(nil)

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) FindAll(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.db.WithContext(ctx).Order("category").Order("slug").Find(&perms).Error
	return perms, err
}

func (r *permissionRepository) FindBySlugs(ctx context.Context, slugs []string) ([]models.Permission, error) {
	var perms []models.Permission
	if len(slugs) == 0 {
		return perms, nil
	}
	err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&perms).Error
	return perms, err
}
