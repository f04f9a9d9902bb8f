package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"milorg-admin/models"
)

// ErrHasChildren is returned by DeleteCascade when active sub-organizations remain.
var ErrHasChildren = errors.New("organization has active sub-organizations")

type OrganizationRepository interface {
	Create(ctx context.Context, org *models.MilitaryOrganization) error
	FindByID(ctx context.Context, id uint) (*models.MilitaryOrganization, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.MilitaryOrganization, error)
	FindAll(ctx context.Context) ([]models.MilitaryOrganization, error)
	// ParentID returns the parent of id, nil for a root.
	ParentID(ctx context.Context, id uint) (*uint, error)
	CountChildren(ctx context.Context, id uint) (int64, error)
	Update(ctx context.Context, org *models.MilitaryOrganization) error
	DeleteCascade(ctx context.Context, org *models.MilitaryOrganization) error
}

type organizationRepository struct {
	db *gorm.DB
}

var _ OrganizationRepository = (*organizationRepository)(nil)

func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, org *models.MilitaryOrganization) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(org).Error
}

func (r *organizationRepository) FindByID(ctx context.Context, id uint) (*models.MilitaryOrganization, error) {
	var org models.MilitaryOrganization
	err := r.db.WithContext(ctx).
		Preload("ParentOrganization").
		Preload("SubOrganizations").
		Preload("Sections").
		First(&org, id).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.MilitaryOrganization, error) {
	var orgs []models.MilitaryOrganization
	if len(ids) == 0 {
		return orgs, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&orgs).Error
	return orgs, err
}

func (r *organizationRepository) FindAll(ctx context.Context) ([]models.MilitaryOrganization, error) {
	var orgs []models.MilitaryOrganization
	err := r.db.WithContext(ctx).Preload("ParentOrganization").Order("name").Find(&orgs).Error
	return orgs, err
}

func (r *organizationRepository) ParentID(ctx context.Context, id uint) (*uint, error) {
	var org models.MilitaryOrganization
	err := r.db.WithContext(ctx).Select("id", "parent_organization_id").First(&org, id).Error
	if err != nil {
		return nil, err
	}
	return org.ParentOrganizationID, nil
}

func (r *organizationRepository) CountChildren(ctx context.Context, id uint) (int64, error) {
	return countChildren(r.db.WithContext(ctx), id)
}

func countChildren(db *gorm.DB, id uint) (int64, error) {
	var count int64
	err := db.Model(&models.MilitaryOrganization{}).Where("parent_organization_id = ?", id).Count(&count).Error
	return count, err
}

func (r *organizationRepository) Update(ctx context.Context, org *models.MilitaryOrganization) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(org).Error
}

// DeleteCascade soft-deletes the organization together with its sections and
// users, and drops the role links pointing at them. Everything runs in one
// transaction.
func (r *organizationRepository) DeleteCascade(ctx context.Context, org *models.MilitaryOrganization) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		children, err := countChildren(tx, org.ID)
		if err != nil {
			return err
		}
		if children > 0 {
			return ErrHasChildren
		}

		sectionIDs := tx.Model(&models.Section{}).Select("id").Where("military_organization_id = ?", org.ID)
		if err := tx.Exec("DELETE FROM role_sections WHERE section_id IN (?)", sectionIDs).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM role_military_organizations WHERE military_organization_id = ?", org.ID).Error; err != nil {
			return err
		}
		if err := tx.Where("military_organization_id = ?", org.ID).Delete(&models.User{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Section{}).Where("military_organization_id = ?", org.ID).Update("live", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("military_organization_id = ?", org.ID).Delete(&models.Section{}).Error; err != nil {
			return err
		}
		return tx.Delete(org).Error
	})
}
