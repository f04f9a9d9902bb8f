package repositories

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"milorg-admin/models"
)

type SectionRepository interface {
	Create(ctx context.Context, section *models.Section) error
	FindByID(ctx context.Context, id uint) (*models.Section, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Section, error)
	// FindAll lists sections, restricted to one organization when orgID is non-zero.
	FindAll(ctx context.Context, orgID uint) ([]models.Section, error)
	// AcronymExists compares case-insensitively among the organization's
	// non-deleted sections, ignoring excludeID.
	AcronymExists(ctx context.Context, orgID uint, acronym string, excludeID uint) (bool, error)
	Update(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, section *models.Section) error
}

type sectionRepository struct {
	db *gorm.DB
}

var _ SectionRepository = (*sectionRepository)(nil)

func NewSectionRepository(db *gorm.DB) SectionRepository {
	return &sectionRepository{db: db}
}

func (r *sectionRepository) Create(ctx context.Context, section *models.Section) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(section).Error
}

func (r *sectionRepository) FindByID(ctx context.Context, id uint) (*models.Section, error) {
	var section models.Section
	if err := r.db.WithContext(ctx).Preload("MilitaryOrganization").First(&section, id).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *sectionRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Section, error) {
	var sections []models.Section
	if len(ids) == 0 {
		return sections, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&sections).Error
	return sections, err
}

func (r *sectionRepository) FindAll(ctx context.Context, orgID uint) ([]models.Section, error) {
	var sections []models.Section
	q := r.db.WithContext(ctx).Preload("MilitaryOrganization")
	if orgID != 0 {
		q = q.Where("military_organization_id = ?", orgID)
	}
	err := q.Order("acronym").Find(&sections).Error
	return sections, err
}

func (r *sectionRepository) AcronymExists(ctx context.Context, orgID uint, acronym string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Section{}).
		Where("military_organization_id = ? AND UPPER(acronym) = ?", orgID, strings.ToUpper(strings.TrimSpace(acronym)))
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *sectionRepository) Update(ctx context.Context, section *models.Section) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(section).Error
}

// Delete unassigns the section from users and roles, releases its acronym,
// then soft-deletes it.
func (r *sectionRepository) Delete(ctx context.Context, section *models.Section) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(section).Update("live", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("section_id = ?", section.ID).Update("section_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM role_sections WHERE section_id = ?", section.ID).Error; err != nil {
			return err
		}
		return tx.Delete(section).Error
	})
}
