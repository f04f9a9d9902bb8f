package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"milorg-admin/models"
)

// RoleLinks are the join rows written together with a role.
type RoleLinks struct {
	Permissions   []models.Permission
	Organizations []models.MilitaryOrganization
	Sections      []models.Section
}

type RoleRepository interface {
	Create(ctx context.Context, role *models.Role, links RoleLinks) error
	Update(ctx context.Context, role *models.Role, links RoleLinks) error
	FindByID(ctx context.Context, id uint) (*models.Role, error)
	FindAll(ctx context.Context) ([]models.Role, error)
	Delete(ctx context.Context, role *models.Role) error
}

type roleRepository struct {
	db *gorm.DB
}

var _ RoleRepository = (*roleRepository)(nil)

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

// Create inserts the role and its join rows in one transaction.
func (r *roleRepository) Create(ctx context.Context, role *models.Role, links RoleLinks) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(role).Error; err != nil {
			return err
		}
		return replaceLinks(tx, role, links)
	})
}

// Update saves the role and replaces all of its join rows in one transaction.
func (r *roleRepository) Update(ctx context.Context, role *models.Role, links RoleLinks) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(role).Omit(clause.Associations).
			Updates(map[string]any{"name": role.Name, "acronym": role.Acronym}).Error
		if err != nil {
			return err
		}
		return replaceLinks(tx, role, links)
	})
}

func replaceLinks(tx *gorm.DB, role *models.Role, links RoleLinks) error {
	if err := tx.Model(role).Association("Permissions").Replace(nonNil(links.Permissions)); err != nil {
		return err
	}
	if err := tx.Model(role).Association("MilitaryOrganizations").Replace(nonNil(links.Organizations)); err != nil {
		return err
	}
	return tx.Model(role).Association("Sections").Replace(nonNil(links.Sections))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (r *roleRepository) FindByID(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Preload("MilitaryOrganizations").
		Preload("Sections").
		First(&role, id).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindAll(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Preload("MilitaryOrganizations").
		Preload("Sections").
		Order("name").Find(&roles).Error
	return roles, err
}

// Delete detaches the role from its users and join rows, then soft-deletes it.
func (r *roleRepository) Delete(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("role_id = ?", role.ID).Update("role_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(role).Association("Permissions").Clear(); err != nil {
			return err
		}
		if err := tx.Model(role).Association("MilitaryOrganizations").Clear(); err != nil {
			return err
		}
		if err := tx.Model(role).Association("Sections").Clear(); err != nil {
			return err
		}
		return tx.Delete(role).Error
	})
}
