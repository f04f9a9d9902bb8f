package models

import "gorm.io/gorm"

// Role bundles permission slugs. A role with no organization links is global.
type Role struct {
	gorm.Model
	Name                  string                 `gorm:"size:100;not null"`
	Acronym               string                 `gorm:"size:20"`
	Permissions           []Permission           `gorm:"many2many:role_permissions;"`
	MilitaryOrganizations []MilitaryOrganization `gorm:"many2many:role_military_organizations;"`
	Sections              []Section              `gorm:"many2many:role_sections;"`
}

// PermissionSlugs flattens the preloaded permissions of the role.
func (r *Role) PermissionSlugs() []string {
	if r == nil {
		return nil
	}
	slugs := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		slugs = append(slugs, p.Slug)
	}
	return slugs
}
