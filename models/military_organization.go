package models

import "gorm.io/gorm"

// MilitaryOrganization is a node of the organization tree. The root has no parent.
type MilitaryOrganization struct {
	gorm.Model
	Name                 string `gorm:"not null"`
	Acronym              string `gorm:"size:20;not null"`
	Color                string `gorm:"size:9"`
	LogoPath             string
	ParentOrganizationID *uint                  `gorm:"index"`
	ParentOrganization   *MilitaryOrganization  `gorm:"foreignKey:ParentOrganizationID"`
	SubOrganizations     []MilitaryOrganization `gorm:"foreignKey:ParentOrganizationID"`
	Sections             []Section
}
