package models

import "gorm.io/gorm"

// Section belongs to exactly one organization. Acronym is stored upper-cased and
// is unique per organization among non-deleted sections.
type Section struct {
	gorm.Model
	Name                   string `gorm:"not null"`
	Acronym                string `gorm:"size:20;not null;uniqueIndex:idx_sections_org_acronym,priority:2"`
	MilitaryOrganizationID uint   `gorm:"not null;uniqueIndex:idx_sections_org_acronym,priority:1"`
	MilitaryOrganization   *MilitaryOrganization
	// Live is true while the section exists and NULL once it is deleted, so
	// deleted rows drop out of the acronym index.
	Live *bool `gorm:"default:true;uniqueIndex:idx_sections_org_acronym,priority:3" json:"-"`
}
