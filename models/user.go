package models

import "gorm.io/gorm"

// User is an operator of the admin application. Users are soft-deleted only.
type User struct {
	gorm.Model
	Name        string `gorm:"not null"`
	ServiceName string `gorm:"not null"` // name used on duty rosters
	Email       string `gorm:"uniqueIndex;size:191;not null"`
	NationalID  string `gorm:"uniqueIndex;size:32;not null"`
	Password    string `gorm:"not null" json:"-"` // Don't expose password hash

	RankID uint `gorm:"not null"`
	Rank   Rank

	RoleID *uint
	Role   *Role

	MilitaryOrganizationID *uint `gorm:"index"`
	MilitaryOrganization   *MilitaryOrganization
	SectionID              *uint `gorm:"index"`
	Section                *Section
}
