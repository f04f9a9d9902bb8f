package models

import "gorm.io/gorm"

// Permission is immutable reference data, seeded from the permission registry.
// Category only groups permissions on screen.
type Permission struct {
	gorm.Model
	Slug     string `gorm:"uniqueIndex;size:100;not null"` // e.g. "users.management"
	Name     string `gorm:"not null"`
	Category string `gorm:"size:50;not null"`
	Roles    []Role `gorm:"many2many:role_permissions;"`
}
