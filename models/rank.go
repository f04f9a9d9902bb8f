package models

import "gorm.io/gorm"

// Rank is a military grade. Order sorts ranks from lowest to highest.
type Rank struct {
	gorm.Model
	Name    string `gorm:"size:100;not null"`
	Acronym string `gorm:"size:20;not null"`
	Order   int    `gorm:"column:rank_order;not null;default:0"`
}
