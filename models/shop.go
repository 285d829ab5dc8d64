package models

import (
	"gorm.io/gorm"
)

type Shop struct {
	gorm.Model         // ID, CreatedAt, UpdatedAt, DeletedAt
	Name        string `json:"name" gorm:"not null;uniqueIndex"`
	Description string `json:"description"`
	Location    string `json:"location"`
	IsOpen      bool   `json:"is_open" gorm:"not null"`
}
