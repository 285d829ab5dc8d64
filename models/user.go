package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleCaptain    Role = "captain"
	RoleOwner      Role = "owner"
	RoleAccountant Role = "accountant"
	RoleChairman   Role = "chairman"
	RoleSuperadmin Role = "superadmin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleCaptain, RoleOwner, RoleAccountant, RoleChairman, RoleSuperadmin:
		return true
	}
	return false
}

// IsStaff reports whether r works behind a shop counter.
func (r Role) IsStaff() bool {
	return r == RoleCaptain || r == RoleOwner
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type User struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	Name           string         `json:"name" gorm:"not null"`
	Email          string         `json:"email" gorm:"uniqueIndex;not null"`
	Password       string         `json:"-" gorm:"not null"`
	Role           Role           `json:"role" gorm:"not null;index"`
	ShopID         *uint          `json:"shop_id,omitempty" gorm:"index"`
	ApprovalStatus ApprovalStatus `json:"approval_status" gorm:"not null;index"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// HashPassword hashes the user's password
func (u *User) HashPassword(password string) error {
	passwordInBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(passwordInBytes)
	return nil
}

// CheckPassword checks if the provided password matches the user's password
func (u *User) CheckPassword(providedPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(providedPassword))
}
