package models

import (
	"time"

	"gorm.io/gorm"
)

// AuthProvider identifies how a user account was created
type AuthProvider string

const (
	AuthProviderLocal    AuthProvider = "local"
	AuthProviderFirebase AuthProvider = "firebase"
)

// User represents a patient account
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name  string `gorm:"type:varchar(255)" json:"name"`
	Email string `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Phone string `gorm:"type:varchar(50)" json:"phone"`

	// PasswordHash is empty for accounts created through an OAuth provider
	PasswordHash string       `gorm:"type:varchar(255)" json:"-"`
	Provider     AuthProvider `gorm:"type:varchar(20);default:'local'" json:"provider"`
	IsVerified   bool         `gorm:"default:false" json:"is_verified"`

	// Relationships
	Appointments []Appointment `gorm:"foreignKey:UserID" json:"appointments,omitempty"`
	Payments     []Payment     `gorm:"foreignKey:UserID" json:"payments,omitempty"`
}
