package models

import (
	"time"

	"gorm.io/gorm"
)

// AppointmentStatus tracks the booking lifecycle
type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment represents a booked consultation slot
type Appointment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID   uint `gorm:"index" json:"user_id"`
	DoctorID uint `gorm:"index" json:"doctor_id"`

	UserName    string            `gorm:"type:varchar(255)" json:"user_name"`
	UserEmail   string            `gorm:"type:varchar(255);index" json:"user_email"`
	ScheduledAt time.Time         `gorm:"index" json:"scheduled_at"`
	Status      AppointmentStatus `gorm:"type:varchar(20);default:'booked'" json:"status"`
	Notes       string            `gorm:"type:text" json:"notes"`

	// Relationships
	User     User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Doctor   Doctor    `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Payments []Payment `gorm:"foreignKey:AppointmentID" json:"payments,omitempty"`
}
