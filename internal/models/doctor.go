package models

import (
	"time"

	"github.com/teambition/rrule-go"
	"gorm.io/gorm"
)

// Doctor represents a practitioner patients can book appointments with
type Doctor struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name            string  `gorm:"type:varchar(255)" json:"name"`
	Email           string  `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Specialty       string  `gorm:"type:varchar(100);index" json:"specialty"`
	Location        string  `gorm:"type:varchar(255);index" json:"location"`
	ConsultationFee float64 `gorm:"type:decimal(15,2)" json:"consultation_fee"`

	// AvailabilityRule is an RFC 5545 RRULE string describing the doctor's
	// consulting slots, e.g. weekly clinic hours
	AvailabilityRule *string `gorm:"type:text" json:"availability_rule"`

	// Relationships
	Appointments []Appointment `gorm:"foreignKey:DoctorID" json:"appointments,omitempty"`
}

// NextAvailable calculates the doctor's next consulting slot from the
// availability rule. Falls back to zero time when no rule is set or the
// rule yields no future occurrence.
func (d Doctor) NextAvailable() time.Time {
	if d.AvailabilityRule == nil || *d.AvailabilityRule == "" {
		return time.Time{}
	}

	rule, err := rrule.StrToRRule(*d.AvailabilityRule)
	if err != nil {
		return time.Time{}
	}
	return rule.After(time.Now(), true)
}
