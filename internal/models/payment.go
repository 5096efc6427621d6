package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentStatus represents the lifecycle state of a payment attempt
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// IsTerminal reports whether no further status transition is permitted
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// NonTerminalStatuses are the states a payment may still transition out of.
// Guarded updates match on these so duplicate callbacks can never regress
// a terminal state.
var NonTerminalStatuses = []PaymentStatus{PaymentStatusInitiated, PaymentStatusPending}

// Payment records one payment attempt against the gateway.
// MerchantTransactionID is assigned exactly once at creation and acts as
// the idempotency key for every later mutation. Records are never deleted;
// they are retained for audit and reconciliation.
type Payment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID        uint   `gorm:"index" json:"user_id"`
	AppointmentID uint   `gorm:"index" json:"appointment_id"`
	DoctorID      uint   `gorm:"index" json:"doctor_id"`
	UserEmail     string `gorm:"type:varchar(255)" json:"user_email"`

	MerchantTransactionID string  `gorm:"type:varchar(100);uniqueIndex;not null" json:"merchant_transaction_id"`
	GatewayTransactionID  *string `gorm:"type:varchar(100);uniqueIndex" json:"gateway_transaction_id,omitempty"`

	// Amount is the domain amount (rupees). It is scaled to minor units
	// only at the gateway boundary.
	Amount float64       `gorm:"type:decimal(15,2)" json:"amount"`
	Status PaymentStatus `gorm:"type:varchar(20);default:'INITIATED';index" json:"status"`

	// PaymentResponse keeps the raw gateway response for audit
	PaymentResponse json.RawMessage `gorm:"type:jsonb" json:"payment_response,omitempty"`

	// Relationships
	User        User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	Doctor      Doctor      `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}
