package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentCallbackHistory keeps every callback the gateway delivers, matched
// or not, so redeliveries and unknown transaction IDs can be audited later.
type PaymentCallbackHistory struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	MerchantTransactionID string          `gorm:"type:varchar(100);index" json:"merchant_transaction_id"`
	Matched               bool            `gorm:"default:false" json:"matched"`
	Metadata              json.RawMessage `gorm:"type:jsonb" json:"metadata"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	DeletedAt             gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}
