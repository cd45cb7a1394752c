// models/commission.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Commission is one payout line per (prospect, tree level). MoneyAmount and
// Currency are fixed at creation; Paid flips once together with TransferReference.
type Commission struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	ProspectID string `gorm:"type:uuid;not null;uniqueIndex:idx_commission_prospect_level" json:"prospect_id"`
	AccountID  string `gorm:"type:uuid;not null;index" json:"account_id"` // recipient
	TreeLevel  int    `gorm:"not null;uniqueIndex:idx_commission_prospect_level" json:"tree_level"`
	Quantity   int    `gorm:"not null" json:"quantity"`

	MoneyAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"money_amount"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`

	Paid              bool       `gorm:"default:false;index" json:"paid"`
	TransferReference *string    `gorm:"size:128" json:"transfer_reference,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`

	Prospect *Prospect `gorm:"foreignKey:ProspectID" json:"prospect,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (c *Commission) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
