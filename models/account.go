// models/account.go
package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is a registered ambassador. InvitedByAccountID is written once at
// registration and never re-parented.
type Account struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string `gorm:"size:30;index" json:"phone"`
	FirstName    string `gorm:"size:30" json:"first_name"`
	LastName     string `gorm:"size:30" json:"last_name"`
	PasswordHash string `gorm:"not null" json:"-"`
	Currency     string `gorm:"size:3;not null" json:"currency"`
	Organisation string `gorm:"size:128" json:"organisation_name,omitempty"`

	ReferralCode       string  `gorm:"type:uuid;uniqueIndex;not null" json:"referral_code"`
	InvitedByAccountID *string `gorm:"type:uuid;index" json:"invited_by_account_id,omitempty"`
	InvitedBy          *Account `gorm:"foreignKey:InvitedByAccountID" json:"-"`

	// 💳 Payout recipient on the payment processor
	PaymentAccountID *string `gorm:"size:128" json:"payment_account_id,omitempty"`
	PaymentOnboarded bool    `gorm:"default:false" json:"payment_onboarded"`

	IsStaff    bool `gorm:"default:false" json:"is_staff"`
	IsProspect bool `gorm:"default:false" json:"is_prospect"`

	// 🔳 Referral QR
	QRCodeID  string `gorm:"size:64" json:"qr_code_id,omitempty"`
	QRCodeURL string `gorm:"type:text" json:"qr_code_url,omitempty"`

	Timestamps
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.ReferralCode == "" {
		a.ReferralCode = uuid.NewString()
	}
	return nil
}

// HasPaymentAccount reports whether a payout recipient was provisioned.
func (a *Account) HasPaymentAccount() bool {
	return a.PaymentAccountID != nil && *a.PaymentAccountID != ""
}

func (a *Account) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}
