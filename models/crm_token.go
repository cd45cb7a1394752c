package models

import "time"

// CRMToken holds the CRM agency OAuth tokens. A single row keyed by provider.
type CRMToken struct {
	Provider     string    `gorm:"primaryKey;size:32" json:"provider"`
	CompanyID    string    `gorm:"size:64" json:"company_id"`
	AccessToken  string    `gorm:"type:text;not null" json:"-"`
	RefreshToken string    `gorm:"type:text;not null" json:"-"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshedAt  time.Time `json:"refreshed_at"`
}
