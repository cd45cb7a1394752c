package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Prospect is a pre-registration lead tracked until the deal closes.
// Claimed may only go false -> true, and only once DealCompleted is set.
type Prospect struct {
	ID               string `gorm:"primaryKey;type:uuid" json:"id"`
	Email            string `gorm:"uniqueIndex;not null" json:"email"`
	Phone            string `gorm:"size:30;index" json:"phone"`
	FirstName        string `gorm:"size:64" json:"first_name"`
	LastName         string `gorm:"size:64" json:"last_name"`
	OrganisationName string `gorm:"size:128" json:"organisation_name"`
	Country          string `gorm:"size:2;not null" json:"country"` // ISO 3166-1 alpha-2

	DealCompleted bool `gorm:"default:false;index" json:"deal_completed"`
	Claimed       bool `gorm:"default:false" json:"claimed"`

	InvitedByAccountID  *string `gorm:"type:uuid;index" json:"invited_by_account_id,omitempty"`
	RegisteredAccountID *string `gorm:"type:uuid;uniqueIndex" json:"registered_account_id,omitempty"`

	// CRM links
	CRMContactID     string `gorm:"size:64;index" json:"crm_contact_id,omitempty"`
	CRMOpportunityID string `gorm:"size:64;index" json:"crm_opportunity_id,omitempty"`

	Timestamps
}

func (p *Prospect) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
