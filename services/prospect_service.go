// services/prospect_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"ambassador-program/logging"
	"ambassador-program/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateProspectRequest struct {
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	OrganisationName string `json:"organisation_name"`
	Country          string `json:"country"`
}

func (r *CreateProspectRequest) normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Country = strings.ToUpper(strings.TrimSpace(r.Country))
}

func (r CreateProspectRequest) Validate() error {
	var problems []string
	if _, err := mail.ParseAddress(r.Email); err != nil {
		problems = append(problems, "email is invalid")
	}
	if r.Phone == "" {
		problems = append(problems, "phone is required")
	}
	if _, ok := countryCurrency[r.Country]; !ok {
		problems = append(problems, fmt.Sprintf("country %q is not served", r.Country))
	}
	if len(problems) > 0 {
		return ValidationError("%s", strings.Join(problems, "; "))
	}
	return nil
}

// CRMEventType tags the webhook events the CRM sends us.
type CRMEventType string

const (
	CRMEventOpportunityStatusUpdate CRMEventType = "OpportunityStatusUpdate"
	CRMEventContactDelete           CRMEventType = "ContactDelete"
)

type CRMEvent struct {
	Type      CRMEventType `json:"type"`
	ID        string       `json:"id"`
	Status    string       `json:"status,omitempty"`
	ContactID string       `json:"contactId,omitempty"`
}

type ProspectService struct {
	DB             *gorm.DB
	CRM            CRMGateway
	Notifier       Notifier
	GatewayTimeout time.Duration
}

func NewProspectService(db *gorm.DB, crm CRMGateway, notifier Notifier, gatewayTimeout time.Duration) *ProspectService {
	return &ProspectService{DB: db, CRM: crm, Notifier: notifier, GatewayTimeout: gatewayTimeout}
}

// Create stores a prospect invited by inviterID and mirrors it into the CRM.
// A CRM failure leaves the prospect in place without CRM links.
func (s *ProspectService) Create(ctx context.Context, inviterID string, req CreateProspectRequest) (*models.Prospect, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var dup int64
	if err := s.DB.WithContext(ctx).Model(&models.Prospect{}).
		Where("email = ? OR phone = ?", req.Email, req.Phone).
		Count(&dup).Error; err != nil {
		return nil, fmt.Errorf("check duplicates: %w", err)
	}
	if dup > 0 {
		return nil, ConflictError("prospect with this email or phone already exists")
	}

	prospect := models.Prospect{
		Email:              req.Email,
		Phone:              req.Phone,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		OrganisationName:   req.OrganisationName,
		Country:            req.Country,
		InvitedByAccountID: &inviterID,
	}
	if err := s.DB.WithContext(ctx).Create(&prospect).Error; err != nil {
		return nil, fmt.Errorf("create prospect: %w", err)
	}
	logging.Logger.Info("🧲 prospect created", zap.String("prospect_id", prospect.ID), zap.String("inviter_id", inviterID))

	if s.CRM != nil {
		if err := s.mirrorToCRM(ctx, &prospect); err != nil {
			logging.Logger.Warn("CRM sync failed", zap.String("prospect_id", prospect.ID), zap.Error(err))
		}
	}
	return &prospect, nil
}

func (s *ProspectService) mirrorToCRM(ctx context.Context, prospect *models.Prospect) error {
	ctx, cancel := context.WithTimeout(ctx, s.GatewayTimeout)
	defer cancel()

	contactID, err := s.CRM.CreateContact(ctx, prospect)
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	opportunityID, err := s.CRM.CreateOpportunity(ctx, prospect, contactID)
	if err != nil {
		return fmt.Errorf("create opportunity: %w", err)
	}

	prospect.CRMContactID = contactID
	prospect.CRMOpportunityID = opportunityID
	return s.DB.WithContext(ctx).Model(prospect).Updates(map[string]any{
		"crm_contact_id":     contactID,
		"crm_opportunity_id": opportunityID,
	}).Error
}

// List returns the account's downline prospects.
func (s *ProspectService) List(ctx context.Context, accountID string) ([]models.Prospect, error) {
	return Downline(s.DB.WithContext(ctx), accountID)
}

// MarkDealCompleted flips deal_completed and tells the inviter the prospect
// can now be claimed. Already-completed deals are left as they are.
func (s *ProspectService) MarkDealCompleted(ctx context.Context, prospectID string) (*models.Prospect, error) {
	var prospect models.Prospect
	if err := s.DB.WithContext(ctx).First(&prospect, "id = ?", prospectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("prospect %s not found", prospectID)
		}
		return nil, err
	}
	if prospect.DealCompleted {
		return &prospect, nil
	}
	return s.completeDeal(ctx, &prospect)
}

func (s *ProspectService) completeDeal(ctx context.Context, prospect *models.Prospect) (*models.Prospect, error) {
	if err := s.DB.WithContext(ctx).Model(prospect).Update("deal_completed", true).Error; err != nil {
		return nil, fmt.Errorf("mark deal completed: %w", err)
	}
	prospect.DealCompleted = true
	logging.Logger.Info("🤝 deal completed", zap.String("prospect_id", prospect.ID))

	if s.Notifier != nil && prospect.InvitedByAccountID != nil {
		msg := fmt.Sprintf("The deal with %s is closed. You can claim your commission now.", prospect.Email)
		if err := s.Notifier.Notify(ctx, *prospect.InvitedByAccountID, "Deal closed", msg, models.NotificationKindSuccess); err != nil {
			logging.Logger.Warn("deal notification failed", zap.String("prospect_id", prospect.ID), zap.Error(err))
		}
	}
	return prospect, nil
}

// HandleCRMEvent applies a CRM webhook event. Unknown event types are rejected.
func (s *ProspectService) HandleCRMEvent(ctx context.Context, event CRMEvent) error {
	switch event.Type {
	case CRMEventOpportunityStatusUpdate:
		if !strings.EqualFold(event.Status, "won") {
			return nil
		}
		var prospect models.Prospect
		if err := s.DB.WithContext(ctx).First(&prospect, "crm_opportunity_id = ?", event.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("no prospect for opportunity %s", event.ID)
			}
			return err
		}
		if prospect.DealCompleted {
			return nil
		}
		_, err := s.completeDeal(ctx, &prospect)
		return err

	case CRMEventContactDelete:
		return s.DB.WithContext(ctx).Model(&models.Prospect{}).
			Where("crm_contact_id = ?", event.ID).
			Updates(map[string]any{"crm_contact_id": "", "crm_opportunity_id": ""}).Error

	default:
		return UnprocessableError("unrecognized CRM event type %q", event.Type)
	}
}
