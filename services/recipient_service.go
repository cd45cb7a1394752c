package services

import (
	"context"
	"errors"
	"fmt"

	"ambassador-program/logging"
	"ambassador-program/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// activeCapability is the recipient capability status that allows payouts.
const activeCapability = "active"

// RecipientService manages an ambassador's payout recipient on the payment
// processor.
type RecipientService struct {
	DB       *gorm.DB
	Payments PaymentGateway
	Mailer   Mailer
}

func NewRecipientService(db *gorm.DB, payments PaymentGateway, mailer Mailer) *RecipientService {
	return &RecipientService{DB: db, Payments: payments, Mailer: mailer}
}

func (s *RecipientService) loadAccount(ctx context.Context, accountID string) (*models.Account, error) {
	if s.Payments == nil {
		return nil, UnprocessableError("payments are not configured")
	}
	var acc models.Account
	if err := s.DB.WithContext(ctx).First(&acc, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("account %s not found", accountID)
		}
		return nil, err
	}
	return &acc, nil
}

// Ensure creates the recipient if the account has none yet.
func (s *RecipientService) Ensure(ctx context.Context, accountID string) (*models.Account, error) {
	acc, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.HasPaymentAccount() {
		return acc, nil
	}

	ref, err := s.Payments.CreatePaymentAccount(ctx, acc, "payment-account-"+acc.ID)
	if err != nil {
		return nil, ExternalGatewayError("create payment recipient", err)
	}
	if err := s.DB.WithContext(ctx).Model(acc).Update("payment_account_id", ref).Error; err != nil {
		return nil, fmt.Errorf("store payment recipient: %w", err)
	}
	acc.PaymentAccountID = &ref
	logging.Logger.Info("payment recipient created", zap.String("account_id", acc.ID), zap.String("recipient", ref))
	return acc, nil
}

// Refresh reads the recipient from the processor and records onboarding
// completion once the local bank account capability is active.
func (s *RecipientService) Refresh(ctx context.Context, accountID string) (*PaymentAccountStatus, error) {
	acc, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acc.HasPaymentAccount() {
		return nil, UnprocessableError("you don't have a payment recipient account")
	}
	return s.refreshAccount(ctx, acc)
}

func (s *RecipientService) refreshAccount(ctx context.Context, acc *models.Account) (*PaymentAccountStatus, error) {
	status, err := s.Payments.RetrieveAccount(ctx, *acc.PaymentAccountID)
	if err != nil {
		return nil, ExternalGatewayError("retrieve payment recipient", err)
	}
	if !acc.PaymentOnboarded && status.CapabilityStatus == activeCapability {
		if err := s.DB.WithContext(ctx).Model(acc).Update("payment_onboarded", true).Error; err != nil {
			return nil, fmt.Errorf("mark onboarded: %w", err)
		}
		acc.PaymentOnboarded = true
		logging.Logger.Info("payment recipient onboarded", zap.String("account_id", acc.ID))
	}
	return status, nil
}

// SyncPendingOnboarding refreshes every recipient that has not finished
// onboarding. It returns how many flipped to onboarded.
func (s *RecipientService) SyncPendingOnboarding(ctx context.Context) (int, error) {
	if s.Payments == nil {
		return 0, nil
	}
	var pending []models.Account
	if err := s.DB.WithContext(ctx).
		Where("payment_account_id IS NOT NULL AND payment_account_id <> '' AND payment_onboarded = ?", false).
		Find(&pending).Error; err != nil {
		return 0, fmt.Errorf("load pending recipients: %w", err)
	}

	onboarded := 0
	for i := range pending {
		if _, err := s.refreshAccount(ctx, &pending[i]); err != nil {
			logging.Logger.Warn("onboarding refresh failed", zap.String("account_id", pending[i].ID), zap.Error(err))
			continue
		}
		if pending[i].PaymentOnboarded {
			onboarded++
		}
	}
	return onboarded, nil
}

// SendOnboardingLink emails the account a hosted onboarding link.
func (s *RecipientService) SendOnboardingLink(ctx context.Context, accountID string) error {
	acc, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !acc.HasPaymentAccount() {
		return UnprocessableError("payment recipient account not found")
	}
	if acc.PaymentOnboarded {
		return ConflictError("you already onboarded")
	}

	link, err := s.Payments.CreateOnboardingLink(ctx, *acc.PaymentAccountID)
	if err != nil {
		return ExternalGatewayError("create onboarding link", err)
	}
	body := fmt.Sprintf(`<p>Hi %s,</p><p>Finish setting up your payouts here: <a href="%s">%s</a></p>`, acc.FirstName, link, link)
	if err := s.Mailer.SendEmail(acc.Email, "Complete your payout onboarding", body); err != nil {
		return fmt.Errorf("send onboarding email: %w", err)
	}
	return nil
}
