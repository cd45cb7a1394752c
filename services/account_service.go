// services/account_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"ambassador-program/auth"
	"ambassador-program/logging"
	"ambassador-program/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type RegisterRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	Phone            string `json:"phone"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Currency         string `json:"currency"`
	OrganisationName string `json:"organisation_name"`
	ReferralCode     string `json:"referral_code"`
}

func (r *RegisterRequest) normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.ReferralCode = strings.TrimSpace(r.ReferralCode)
}

func (r RegisterRequest) Validate() error {
	var problems []string
	if _, err := mail.ParseAddress(r.Email); err != nil {
		problems = append(problems, "email is invalid")
	}
	if r.Phone == "" {
		problems = append(problems, "phone is required")
	}
	if len(r.Password) < minPasswordLength {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if _, err := CountryForCurrency(r.Currency); err != nil {
		problems = append(problems, fmt.Sprintf("currency %q is not supported", r.Currency))
	}
	if len(problems) > 0 {
		return ValidationError("%s", strings.Join(problems, "; "))
	}
	return nil
}

type AccountService struct {
	DB       *gorm.DB
	Tokens   *auth.Tokens
	Notifier Notifier
	Mailer   Mailer
}

func NewAccountService(db *gorm.DB, tokens *auth.Tokens, notifier Notifier, mailer Mailer) *AccountService {
	return &AccountService{DB: db, Tokens: tokens, Notifier: notifier, Mailer: mailer}
}

// Register creates an account and links its inviter exactly once: a
// prospect record matching the email or phone wins over a referral code.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := models.Account{
		Email:        req.Email,
		Phone:        req.Phone,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
		Currency:     req.Currency,
		Organisation: req.OrganisationName,
	}

	var inviter *models.Account
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Account{}).Where("email = ?", req.Email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ConflictError("an account with this email already exists")
		}

		if req.ReferralCode != "" {
			var referrer models.Account
			if err := tx.First(&referrer, "referral_code = ?", req.ReferralCode).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ValidationError("referral code is not valid")
				}
				return err
			}
			inviter = &referrer
		}

		var prospect models.Prospect
		err := tx.Where("email = ? OR phone = ?", req.Email, req.Phone).First(&prospect).Error
		switch {
		case err == nil:
			if prospect.RegisteredAccountID != nil {
				return ConflictError("a matching prospect is already linked to another account")
			}
			acc.IsProspect = true
			if prospect.InvitedByAccountID != nil {
				var byProspect models.Account
				if err := tx.First(&byProspect, "id = ?", *prospect.InvitedByAccountID).Error; err != nil {
					return IntegrityError(err, "inviter of prospect %s is missing", prospect.ID)
				}
				inviter = &byProspect
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if inviter != nil {
			acc.InvitedByAccountID = &inviter.ID
		}
		if err := tx.Create(&acc).Error; err != nil {
			return fmt.Errorf("create account: %w", err)
		}

		if acc.IsProspect {
			if err := tx.Model(&prospect).Update("registered_account_id", acc.ID).Error; err != nil {
				return fmt.Errorf("link prospect: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Logger.Info("👤 account registered",
		zap.String("account_id", acc.ID),
		zap.Bool("is_prospect", acc.IsProspect),
		zap.Bool("has_inviter", inviter != nil),
	)
	if inviter != nil {
		s.announceNewAmbassador(ctx, inviter, &acc)
	}
	return &acc, nil
}

func (s *AccountService) announceNewAmbassador(ctx context.Context, inviter, acc *models.Account) {
	msg := fmt.Sprintf("New Ambassador: %s registered using your referral code", acc.FullName())
	if s.Notifier != nil {
		if err := s.Notifier.Notify(ctx, inviter.ID, "Your new Ambassador", msg, models.NotificationKindInfo); err != nil {
			logging.Logger.Warn("inviter notification failed", zap.String("account_id", inviter.ID), zap.Error(err))
		}
	}
	if s.Mailer != nil {
		body := fmt.Sprintf("<p>Hi %s,</p><p>%s.</p>", inviter.FirstName, msg)
		if err := s.Mailer.SendEmail(inviter.Email, "You have a new Ambassador", body); err != nil {
			logging.Logger.Warn("inviter email failed", zap.String("account_id", inviter.ID), zap.Error(err))
		}
	}
}

// Login checks credentials and issues a token pair.
func (s *AccountService) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	var acc models.Account
	if err := s.DB.WithContext(ctx).First(&acc, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, AuthorizationError("invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, AuthorizationError("invalid email or password")
	}
	return s.Tokens.GeneratePair(acc.ID, acc.Email, acc.IsStaff)
}

// Refresh issues a new pair from a valid refresh token. Staff status is
// re-read so a demoted account loses it on the next refresh.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.Tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, AuthorizationError("invalid or expired refresh token")
	}
	acc, err := s.Profile(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}
	return s.Tokens.GeneratePair(acc.ID, acc.Email, acc.IsStaff)
}

func (s *AccountService) Profile(ctx context.Context, accountID string) (*models.Account, error) {
	var acc models.Account
	if err := s.DB.WithContext(ctx).First(&acc, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("account %s not found", accountID)
		}
		return nil, err
	}
	return &acc, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	acc, err := s.Profile(ctx, accountID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(oldPassword)); err != nil {
		return ValidationError("old password is wrong")
	}
	if len(newPassword) < minPasswordLength {
		return ValidationError("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.DB.WithContext(ctx).Model(acc).Update("password_hash", string(hash)).Error
}
