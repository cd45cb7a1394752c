// services/claim_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ambassador-program/logging"
	"ambassador-program/models"
	"ambassador-program/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClaimRequest struct {
	ProspectID string `json:"prospect_id"`
	Quantity   int    `json:"quantity"`
}

func (r ClaimRequest) Validate() error {
	var problems []string
	if strings.TrimSpace(r.ProspectID) == "" {
		problems = append(problems, "prospect_id is required")
	}
	if r.Quantity <= 0 {
		problems = append(problems, "quantity must be a positive integer")
	}
	if len(problems) > 0 {
		return ValidationError("%s", strings.Join(problems, "; "))
	}
	return nil
}

type ClaimResult struct {
	Prospect    models.Prospect     `json:"prospect"`
	Commissions []models.Commission `json:"commissions"`
}

// ClaimService turns a completed, unclaimed prospect into commission rows for
// the whole inviter chain in a single transaction.
type ClaimService struct {
	DB             *gorm.DB
	Allocator      Allocator
	Payments       PaymentGateway
	Notifier       Notifier
	Ops            OpsNotifier
	GatewayTimeout time.Duration
}

func NewClaimService(db *gorm.DB, allocator Allocator, payments PaymentGateway, notifier Notifier, ops OpsNotifier, gatewayTimeout time.Duration) *ClaimService {
	if ops == nil {
		ops = NoopOps
	}
	return &ClaimService{
		DB:             db,
		Allocator:      allocator,
		Payments:       payments,
		Notifier:       notifier,
		Ops:            ops,
		GatewayTimeout: gatewayTimeout,
	}
}

// Claim validates the actor and prospect, then creates one commission per
// chain level. Either every row is committed together with prospect.claimed,
// or nothing is.
func (s *ClaimService) Claim(ctx context.Context, actorID string, req ClaimRequest) (*ClaimResult, error) {
	if err := req.Validate(); err != nil {
		monitoring.ClaimsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	var result ClaimResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prospect models.Prospect
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&prospect, "id = ?", req.ProspectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("prospect %s not found", req.ProspectID)
			}
			return fmt.Errorf("lock prospect: %w", err)
		}

		if prospect.InvitedByAccountID == nil || *prospect.InvitedByAccountID != actorID {
			return AuthorizationError("you can't claim a prospect that wasn't invited by you")
		}
		if !prospect.DealCompleted {
			return ValidationError("prospect's deal is not completed")
		}
		if prospect.Claimed {
			return ConflictError("prospect already claimed")
		}

		cur, err := CurrencyForCountry(prospect.Country)
		if err != nil {
			return err
		}

		// Compare-and-set so a concurrent claim that slipped past the lock
		// (e.g. on a database without row locks) still loses.
		res := tx.Model(&models.Prospect{}).
			Where("id = ? AND claimed = ? AND deal_completed = ?", prospect.ID, false, true).
			Update("claimed", true)
		if res.Error != nil {
			return fmt.Errorf("mark prospect claimed: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return ConflictError("prospect already claimed")
		}
		prospect.Claimed = true

		chain, err := ResolveInviterChain(tx, &prospect)
		if err != nil {
			return err
		}
		allocations, err := s.Allocator.Allocate(len(chain), req.Quantity, cur)
		if err != nil {
			return fmt.Errorf("allocate commissions: %w", err)
		}

		gwCtx, cancel := context.WithTimeout(ctx, s.GatewayTimeout)
		defer cancel()

		commissions := make([]models.Commission, 0, len(chain))
		for i := range chain {
			recipient := &chain[i]
			if !recipient.HasPaymentAccount() {
				if err := s.provisionPaymentAccount(gwCtx, tx, recipient); err != nil {
					return err
				}
			}

			commission := models.Commission{
				ProspectID:  prospect.ID,
				AccountID:   recipient.ID,
				TreeLevel:   allocations[i].Level,
				Quantity:    req.Quantity,
				MoneyAmount: allocations[i].Amount,
				Currency:    allocations[i].Currency,
			}
			if err := tx.Create(&commission).Error; err != nil {
				return fmt.Errorf("create commission at level %d: %w", i, err)
			}
			commissions = append(commissions, commission)
		}

		result = ClaimResult{Prospect: prospect, Commissions: commissions}
		return nil
	})
	if err != nil {
		monitoring.ClaimsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		logging.Logger.Warn("commission claim rejected",
			zap.String("prospect_id", req.ProspectID),
			zap.String("actor_id", actorID),
			zap.Error(err),
		)
		return nil, err
	}

	monitoring.ClaimsTotal.WithLabelValues("success").Inc()
	for _, c := range result.Commissions {
		monitoring.CommissionsCreated.WithLabelValues(strconv.Itoa(c.TreeLevel)).Inc()
	}
	logging.Logger.Info("✅ commission claimed",
		zap.String("prospect_id", result.Prospect.ID),
		zap.String("actor_id", actorID),
		zap.Int("levels", len(result.Commissions)),
	)
	s.announce(ctx, &result)
	return &result, nil
}

func (s *ClaimService) provisionPaymentAccount(ctx context.Context, tx *gorm.DB, recipient *models.Account) error {
	if s.Payments == nil {
		return ExternalGatewayError("payment gateway is not configured", errors.New("no payment gateway"))
	}
	started := time.Now()
	ref, err := s.Payments.CreatePaymentAccount(ctx, recipient, "payment-account-"+recipient.ID)
	monitoring.GatewayCallDuration.WithLabelValues("payments", "create_account").Observe(time.Since(started).Seconds())
	if err != nil {
		return ExternalGatewayError(fmt.Sprintf("create payment account for %s", recipient.ID), err)
	}

	res := tx.Model(&models.Account{}).
		Where("id = ? AND (payment_account_id IS NULL OR payment_account_id = '')", recipient.ID).
		Update("payment_account_id", ref)
	if res.Error != nil {
		return fmt.Errorf("store payment account for %s: %w", recipient.ID, res.Error)
	}
	recipient.PaymentAccountID = &ref
	return nil
}

// announce runs after commit; failures are logged and never undo the claim.
func (s *ClaimService) announce(ctx context.Context, result *ClaimResult) {
	for _, c := range result.Commissions {
		if s.Notifier == nil {
			break
		}
		msg := fmt.Sprintf("You earned %s %s for %s (level %d).",
			FormatAmount(c.MoneyAmount, c.Currency), c.Currency, result.Prospect.Email, c.TreeLevel)
		if err := s.Notifier.Notify(ctx, c.AccountID, "New commission", msg, models.NotificationKindSuccess); err != nil {
			logging.Logger.Warn("commission notification failed", zap.String("account_id", c.AccountID), zap.Error(err))
		}
	}

	msg := fmt.Sprintf("Prospect %s claimed: %d commission(s) created", result.Prospect.Email, len(result.Commissions))
	if err := s.Ops.Send(msg); err != nil {
		logging.Logger.Warn("ops notification failed", zap.Error(err))
	}
}
