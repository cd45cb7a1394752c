// services/payout_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ambassador-program/logging"
	"ambassador-program/models"
	"ambassador-program/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Actor is the authenticated caller.
type Actor struct {
	AccountID string
	IsStaff   bool
}

type PayoutService struct {
	DB             *gorm.DB
	Payments       PaymentGateway
	Notifier       Notifier
	Ops            OpsNotifier
	GatewayTimeout time.Duration
}

func NewPayoutService(db *gorm.DB, payments PaymentGateway, notifier Notifier, ops OpsNotifier, gatewayTimeout time.Duration) *PayoutService {
	if ops == nil {
		ops = NoopOps
	}
	return &PayoutService{DB: db, Payments: payments, Notifier: notifier, Ops: ops, GatewayTimeout: gatewayTimeout}
}

// ListCommissions returns the caller's commissions, or everyone's for staff.
// Staff may narrow the list with accountID.
func (s *PayoutService) ListCommissions(ctx context.Context, actor Actor, accountID string) ([]models.Commission, error) {
	query := s.DB.WithContext(ctx).Preload("Prospect").Order("created_at DESC")
	switch {
	case !actor.IsStaff:
		query = query.Where("account_id = ?", actor.AccountID)
	case accountID != "":
		query = query.Where("account_id = ?", accountID)
	}

	var commissions []models.Commission
	if err := query.Find(&commissions).Error; err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	return commissions, nil
}

// Payout transfers a commission to its recipient and marks it paid. The
// commission row stays locked for the duration of the transfer call.
func (s *PayoutService) Payout(ctx context.Context, actor Actor, commissionID string) (*models.Commission, error) {
	var commission models.Commission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&commission, "id = ?", commissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("commission %s not found", commissionID)
			}
			return fmt.Errorf("lock commission: %w", err)
		}

		if commission.AccountID != actor.AccountID && !actor.IsStaff {
			return AuthorizationError("you can't submit payouts for this commission")
		}
		if commission.Paid {
			return ConflictError("commission already paid")
		}

		var recipient models.Account
		if err := tx.First(&recipient, "id = ?", commission.AccountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return IntegrityError(err, "recipient %s of commission %s is missing", commission.AccountID, commission.ID)
			}
			return fmt.Errorf("load recipient: %w", err)
		}
		if !recipient.HasPaymentAccount() {
			return UnprocessableError("recipient has no payment account")
		}
		if !recipient.PaymentOnboarded {
			return UnprocessableError("recipient has not completed payment onboarding")
		}
		if s.Payments == nil {
			return ExternalGatewayError("payment gateway is not configured", errors.New("no payment gateway"))
		}

		gwCtx, cancel := context.WithTimeout(ctx, s.GatewayTimeout)
		defer cancel()

		started := time.Now()
		ref, err := s.Payments.CreateTransfer(gwCtx, *recipient.PaymentAccountID, commission.MoneyAmount, commission.Currency, "commission-payout-"+commission.ID)
		monitoring.GatewayCallDuration.WithLabelValues("payments", "create_transfer").Observe(time.Since(started).Seconds())
		if err != nil {
			return ExternalGatewayError(fmt.Sprintf("transfer commission %s", commission.ID), err)
		}

		now := time.Now()
		res := tx.Model(&models.Commission{}).
			Where("id = ? AND paid = ?", commission.ID, false).
			Updates(map[string]any{"paid": true, "transfer_reference": ref, "paid_at": now})
		if res.Error != nil {
			return fmt.Errorf("mark commission paid: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return ConflictError("commission already paid")
		}
		commission.Paid = true
		commission.TransferReference = &ref
		commission.PaidAt = &now
		return nil
	})
	if err != nil {
		monitoring.PayoutsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		logging.Logger.Warn("payout rejected", zap.String("commission_id", commissionID), zap.Error(err))
		return nil, err
	}

	monitoring.PayoutsTotal.WithLabelValues("success").Inc()
	logging.Logger.Info("💸 commission paid",
		zap.String("commission_id", commission.ID),
		zap.String("transfer_reference", *commission.TransferReference),
	)
	if s.Notifier != nil {
		msg := fmt.Sprintf("Your commission of %s %s is on its way.", FormatAmount(commission.MoneyAmount, commission.Currency), commission.Currency)
		if err := s.Notifier.Notify(ctx, commission.AccountID, "Payout sent", msg, models.NotificationKindSuccess); err != nil {
			logging.Logger.Warn("payout notification failed", zap.Error(err))
		}
	}
	if err := s.Ops.Send(fmt.Sprintf("Commission %s paid (%s %s)", commission.ID, FormatAmount(commission.MoneyAmount, commission.Currency), commission.Currency)); err != nil {
		logging.Logger.Warn("ops notification failed", zap.Error(err))
	}
	return &commission, nil
}
