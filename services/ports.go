package services

import (
	"context"

	"ambassador-program/models"

	"github.com/shopspring/decimal"
)

// PaymentGateway is the payout side of the payment processor. Calls are
// synchronous and not idempotent on their own: callers pass an idempotency
// key and never retry blindly.
type PaymentGateway interface {
	CreatePaymentAccount(ctx context.Context, account *models.Account, idempotencyKey string) (string, error)
	CreateTransfer(ctx context.Context, accountRef string, amount decimal.Decimal, currency, idempotencyKey string) (string, error)
	RetrieveAccount(ctx context.Context, accountRef string) (*PaymentAccountStatus, error)
	CreateOnboardingLink(ctx context.Context, accountRef string) (string, error)
}

// PaymentAccountStatus is what the core needs to know about a recipient.
type PaymentAccountStatus struct {
	ID               string `json:"id"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	CapabilityStatus string `json:"capability_status"`
}

// CRMGateway mirrors prospects into the CRM.
type CRMGateway interface {
	CreateContact(ctx context.Context, prospect *models.Prospect) (string, error)
	CreateOpportunity(ctx context.Context, prospect *models.Prospect, contactID string) (string, error)
	RefreshAgencyToken(ctx context.Context) error
}

// QRCampaigns creates hosted (dynamic) QR codes.
type QRCampaigns interface {
	CreateCampaign(ctx context.Context, targetURL, name string) (string, error)
}

// ObjectStore keeps rendered assets and returns their public URL.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Mailer sends HTML email.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// Notifier delivers in-app notifications to an account.
type Notifier interface {
	Notify(ctx context.Context, accountID, title, message string, kind models.NotificationKind) error
}

// OpsNotifier posts operational messages to the team channel.
type OpsNotifier interface {
	Send(message string) error
}

type noopOps struct{}

func (noopOps) Send(string) error { return nil }

// NoopOps discards operational messages.
var NoopOps OpsNotifier = noopOps{}
