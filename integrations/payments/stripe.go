// integrations/payments/stripe.go
package payments

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ambassador-program/models"
	"ambassador-program/services"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	apiVersion  = "2025-10-29.preview"
	gatewayName = "stripe"
)

type Config struct {
	BaseURL                  string
	SecretKey                string
	FinancialAccount         string
	FinancialAccountCurrency string
	OnboardingReturnURL      string
	Timeout                  time.Duration
}

// StripeClient talks to the Stripe v2 core accounts and outbound payments
// APIs. It never retries on its own; callers supply idempotency keys.
type StripeClient struct {
	http *resty.Client
	cfg  Config
}

func NewStripeClient(cfg Config) *StripeClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Stripe-Version", apiVersion).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0)
	return &StripeClient{http: client, cfg: cfg}
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type accountResponse struct {
	ID            string `json:"id"`
	Configuration struct {
		Recipient struct {
			Capabilities struct {
				BankAccounts struct {
					Local struct {
						Status string `json:"status"`
					} `json:"local"`
				} `json:"bank_accounts"`
			} `json:"capabilities"`
		} `json:"recipient"`
	} `json:"configuration"`
}

func (c *StripeClient) request(ctx context.Context, idempotencyKey string) *resty.Request {
	req := c.http.R().SetContext(ctx).SetError(&stripeError{})
	if idempotencyKey != "" {
		req.SetHeader("Idempotency-Key", idempotencyKey)
	}
	return req
}

// CreatePaymentAccount creates a recipient able to receive local bank
// transfers in the account's market.
func (c *StripeClient) CreatePaymentAccount(ctx context.Context, account *models.Account, idempotencyKey string) (string, error) {
	country, err := services.CountryForCurrency(account.Currency)
	if err != nil {
		return "", err
	}
	body := map[string]any{
		"configuration": map[string]any{
			"recipient": map[string]any{
				"capabilities": map[string]any{
					"bank_accounts": map[string]any{
						"local": map[string]any{"requested": true},
					},
				},
			},
		},
		"contact_email": account.Email,
		"display_name":  account.FullName(),
		"identity": map[string]any{
			"country":     country,
			"entity_type": "individual",
		},
		"include": []string{"identity", "configuration.recipient", "requirements"},
	}

	var out accountResponse
	resp, err := c.request(ctx, idempotencyKey).SetBody(body).SetResult(&out).Post("/v2/core/accounts")
	if err := classify("create_account", resp, err); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &services.GatewayError{Gateway: gatewayName, Operation: "create_account", Status: resp.StatusCode(), Err: fmt.Errorf("response carried no account id")}
	}
	return out.ID, nil
}

// CreateTransfer sends an outbound payment from the platform financial
// account to the recipient.
func (c *StripeClient) CreateTransfer(ctx context.Context, accountRef string, amount decimal.Decimal, currency, idempotencyKey string) (string, error) {
	minor, err := services.MinorUnits(amount, currency)
	if err != nil {
		return "", err
	}
	body := map[string]any{
		"from": map[string]any{
			"financial_account": c.cfg.FinancialAccount,
			"currency":          strings.ToLower(c.cfg.FinancialAccountCurrency),
		},
		"to": map[string]any{"recipient": accountRef},
		"amount": map[string]any{
			"value":    minor,
			"currency": strings.ToLower(currency),
		},
		"description": "Ambassador Payouts",
	}

	var out struct {
		ID string `json:"id"`
	}
	resp, err := c.request(ctx, idempotencyKey).SetBody(body).SetResult(&out).Post("/v2/money_management/outbound_payments")
	if err := classify("create_transfer", resp, err); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &services.GatewayError{Gateway: gatewayName, Operation: "create_transfer", Status: resp.StatusCode(), Err: fmt.Errorf("response carried no payment id")}
	}
	return out.ID, nil
}

func (c *StripeClient) RetrieveAccount(ctx context.Context, accountRef string) (*services.PaymentAccountStatus, error) {
	var out accountResponse
	resp, err := c.request(ctx, "").
		SetPathParam("id", accountRef).
		SetQueryParam("include", "configuration.recipient").
		SetResult(&out).
		Get("/v2/core/accounts/{id}")
	if err := classify("retrieve_account", resp, err); err != nil {
		return nil, err
	}
	status := out.Configuration.Recipient.Capabilities.BankAccounts.Local.Status
	return &services.PaymentAccountStatus{
		ID:               out.ID,
		PayoutsEnabled:   status == "active",
		CapabilityStatus: status,
	}, nil
}

func (c *StripeClient) CreateOnboardingLink(ctx context.Context, accountRef string) (string, error) {
	body := map[string]any{
		"account": accountRef,
		"use_case": map[string]any{
			"type": "account_onboarding",
			"account_onboarding": map[string]any{
				"configurations": []string{"recipient"},
				"return_url":     c.cfg.OnboardingReturnURL,
				"refresh_url":    c.cfg.OnboardingReturnURL,
			},
		},
	}
	var out struct {
		URL string `json:"url"`
	}
	resp, err := c.request(ctx, "").SetBody(body).SetResult(&out).Post("/v2/core/account_links")
	if err := classify("create_account_link", resp, err); err != nil {
		return "", err
	}
	return out.URL, nil
}

// classify turns a transport failure or an error status into a
// services.GatewayError. Network errors, 429 and 5xx are transient.
func classify(operation string, resp *resty.Response, err error) error {
	if err != nil {
		return &services.GatewayError{Gateway: gatewayName, Operation: operation, Transient: true, Err: err}
	}
	if !resp.IsError() {
		return nil
	}
	code := resp.StatusCode()
	msg := strings.TrimSpace(resp.String())
	if e, ok := resp.Error().(*stripeError); ok && e.Error.Message != "" {
		msg = e.Error.Message
	}
	return &services.GatewayError{
		Gateway:   gatewayName,
		Operation: operation,
		Status:    code,
		Transient: code == http.StatusTooManyRequests || code >= http.StatusInternalServerError,
		Err:       fmt.Errorf("%s", msg),
	}
}
