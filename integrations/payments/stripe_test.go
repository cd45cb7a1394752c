package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ambassador-program/models"
	"ambassador-program/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *StripeClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStripeClient(Config{
		BaseURL:                  srv.URL,
		SecretKey:                "sk_test",
		FinancialAccount:         "fa_123",
		FinancialAccountCurrency: "usd",
		OnboardingReturnURL:      "https://example.com/return",
		Timeout:                  2 * time.Second,
	})
}

func TestCreatePaymentAccountSendsRecipientPayload(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/core/accounts", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "payment-account-a1", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, apiVersion, r.Header.Get("Stripe-Version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"acct_1"}`))
	})

	acc := &models.Account{ID: "a1", Email: "amb@example.com", FirstName: "Ada", LastName: "Lee", Currency: "GBP"}
	ref, err := client.CreatePaymentAccount(context.Background(), acc, "payment-account-a1")
	require.NoError(t, err)
	assert.Equal(t, "acct_1", ref)
	assert.Equal(t, "Ada Lee", body["display_name"])
	identity := body["identity"].(map[string]any)
	assert.Equal(t, "GB", identity["country"])
}

func TestCreateTransferUsesMinorUnits(t *testing.T) {
	var body struct {
		Amount struct {
			Value    int64  `json:"value"`
			Currency string `json:"currency"`
		} `json:"amount"`
		To struct {
			Recipient string `json:"recipient"`
		} `json:"to"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/money_management/outbound_payments", r.URL.Path)
		assert.Equal(t, "commission-payout-c1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"obp_9"}`))
	})

	ref, err := client.CreateTransfer(context.Background(), "acct_1", decimal.RequireFromString("22.50"), "USD", "commission-payout-c1")
	require.NoError(t, err)
	assert.Equal(t, "obp_9", ref)
	assert.Equal(t, int64(2250), body.Amount.Value)
	assert.Equal(t, "usd", body.Amount.Currency)
	assert.Equal(t, "acct_1", body.To.Recipient)
}

func TestGatewayErrorsAreClassified(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		transient bool
	}{
		{"bad request", http.StatusBadRequest, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusBadGateway, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"nope"}}`))
			})

			_, err := client.CreateTransfer(context.Background(), "acct_1", decimal.NewFromInt(5), "USD", "k")
			var gwErr *services.GatewayError
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, tc.status, gwErr.Status)
			assert.Equal(t, tc.transient, gwErr.Transient)
			assert.Contains(t, gwErr.Error(), "nope")
		})
	}
}

func TestRetrieveAccountReadsLocalBankCapability(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/core/accounts/acct_1", r.URL.Path)
		assert.Equal(t, "configuration.recipient", r.URL.Query().Get("include"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"acct_1","configuration":{"recipient":{"capabilities":{"bank_accounts":{"local":{"status":"active"}}}}}}`))
	})

	status, err := client.RetrieveAccount(context.Background(), "acct_1")
	require.NoError(t, err)
	assert.Equal(t, "active", status.CapabilityStatus)
	assert.True(t, status.PayoutsEnabled)
}

func TestCreatePaymentAccountRejectsMissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"v2.core.account"}`))
	})

	ref, err := client.CreatePaymentAccount(context.Background(), &models.Account{ID: "a1", Currency: "USD"}, "payment-account-a1")
	var gwErr *services.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "create_account", gwErr.Operation)
	assert.False(t, gwErr.Transient)
	assert.Empty(t, ref)
}
