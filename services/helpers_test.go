package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"ambassador-program/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database. One connection keeps every
// query on the same memory store and serializes concurrent transactions.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Account{},
		&models.Prospect{},
		&models.Commission{},
		&models.Notification{},
		&models.CRMToken{},
	))
	return db
}

func createAccount(t *testing.T, db *gorm.DB, email string, inviter *models.Account) *models.Account {
	t.Helper()
	acc := &models.Account{
		Email:        email,
		Phone:        "+1" + fmt.Sprint(len(email)),
		FirstName:    "Amb",
		LastName:     email,
		PasswordHash: "x",
		Currency:     "USD",
	}
	if inviter != nil {
		acc.InvitedByAccountID = &inviter.ID
	}
	require.NoError(t, db.Create(acc).Error)
	return acc
}

// createLine builds n accounts, each invited by the previous one. The last
// element is the deepest.
func createLine(t *testing.T, db *gorm.DB, n int) []*models.Account {
	t.Helper()
	line := make([]*models.Account, 0, n)
	var prev *models.Account
	for i := 0; i < n; i++ {
		acc := createAccount(t, db, fmt.Sprintf("amb%d@example.com", i), prev)
		line = append(line, acc)
		prev = acc
	}
	return line
}

func createProspect(t *testing.T, db *gorm.DB, email string, inviter *models.Account, dealCompleted bool) *models.Prospect {
	t.Helper()
	p := &models.Prospect{
		Email:         email,
		Phone:         "+44" + email,
		Country:       "US",
		DealCompleted: dealCompleted,
	}
	if inviter != nil {
		p.InvitedByAccountID = &inviter.ID
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

type transferCall struct {
	AccountRef     string
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
}

type fakePayments struct {
	mu              sync.Mutex
	accountKeys     []string
	transfers       []transferCall
	failAccountFor  string // account id whose creation fails
	failTransfer    bool
	capability      string
	onboardingLinks int
}

func (f *fakePayments) CreatePaymentAccount(_ context.Context, acc *models.Account, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountKeys = append(f.accountKeys, key)
	if acc.ID == f.failAccountFor {
		return "", &GatewayError{Gateway: "fake", Operation: "create_account", Status: 503, Transient: true, Err: errors.New("unavailable")}
	}
	return "acct_" + acc.ID, nil
}

func (f *fakePayments) CreateTransfer(_ context.Context, ref string, amount decimal.Decimal, cur, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTransfer {
		return "", &GatewayError{Gateway: "fake", Operation: "create_transfer", Status: 400, Err: errors.New("insufficient funds")}
	}
	f.transfers = append(f.transfers, transferCall{AccountRef: ref, Amount: amount, Currency: cur, IdempotencyKey: key})
	return fmt.Sprintf("obp_%d", len(f.transfers)), nil
}

func (f *fakePayments) RetrieveAccount(_ context.Context, ref string) (*PaymentAccountStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &PaymentAccountStatus{ID: ref, CapabilityStatus: f.capability, PayoutsEnabled: f.capability == "active"}, nil
}

func (f *fakePayments) CreateOnboardingLink(_ context.Context, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onboardingLinks++
	return "https://connect.example.com/" + ref, nil
}

type sentNotification struct {
	AccountID string
	Title     string
	Message   string
	Kind      models.NotificationKind
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Notify(_ context.Context, accountID, title, message string, kind models.NotificationKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{AccountID: accountID, Title: title, Message: message, Kind: kind})
	return nil
}

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	sent []sentMail
}

func (f *fakeMailer) SendEmail(to, subject, body string) error {
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}
