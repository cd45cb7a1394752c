package services

import (
	"context"
	"testing"
	"time"

	"ambassador-program/auth"
	"ambassador-program/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAccountService(db *gorm.DB, notifier Notifier, mailer Mailer) *AccountService {
	tokens := auth.NewTokens("access", "refresh", time.Minute, time.Hour)
	return NewAccountService(db, tokens, notifier, mailer)
}

func registerRequest(email, phone string) RegisterRequest {
	return RegisterRequest{
		Email:     email,
		Password:  "correct-horse",
		Phone:     phone,
		FirstName: "New",
		LastName:  "Ambassador",
		Currency:  "usd",
	}
}

func TestRegisterLinksInviterFromReferralCode(t *testing.T) {
	db := newTestDB(t)
	inviter := createAccount(t, db, "inviter@example.com", nil)
	notifier := &fakeNotifier{}
	mailer := &fakeMailer{}

	req := registerRequest("New@Example.com", "+15550001")
	req.ReferralCode = inviter.ReferralCode
	acc, err := newAccountService(db, notifier, mailer).Register(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", acc.Email)
	assert.Equal(t, "USD", acc.Currency)
	require.NotNil(t, acc.InvitedByAccountID)
	assert.Equal(t, inviter.ID, *acc.InvitedByAccountID)
	assert.False(t, acc.IsProspect)
	assert.NotEqual(t, "correct-horse", acc.PasswordHash)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, inviter.ID, notifier.sent[0].AccountID)
	assert.Equal(t, models.NotificationKindInfo, notifier.sent[0].Kind)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "inviter@example.com", mailer.sent[0].To)
}

func TestRegisterMatchingProspectInviterWins(t *testing.T) {
	db := newTestDB(t)
	prospectInviter := createAccount(t, db, "closer@example.com", nil)
	codeOwner := createAccount(t, db, "code@example.com", nil)
	prospect := createProspect(t, db, "lead@example.com", prospectInviter, false)

	req := registerRequest("lead@example.com", "+15550002")
	req.ReferralCode = codeOwner.ReferralCode
	acc, err := newAccountService(db, nil, nil).Register(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, acc.IsProspect)
	require.NotNil(t, acc.InvitedByAccountID)
	assert.Equal(t, prospectInviter.ID, *acc.InvitedByAccountID)

	linked := reloadProspect(t, db, prospect.ID)
	require.NotNil(t, linked.RegisteredAccountID)
	assert.Equal(t, acc.ID, *linked.RegisteredAccountID)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	createAccount(t, db, "taken@example.com", nil)
	svc := newAccountService(db, nil, nil)

	req := registerRequest("taken@example.com", "+15550003")
	_, err := svc.Register(context.Background(), req)
	requireKind(t, err, KindConflict)

	req = registerRequest("fresh@example.com", "+15550003")
	req.ReferralCode = "00000000-0000-0000-0000-00000000dead"
	_, err = svc.Register(context.Background(), req)
	requireKind(t, err, KindValidation)

	req = registerRequest("fresh@example.com", "+15550003")
	req.Currency = "JPY"
	_, err = svc.Register(context.Background(), req)
	requireKind(t, err, KindValidation)

	req = registerRequest("fresh@example.com", "+15550003")
	req.Password = "short"
	_, err = svc.Register(context.Background(), req)
	requireKind(t, err, KindValidation)
}

func TestLoginAndRefresh(t *testing.T) {
	db := newTestDB(t)
	svc := newAccountService(db, nil, nil)
	acc, err := svc.Register(context.Background(), registerRequest("amb@example.com", "+15550004"))
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "amb@example.com", "wrong-password")
	requireKind(t, err, KindAuthorization)

	pair, err := svc.Login(context.Background(), " AMB@example.com ", "correct-horse")
	require.NoError(t, err)
	claims, err := svc.Tokens.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, claims.AccountID)
	assert.False(t, claims.IsStaff)

	require.NoError(t, db.Model(acc).Update("is_staff", true).Error)
	refreshed, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	claims, err = svc.Tokens.ValidateAccess(refreshed.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsStaff)

	_, err = svc.Refresh(context.Background(), pair.AccessToken)
	requireKind(t, err, KindAuthorization)
}

func TestChangePassword(t *testing.T) {
	db := newTestDB(t)
	svc := newAccountService(db, nil, nil)
	acc, err := svc.Register(context.Background(), registerRequest("amb@example.com", "+15550005"))
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), acc.ID, "nope", "another-secret")
	requireKind(t, err, KindValidation)

	require.NoError(t, svc.ChangePassword(context.Background(), acc.ID, "correct-horse", "another-secret"))
	_, err = svc.Login(context.Background(), "amb@example.com", "another-secret")
	require.NoError(t, err)
}

func TestRegisterRejectsProspectAlreadyLinked(t *testing.T) {
	db := newTestDB(t)
	inviter := createAccount(t, db, "closer@example.com", nil)
	prospect := createProspect(t, db, "lead@example.com", inviter, false)
	require.NoError(t, db.Model(prospect).Update("phone", "+15550009").Error)
	svc := newAccountService(db, nil, nil)

	_, err := svc.Register(context.Background(), registerRequest("lead@example.com", "+15550009"))
	require.NoError(t, err)

	// Same phone, different email: the prospect already belongs to the first account.
	_, err = svc.Register(context.Background(), registerRequest("second@example.com", "+15550009"))
	requireKind(t, err, KindConflict)

	var n int64
	require.NoError(t, db.Model(&models.Account{}).Where("email = ?", "second@example.com").Count(&n).Error)
	assert.Zero(t, n)
}
