package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"ambassador-program/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) PutObject(_ context.Context, key string, body []byte, contentType string) (string, error) {
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = body
	return "https://cdn.example.com/" + key, nil
}

type fakeCampaigns struct {
	targets, names []string
}

func (f *fakeCampaigns) CreateCampaign(_ context.Context, target, name string) (string, error) {
	f.targets = append(f.targets, target)
	f.names = append(f.names, name)
	return "qr-123", nil
}

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestGenerateStaticQRUploadsPNG(t *testing.T) {
	db := newTestDB(t)
	acc := createAccount(t, db, "amb@example.com", nil)
	store := &memoryStore{}
	svc := NewQRService(db, store, nil, "https://app.example.com/")

	updated, err := svc.Generate(context.Background(), acc.ID, QRBundleStatic)
	require.NoError(t, err)
	require.Len(t, store.objects, 1)
	for key, body := range store.objects {
		assert.True(t, strings.HasPrefix(key, "qr/amb-"), key)
		assert.True(t, strings.HasSuffix(key, ".png"), key)
		assert.True(t, bytes.HasPrefix(body, pngMagic))
		assert.Equal(t, "https://cdn.example.com/"+key, updated.QRCodeURL)
	}

	var stored models.Account
	require.NoError(t, db.First(&stored, "id = ?", acc.ID).Error)
	assert.Equal(t, updated.QRCodeURL, stored.QRCodeURL)
}

func TestGenerateDynamicQRCreatesCampaign(t *testing.T) {
	db := newTestDB(t)
	acc := createAccount(t, db, "amb@example.com", nil)
	campaigns := &fakeCampaigns{}
	svc := NewQRService(db, nil, campaigns, "https://app.example.com")

	updated, err := svc.Generate(context.Background(), acc.ID, QRBundleDynamic)
	require.NoError(t, err)
	assert.Equal(t, "qr-123", updated.QRCodeID)
	require.Len(t, campaigns.targets, 1)
	assert.Equal(t, "https://app.example.com/register?referral_code="+acc.ReferralCode, campaigns.targets[0])
	assert.NotContains(t, campaigns.names[0], " ")
}

func TestGenerateQRRejectsUnknownBundle(t *testing.T) {
	db := newTestDB(t)
	acc := createAccount(t, db, "amb@example.com", nil)
	svc := NewQRService(db, &memoryStore{}, &fakeCampaigns{}, "https://app.example.com")

	_, err := svc.Generate(context.Background(), acc.ID, QRBundleType("animated"))
	requireKind(t, err, KindValidation)

	_, err = NewQRService(db, nil, nil, "").Generate(context.Background(), acc.ID, QRBundleStatic)
	requireKind(t, err, KindUnprocessable)
}
