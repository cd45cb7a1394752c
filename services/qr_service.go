// services/qr_service.go
package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"ambassador-program/logging"
	"ambassador-program/models"

	"github.com/gosimple/slug"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QRBundleType selects how a referral QR code is produced.
type QRBundleType string

const (
	QRBundleStatic  QRBundleType = "static"  // PNG rendered here, stored in object storage
	QRBundleDynamic QRBundleType = "dynamic" // hosted campaign, target editable later
)

const qrPNGSize = 512

type QRService struct {
	DB          *gorm.DB
	Store       ObjectStore
	Campaigns   QRCampaigns
	FrontendURL string
}

func NewQRService(db *gorm.DB, store ObjectStore, campaigns QRCampaigns, frontendURL string) *QRService {
	return &QRService{DB: db, Store: store, Campaigns: campaigns, FrontendURL: strings.TrimRight(frontendURL, "/")}
}

// ReferralLink is the registration URL carrying the account's referral code.
func (s *QRService) ReferralLink(acc *models.Account) string {
	return fmt.Sprintf("%s/register?referral_code=%s", s.FrontendURL, url.QueryEscape(acc.ReferralCode))
}

// Generate produces the account's referral QR and stores the result on it.
func (s *QRService) Generate(ctx context.Context, accountID string, bundle QRBundleType) (*models.Account, error) {
	var acc models.Account
	if err := s.DB.WithContext(ctx).First(&acc, "id = ?", accountID).Error; err != nil {
		return nil, NotFoundError("account %s not found", accountID)
	}

	link := s.ReferralLink(&acc)
	code := acc.ReferralCode
	if len(code) > 8 {
		code = code[:8]
	}
	name := slug.Make(fmt.Sprintf("%s %s", acc.FullName(), code))

	var qrID, qrURL string
	switch bundle {
	case QRBundleStatic:
		if s.Store == nil {
			return nil, UnprocessableError("static QR codes are not configured")
		}
		png, err := qrcode.Encode(link, qrcode.Medium, qrPNGSize)
		if err != nil {
			return nil, fmt.Errorf("render qr: %w", err)
		}
		qrURL, err = s.Store.PutObject(ctx, "qr/"+name+".png", png, "image/png")
		if err != nil {
			return nil, ExternalGatewayError("upload qr image", err)
		}
		qrID = name

	case QRBundleDynamic:
		if s.Campaigns == nil {
			return nil, UnprocessableError("dynamic QR codes are not configured")
		}
		id, err := s.Campaigns.CreateCampaign(ctx, link, name)
		if err != nil {
			return nil, ExternalGatewayError("create qr campaign", err)
		}
		qrID, qrURL = id, link

	default:
		return nil, ValidationError("unrecognized bundle_type %q", bundle)
	}

	if err := s.DB.WithContext(ctx).Model(&acc).Updates(map[string]any{
		"qr_code_id":  qrID,
		"qr_code_url": qrURL,
	}).Error; err != nil {
		return nil, fmt.Errorf("store qr code: %w", err)
	}
	acc.QRCodeID, acc.QRCodeURL = qrID, qrURL
	logging.Logger.Info("🔳 referral QR generated", zap.String("account_id", acc.ID), zap.String("bundle", string(bundle)))
	return &acc, nil
}
