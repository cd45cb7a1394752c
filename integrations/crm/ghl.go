// integrations/crm/ghl.go
package crm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ambassador-program/logging"
	"ambassador-program/models"
	"ambassador-program/services"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	provider    = "gohighlevel"
	apiVersion  = "2021-07-28"
	gatewayName = "crm"
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	CompanyID    string
	RefreshToken string
	Locations    map[string]string // country -> location id
	Timeout      time.Duration
}

// GHLClient mirrors prospects into GoHighLevel. The agency OAuth token lives
// in the crm_tokens table and is exchanged for a location token per call.
type GHLClient struct {
	DB   *gorm.DB
	http *resty.Client
	cfg  Config
}

func NewGHLClient(db *gorm.DB, cfg Config) *GHLClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Version", apiVersion)
	return &GHLClient{DB: db, http: client, cfg: cfg}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	CompanyID    string `json:"companyId"`
}

func (c *GHLClient) loadToken(ctx context.Context) (*models.CRMToken, error) {
	var tok models.CRMToken
	err := c.DB.WithContext(ctx).First(&tok, "provider = ?", provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if c.cfg.RefreshToken == "" {
			return nil, fmt.Errorf("no CRM token stored and CRM_REFRESH_TOKEN is empty")
		}
		return &models.CRMToken{Provider: provider, CompanyID: c.cfg.CompanyID, RefreshToken: c.cfg.RefreshToken}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load CRM token: %w", err)
	}
	return &tok, nil
}

// RefreshAgencyToken trades the stored refresh token for a new pair and
// upserts the crm_tokens row.
func (c *GHLClient) RefreshAgencyToken(ctx context.Context) error {
	tok, err := c.loadToken(ctx)
	if err != nil {
		return err
	}

	var out tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"grant_type":    "refresh_token",
			"refresh_token": tok.RefreshToken,
		}).
		SetResult(&out).
		Post("/oauth/token")
	if err := classify("refresh_token", resp, err); err != nil {
		return err
	}

	tok.AccessToken = out.AccessToken
	tok.RefreshToken = out.RefreshToken
	tok.ExpiresIn = out.ExpiresIn
	tok.RefreshedAt = time.Now().UTC()
	if out.CompanyID != "" {
		tok.CompanyID = out.CompanyID
	}

	if err := c.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"company_id", "access_token", "refresh_token", "expires_in", "refreshed_at"}),
	}).Create(tok).Error; err != nil {
		return fmt.Errorf("store CRM token: %w", err)
	}
	logging.Logger.Info("🔑 CRM agency token refreshed", zap.Int("expires_in", tok.ExpiresIn))
	return nil
}

func (c *GHLClient) locationFor(country string) (string, error) {
	loc, ok := c.cfg.Locations[strings.ToUpper(country)]
	if !ok || loc == "" {
		return "", services.ValidationError("no CRM location configured for country %q", country)
	}
	return loc, nil
}

func (c *GHLClient) locationToken(ctx context.Context, locationID string) (string, error) {
	tok, err := c.loadToken(ctx)
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("CRM agency token has not been refreshed yet")
	}

	var out tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(tok.AccessToken).
		SetFormData(map[string]string{
			"locationId": locationID,
			"companyId":  tok.CompanyID,
		}).
		SetResult(&out).
		Post("/oauth/locationToken")
	if err := classify("location_token", resp, err); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func (c *GHLClient) CreateContact(ctx context.Context, prospect *models.Prospect) (string, error) {
	locationID, err := c.locationFor(prospect.Country)
	if err != nil {
		return "", err
	}
	token, err := c.locationToken(ctx, locationID)
	if err != nil {
		return "", err
	}

	var out struct {
		Contact struct {
			ID string `json:"id"`
		} `json:"contact"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]any{
			"locationId":  locationID,
			"firstName":   prospect.FirstName,
			"lastName":    prospect.LastName,
			"email":       prospect.Email,
			"phone":       prospect.Phone,
			"companyName": prospect.OrganisationName,
			"country":     prospect.Country,
			"tags":        []string{"ambassador prospect"},
		}).
		SetResult(&out).
		Post("/contacts/")
	if err := classify("create_contact", resp, err); err != nil {
		return "", err
	}
	return out.Contact.ID, nil
}

func (c *GHLClient) CreateOpportunity(ctx context.Context, prospect *models.Prospect, contactID string) (string, error) {
	locationID, err := c.locationFor(prospect.Country)
	if err != nil {
		return "", err
	}
	token, err := c.locationToken(ctx, locationID)
	if err != nil {
		return "", err
	}

	var out struct {
		Opportunity struct {
			ID string `json:"id"`
		} `json:"opportunity"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]any{
			"locationId": locationID,
			"name":       fmt.Sprintf("%s %s", prospect.Email, prospect.OrganisationName),
			"status":     "open",
			"contactId":  contactID,
		}).
		SetResult(&out).
		Post("/opportunities/")
	if err := classify("create_opportunity", resp, err); err != nil {
		return "", err
	}
	return out.Opportunity.ID, nil
}

func classify(operation string, resp *resty.Response, err error) error {
	if err != nil {
		return &services.GatewayError{Gateway: gatewayName, Operation: operation, Transient: true, Err: err}
	}
	if !resp.IsError() {
		return nil
	}
	code := resp.StatusCode()
	return &services.GatewayError{
		Gateway:   gatewayName,
		Operation: operation,
		Status:    code,
		Transient: code == http.StatusTooManyRequests || code >= http.StatusInternalServerError,
		Err:       fmt.Errorf("%s", strings.TrimSpace(resp.String())),
	}
}
