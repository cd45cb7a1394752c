package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port           string
	Env            string
	AllowedOrigins []string
	DatabaseURL    string
	FrontendURL    string

	JWTSecret        string
	JWTRefreshSecret string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Commission rate card
	DirectSaleRate decimal.Decimal
	TeamRewardRate decimal.Decimal

	GatewayTimeout time.Duration

	// Stripe (payouts)
	StripeSecretKey               string
	StripeBaseURL                 string
	StripeFinancialAccount        string
	StripeFinancialAccountCurrency string
	StripeOnboardingReturnURL     string

	// GoHighLevel (CRM)
	CRMBaseURL       string
	CRMClientID      string
	CRMClientSecret  string
	CRMWebhookSecret string
	CRMCompanyID     string
	CRMRefreshToken  string            // seeds the token row on first refresh
	CRMLocations     map[string]string // country -> location id

	// QRTiger
	QRTigerBaseURL string
	QRTigerAPIKey  string
	QRTigerFolder  string

	// Cloudflare R2 for rendered QR codes
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string
	CDNBaseURL        string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string

	TelegramToken  string
	TelegramChatID int64

	AdminAPIKey           string
	NotificationRetention time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8001"),
		Env:            getEnv("APP_ENV", "development"),
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),

		JWTSecret:        getEnv("JWT_ACCESS_SECRET", ""),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		JWTAccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		JWTRefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 30*24*time.Hour),

		DirectSaleRate: getEnvAsDecimal("COMMISSION_DIRECT_SALE_RATE", decimal.NewFromInt(50)),
		TeamRewardRate: getEnvAsDecimal("COMMISSION_TEAM_REWARD_RATE", decimal.NewFromInt(75)),

		GatewayTimeout: getEnvAsDuration("GATEWAY_TIMEOUT", 15*time.Second),

		StripeSecretKey:                getEnv("STRIPE_SECRET_KEY", ""),
		StripeBaseURL:                  getEnv("STRIPE_BASE_URL", "https://api.stripe.com"),
		StripeFinancialAccount:         getEnv("STRIPE_FINANCIAL_ACCOUNT", ""),
		StripeFinancialAccountCurrency: getEnv("STRIPE_FINANCIAL_ACCOUNT_CURRENCY", "usd"),
		StripeOnboardingReturnURL:      getEnv("STRIPE_ONBOARDING_RETURN_URL", ""),

		CRMBaseURL:       getEnv("CRM_BASE_URL", "https://services.leadconnectorhq.com"),
		CRMClientID:      getEnv("CRM_CLIENT_ID", ""),
		CRMClientSecret:  getEnv("CRM_CLIENT_SECRET", ""),
		CRMWebhookSecret: getEnv("CRM_WEBHOOK_SECRET", ""),
		CRMCompanyID:     getEnv("CRM_COMPANY_ID", ""),
		CRMRefreshToken:  getEnv("CRM_REFRESH_TOKEN", ""),
		CRMLocations:     getEnvAsMap("CRM_LOCATIONS", map[string]string{}),

		QRTigerBaseURL: getEnv("QR_TIGER_BASE_URL", "https://api.qrtiger.com/api/"),
		QRTigerAPIKey:  getEnv("QR_TIGER_API_KEY", ""),
		QRTigerFolder:  getEnv("QR_TIGER_FOLDER_ID", ""),

		R2AccountID:       getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
		R2Bucket:          getEnv("R2_BUCKET_NAME", ""),
		CDNBaseURL:        getEnv("CDN_BASE_URL", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		EmailFrom:    getEnv("EMAIL_FROM", ""),

		TelegramToken:  getEnv("TELEGRAM_NOTIFICATION_TOKEN", ""),
		TelegramChatID: int64(getEnvAsInt("TELEGRAM_NOTIFICATION_CHAT_ID", 0)),

		AdminAPIKey:           getEnv("ADMIN_API_KEY", ""),
		NotificationRetention: getEnvAsDuration("NOTIFICATION_RETENTION", 30*24*time.Hour),
	}

	log.Printf("📋 Config loaded: port=%s, env=%s, direct_rate=%s, team_rate=%s, stripe=%v, crm_locations=%d",
		cfg.Port, cfg.Env, cfg.DirectSaleRate, cfg.TeamRewardRate, cfg.StripeSecretKey != "", len(cfg.CRMLocations))
	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if val, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if val, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if val, err := decimal.NewFromString(getEnv(key, "")); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	val := getEnv(key, "")
	if val == "" {
		return defaultValue
	}
	parts := strings.Split(val, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

// getEnvAsMap parses "GB=abc,US=def".
func getEnvAsMap(key string, defaultValue map[string]string) map[string]string {
	val := getEnv(key, "")
	if val == "" {
		return defaultValue
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(val, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}
