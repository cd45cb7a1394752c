package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ambassador-program/auth"
	"ambassador-program/config"
	"ambassador-program/handlers"
	"ambassador-program/integrations/crm"
	"ambassador-program/integrations/payments"
	"ambassador-program/integrations/qrcode"
	"ambassador-program/integrations/telegram"
	"ambassador-program/logging"
	"ambassador-program/middleware"
	"ambassador-program/models"
	"ambassador-program/services"
	"ambassador-program/utils"
	"ambassador-program/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const onboardingPollInterval = 10 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := config.Load()
	if err := logging.InitLogger(cfg.IsProduction()); err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logging.Logger.Sync()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		log.Fatal("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.Prospect{},
		&models.Commission{},
		&models.Notification{},
		&models.CRMToken{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- External clients ---
	var paymentGateway services.PaymentGateway
	if cfg.StripeSecretKey != "" {
		paymentGateway = payments.NewStripeClient(payments.Config{
			BaseURL:                  cfg.StripeBaseURL,
			SecretKey:                cfg.StripeSecretKey,
			FinancialAccount:         cfg.StripeFinancialAccount,
			FinancialAccountCurrency: cfg.StripeFinancialAccountCurrency,
			OnboardingReturnURL:      cfg.StripeOnboardingReturnURL,
			Timeout:                  cfg.GatewayTimeout,
		})
	} else {
		logging.Logger.Warn("⚠️  STRIPE_SECRET_KEY not set, payouts disabled")
	}

	var crmClient *crm.GHLClient
	var crmGateway services.CRMGateway
	var tokenRefresher workers.TokenRefresher
	if cfg.CRMClientID != "" {
		crmClient = crm.NewGHLClient(db, crm.Config{
			BaseURL:      cfg.CRMBaseURL,
			ClientID:     cfg.CRMClientID,
			ClientSecret: cfg.CRMClientSecret,
			CompanyID:    cfg.CRMCompanyID,
			RefreshToken: cfg.CRMRefreshToken,
			Locations:    cfg.CRMLocations,
			Timeout:      cfg.GatewayTimeout,
		})
		crmGateway, tokenRefresher = crmClient, crmClient
	} else {
		logging.Logger.Warn("⚠️  CRM_CLIENT_ID not set, prospects are not mirrored to the CRM")
	}

	var campaigns services.QRCampaigns
	if cfg.QRTigerAPIKey != "" {
		campaigns = qrcode.NewQRTigerClient(cfg.QRTigerBaseURL, cfg.QRTigerAPIKey, cfg.QRTigerFolder, cfg.GatewayTimeout)
	}

	var store services.ObjectStore
	if cfg.R2Bucket != "" {
		r2, err := utils.NewR2Store(ctx, cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret, cfg.R2Bucket, cfg.CDNBaseURL)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		store = r2
	}

	ops := services.NoopOps
	if cfg.TelegramToken != "" {
		tg, err := telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logging.Logger.Error("telegram disabled", zap.Error(err))
		} else {
			ops = tg
		}
	}

	mailer := utils.NewEmailService(utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	})

	// --- Services ---
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	hub := services.NewNotificationHub()
	notificationService := services.NewNotificationService(db, hub)
	accountService := services.NewAccountService(db, tokens, notificationService, mailer)
	prospectService := services.NewProspectService(db, crmGateway, notificationService, cfg.GatewayTimeout)
	allocator := services.NewAllocator(cfg.DirectSaleRate, cfg.TeamRewardRate)
	claimService := services.NewClaimService(db, allocator, paymentGateway, notificationService, ops, cfg.GatewayTimeout)
	payoutService := services.NewPayoutService(db, paymentGateway, notificationService, ops, cfg.GatewayTimeout)
	recipientService := services.NewRecipientService(db, paymentGateway, mailer)
	qrService := services.NewQRService(db, store, campaigns, cfg.FrontendURL)

	// --- Background work ---
	sched, err := workers.StartScheduler(ctx, tokenRefresher, notificationService, cfg.NotificationRetention)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}
	if paymentGateway != nil {
		go workers.PollPaymentOnboarding(ctx, recipientService, onboardingPollInterval)
	}

	// --- HTTP ---
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.SetupAccountRoutes(app, tokens, accountService)
	handlers.SetupProspectRoutes(app, tokens, prospectService)
	handlers.SetupWebhookRoutes(app, cfg.CRMWebhookSecret, prospectService)
	handlers.SetupCommissionRoutes(app, tokens, claimService, payoutService)
	handlers.SetupPaymentRoutes(app, tokens, recipientService)
	handlers.SetupNotificationRoutes(app, tokens, notificationService)
	handlers.SetupQRRoutes(app, tokens, qrService)
	handlers.SetupAdminRoutes(app, tokens, cfg.AdminAPIKey, prospectService, notificationService, cfg.NotificationRetention)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logging.Logger.Error("Server error", zap.Error(err))
		}
	}()

	logging.Logger.Info("✅ Server running", zap.String("port", cfg.Port))
	logging.Logger.Info("✅ CORS configured", zap.Strings("origins", cfg.AllowedOrigins))

	<-ctx.Done()
	logging.Logger.Info("Shutting down server...")
	if err := sched.Shutdown(); err != nil {
		logging.Logger.Warn("scheduler shutdown", zap.Error(err))
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logging.Logger.Warn("server shutdown", zap.Error(err))
	}
}
