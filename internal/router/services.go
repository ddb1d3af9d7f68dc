package router

import (
	"fmt"
	"log/slog"

	"vipclub/config"
	"vipclub/internal/middleware"
	"vipclub/internal/repository"
	"vipclub/internal/service"
	"vipclub/internal/ws"
	"vipclub/pkg/cloudinary"
	"vipclub/pkg/payment"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the external collaborators chosen by the caller.
type Deps struct {
	Provider   payment.Provider
	QRUploader cloudinary.QRUploader // optional
	FCM        *service.FCMService   // optional
	Alerter    service.Alerter       // defaults to the ops alerter
	Logger     *slog.Logger
}

// Services is the wired service graph shared by the API and the CLI.
type Services struct {
	Profiles      *repository.ProfileRepository
	Hub           *ws.Hub
	Notifications *service.NotificationService
	Entitlements  *service.EntitlementService
	Settlement    *service.SettlementService
	Payments      *service.PaymentService
	Redemption    *service.RedemptionService
	Roulette      *service.RouletteService
	Tokens        *service.TokenService
}

func NewServices(cfg *config.Config, db *gorm.DB, deps Deps) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	transactionRepo := repository.NewTransactionRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	rouletteRepo := repository.NewRouletteRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	alerter := deps.Alerter
	if alerter == nil {
		alerter = service.NewOpsAlerter(logger, auditRepo, deps.FCM, cfg.Firebase.OpsTopic)
	}
	hub := ws.NewHub()
	notifSvc := service.NewNotificationService(notificationRepo, profileRepo, deps.FCM)
	entitlementSvc := service.NewEntitlementService(db, profileRepo, auditRepo, logger)
	settlementSvc := service.NewSettlementService(db, transactionRepo, tokenRepo, auditRepo, entitlementSvc, notifSvc, alerter, cfg.VIP.DurationDays, logger)
	paymentSvc := service.NewPaymentService(transactionRepo, profileRepo, auditRepo, settlementSvc, deps.Provider, cfg, logger)
	paymentSvc.SetBroadcaster(hub)
	if deps.QRUploader != nil {
		paymentSvc.SetQRUploader(deps.QRUploader)
	}

	return &Services{
		Profiles:      profileRepo,
		Hub:           hub,
		Notifications: notifSvc,
		Entitlements:  entitlementSvc,
		Settlement:    settlementSvc,
		Payments:      paymentSvc,
		Redemption:    service.NewRedemptionService(db, tokenRepo, auditRepo, entitlementSvc, notifSvc, cfg.VIP.DurationDays, logger),
		Roulette:      service.NewRouletteService(db, transactionRepo, rouletteRepo, auditRepo, entitlementSvc, notifSvc, cfg.Roulette.PrizeDays, logger),
		Tokens:        service.NewTokenService(tokenRepo, auditRepo, logger),
	}
}

// NewProvider picks the PIX gateway implementation from config.
func NewProvider(cfg *config.Config, logger *slog.Logger) (payment.Provider, error) {
	switch cfg.Gateway.Provider {
	case "", "stub":
		return payment.NewStubProvider(), nil
	case "http":
		return payment.NewPixGatewayProvider(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.Gateway.Provider)
	}
}

// NewLimiter builds the rate limiter backend. A nil limiter disables limiting.
func NewLimiter(cfg *config.Config) (middleware.Limiter, error) {
	if cfg.RateLimit.Limit <= 0 {
		return nil, nil
	}
	switch cfg.RateLimit.Backend {
	case "", "memory":
		return middleware.NewInMemoryRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window), nil
	case "redis":
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		return middleware.NewRedisRateLimiter(redis.NewClient(opts), cfg.Redis.KeyPrefix, cfg.RateLimit.Limit, cfg.RateLimit.Window), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
	}
}
