package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vipclub/internal/domain"
	"vipclub/internal/models"
	"vipclub/internal/repository"

	"gorm.io/gorm"
)

type RedemptionService struct {
	db           *gorm.DB
	tokens       *repository.TokenRepository
	audit        *repository.AuditRepository
	entitlements *EntitlementService
	notifier     *NotificationService
	vipDays      int
	log          *slog.Logger
	now          func() time.Time
}

func NewRedemptionService(db *gorm.DB, tokens *repository.TokenRepository, audit *repository.AuditRepository, entitlements *EntitlementService, notifier *NotificationService, vipDays int, logger *slog.Logger) *RedemptionService {
	if vipDays <= 0 {
		vipDays = domain.DefaultVIPDays
	}
	return &RedemptionService{
		db:           db,
		tokens:       tokens,
		audit:        audit,
		entitlements: entitlements,
		notifier:     notifier,
		vipDays:      vipDays,
		log:          logger,
		now:          utcNow,
	}
}

// Redeem consumes code for userID and extends their VIP. Malformed, unknown
// and already used codes all fail with ErrInvalidToken.
func (s *RedemptionService) Redeem(ctx context.Context, userID, code string) (*time.Time, error) {
	code = domain.NormalizeTokenCode(code)
	if !domain.ValidTokenCode(code) {
		return nil, ErrInvalidToken
	}
	var expiresAt *time.Time
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.tokens.WithTx(tx).ClaimCode(code, userID, s.now()); err != nil {
			return err
		}
		var err error
		expiresAt, err = s.entitlements.Extend(tx, userID, s.vipDays)
		if err != nil {
			return err
		}
		uid := userID
		return s.audit.WithTx(tx).Create(&models.AuditLog{
			UserID:     &uid,
			Action:     domain.AuditTokenRedeemed,
			Resource:   "vip_token",
			ResourceID: code,
		})
	})
	if errors.Is(err, repository.ErrTokenUnavailable) {
		s.log.Info("[Redeem] rejected", "user_id", userID)
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("[Redeem] token redeemed", "user_id", userID, "vip_expires_at", expiresAt)
	if s.notifier != nil {
		if err := s.notifier.NotifyVIPActivated(userID, expiresAt, "token"); err != nil {
			s.log.Warn("[Redeem] activation notification failed", "user_id", userID, "error", err)
		}
	}
	return expiresAt, nil
}
