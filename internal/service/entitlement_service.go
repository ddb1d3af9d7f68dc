package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vipclub/internal/domain"
	"vipclub/internal/models"
	"vipclub/internal/repository"

	"gorm.io/gorm"
)

// Entitlement is the effective VIP state of a user at read time.
type Entitlement struct {
	IsVIP         bool       `json:"is_vip"`
	ExpiresAt     *time.Time `json:"vip_expires_at"`
	DaysRemaining int        `json:"days_remaining"`
}

type EntitlementService struct {
	db       *gorm.DB
	profiles *repository.ProfileRepository
	audit    *repository.AuditRepository
	log      *slog.Logger
	now      func() time.Time
}

func NewEntitlementService(db *gorm.DB, profiles *repository.ProfileRepository, audit *repository.AuditRepository, logger *slog.Logger) *EntitlementService {
	return &EntitlementService{db: db, profiles: profiles, audit: audit, log: logger, now: utcNow}
}

func utcNow() time.Time { return time.Now().UTC() }

// NextExpiry applies the extend-or-set rule: an active grant with a future
// expiry is pushed back by days, anything else starts from now. A lifetime
// grant (nil expiry) stays lifetime.
func NextExpiry(p *models.Profile, days int, now time.Time) *time.Time {
	if p != nil && p.ActiveVIP(now) {
		if p.VIPExpiresAt == nil {
			return nil
		}
		next := p.VIPExpiresAt.AddDate(0, 0, days)
		return &next
	}
	next := now.AddDate(0, 0, days)
	return &next
}

// Get reads the effective entitlement. A stored flag whose expiry has passed
// reads as inactive and is cleared in place.
func (s *EntitlementService) Get(userID string) (*Entitlement, error) {
	now := s.now()
	p, err := s.profiles.GetByID(userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &Entitlement{}, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Stale(now) {
		if _, err := s.profiles.ClearStaleVIP(userID, now); err != nil {
			s.log.Warn("[VIP] could not clear expired flag", "user_id", userID, "error", err)
		} else {
			s.log.Info("[VIP] expired entitlement cleared", "user_id", userID, "expired_at", p.VIPExpiresAt)
		}
	}
	return &Entitlement{
		IsVIP:         p.ActiveVIP(now),
		ExpiresAt:     p.VIPExpiresAt,
		DaysRemaining: p.DaysRemaining(now),
	}, nil
}

// IsVIP is the boolean form of Get.
func (s *EntitlementService) IsVIP(userID string) (bool, error) {
	e, err := s.Get(userID)
	if err != nil {
		return false, err
	}
	return e.IsVIP, nil
}

// Extend grants days of VIP inside tx, holding the profile row lock until tx
// commits so concurrent extensions stack instead of overwriting each other.
func (s *EntitlementService) Extend(tx *gorm.DB, userID string, days int) (*time.Time, error) {
	if days <= 0 {
		return nil, ErrInvalidDays
	}
	profiles := s.profiles.WithTx(tx)
	p, err := profiles.LockForUpdate(userID)
	if err != nil {
		return nil, fmt.Errorf("lock profile: %w", err)
	}
	expiresAt := NextExpiry(p, days, s.now())
	if err := profiles.SetVIP(userID, true, expiresAt); err != nil {
		return nil, err
	}
	return expiresAt, nil
}

// Grant is the admin path: extend-or-set for days, audited.
func (s *EntitlementService) Grant(actorID, userID string, days int) (*Entitlement, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		expiresAt, err := s.Extend(tx, userID, days)
		if err != nil {
			return err
		}
		return s.writeAudit(tx, actorID, domain.AuditAdminGrant, userID, map[string]interface{}{
			"days": days, "vip_expires_at": expiresAt,
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("[VIP] granted", "user_id", userID, "days", days, "by", actorID)
	return s.Get(userID)
}

// Revoke clears the VIP flag and expiry.
func (s *EntitlementService) Revoke(actorID, userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.profiles.WithTx(tx).SetVIP(userID, false, nil); err != nil {
			return err
		}
		return s.writeAudit(tx, actorID, domain.AuditAdminRevoke, userID, nil)
	})
}

func (s *EntitlementService) writeAudit(tx *gorm.DB, actorID, action, userID string, meta map[string]interface{}) error {
	var metaJSON string
	if meta != nil {
		b, _ := json.Marshal(meta)
		metaJSON = string(b)
	}
	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	return s.audit.WithTx(tx).Create(&models.AuditLog{
		UserID:     actor,
		Action:     action,
		Resource:   "profile",
		ResourceID: userID,
		Metadata:   metaJSON,
	})
}
