package models

import (
	"time"
)

// Profile is the subset of the hosted user profile this service owns: the VIP
// entitlement. ID is the auth provider's user id (JWT "sub").
type Profile struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Email        string     `gorm:"size:255;index" json:"email"`
	IsVIP        bool       `gorm:"column:is_vip;not null;default:false" json:"is_vip"`
	VIPExpiresAt *time.Time `gorm:"column:vip_expires_at" json:"vip_expires_at"`
	IsAdmin      bool       `gorm:"not null;default:false" json:"-"`
	FCMToken     string     `gorm:"size:512" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// ActiveVIP reports the effective entitlement at t. A VIP flag without an
// expiry is a lifetime grant.
func (p *Profile) ActiveVIP(t time.Time) bool {
	if !p.IsVIP {
		return false
	}
	return p.VIPExpiresAt == nil || p.VIPExpiresAt.After(t)
}

// Stale reports the flag-set-but-expired state that reads must clear.
func (p *Profile) Stale(t time.Time) bool {
	return p.IsVIP && p.VIPExpiresAt != nil && !p.VIPExpiresAt.After(t)
}

// DaysRemaining returns whole days left, -1 for lifetime, 0 when inactive.
func (p *Profile) DaysRemaining(t time.Time) int {
	if !p.ActiveVIP(t) {
		return 0
	}
	if p.VIPExpiresAt == nil {
		return -1
	}
	return int(p.VIPExpiresAt.Sub(t).Hours() / 24)
}
