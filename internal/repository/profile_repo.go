package repository

import (
	"time"

	"vipclub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: tx}
}

func (r *ProfileRepository) GetByID(id string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// GetOrCreate returns the profile for id, inserting an empty one on first sight.
func (r *ProfileRepository) GetOrCreate(id, email string) (*models.Profile, error) {
	p := models.Profile{ID: id, Email: email}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

// LockForUpdate ensures the row exists and reads it under SELECT ... FOR UPDATE.
// Must run inside a transaction to hold the lock.
func (r *ProfileRepository) LockForUpdate(id string) (*models.Profile, error) {
	p := models.Profile{ID: id}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
		return nil, err
	}
	var locked models.Profile
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&locked).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &locked, nil
}

func (r *ProfileRepository) SetVIP(id string, isVIP bool, expiresAt *time.Time) error {
	res := r.db.Model(&models.Profile{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_vip": isVIP, "vip_expires_at": expiresAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearStaleVIP drops the VIP flag only if the stored expiry is still in the
// past, so a concurrent extension is never undone.
func (r *ProfileRepository) ClearStaleVIP(id string, now time.Time) (bool, error) {
	res := r.db.Model(&models.Profile{}).
		Where("id = ? AND is_vip = ? AND vip_expires_at IS NOT NULL AND vip_expires_at <= ?", id, true, now).
		Update("is_vip", false)
	return res.RowsAffected == 1, res.Error
}

func (r *ProfileRepository) SetFCMToken(id, token string) error {
	if _, err := r.GetOrCreate(id, ""); err != nil {
		return err
	}
	return r.db.Model(&models.Profile{}).Where("id = ?", id).Update("fcm_token", token).Error
}

func (r *ProfileRepository) ListAdmins() ([]models.Profile, error) {
	var list []models.Profile
	err := r.db.Where("is_admin = ?", true).Find(&list).Error
	return list, err
}

func (r *ProfileRepository) SetAdmin(id string, isAdmin bool) error {
	if _, err := r.GetOrCreate(id, ""); err != nil {
		return err
	}
	return r.db.Model(&models.Profile{}).Where("id = ?", id).Update("is_admin", isAdmin).Error
}
