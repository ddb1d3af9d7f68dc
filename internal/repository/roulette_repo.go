package repository

import (
	"vipclub/internal/models"

	"gorm.io/gorm"
)

type RouletteRepository struct {
	db *gorm.DB
}

func NewRouletteRepository(db *gorm.DB) *RouletteRepository {
	return &RouletteRepository{db: db}
}

func (r *RouletteRepository) WithTx(tx *gorm.DB) *RouletteRepository {
	return &RouletteRepository{db: tx}
}

func (r *RouletteRepository) GetByTransactionID(txID uint) (*models.RouletteSpin, error) {
	var s models.RouletteSpin
	if err := r.db.Where("transaction_id = ?", txID).First(&s).Error; err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

// Create inserts the spin. The unique index on transaction_id turns a second
// spin for the same payment into ErrDuplicate.
func (r *RouletteRepository) Create(s *models.RouletteSpin) error {
	return mapError(r.db.Omit("Transaction").Create(s).Error)
}

func (r *RouletteRepository) ListByUserID(userID string, limit int) ([]models.RouletteSpin, error) {
	var list []models.RouletteSpin
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}
