package repository

import (
	"errors"
	"time"

	"vipclub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// claimAttempts bounds the select-then-conditional-update loop in ClaimNext.
const claimAttempts = 10

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) WithTx(tx *gorm.DB) *TokenRepository {
	return &TokenRepository{db: tx}
}

// CreateBatch inserts codes, silently skipping any that already exist.
// Returns the number of rows actually inserted.
func (r *TokenRepository) CreateBatch(codes []string) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	tokens := make([]models.Token, 0, len(codes))
	for _, c := range codes {
		tokens = append(tokens, models.Token{Code: c})
	}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&tokens, 500)
	return res.RowsAffected, res.Error
}

func (r *TokenRepository) GetByCode(code string) (*models.Token, error) {
	var t models.Token
	if err := r.db.Where("code = ?", code).First(&t).Error; err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func (r *TokenRepository) GetByAssignedTransaction(txID uint) (*models.Token, error) {
	var t models.Token
	if err := r.db.Where("assigned_transaction_id = ?", txID).First(&t).Error; err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

// ClaimNext takes the oldest free token with a compare-and-swap update. With a
// user the token is consumed on the spot. Without one (guest checkout) it is
// only reserved for txID and stays redeemable by whoever holds the code.
//
// The candidate is read with FOR UPDATE SKIP LOCKED: a locking read sees the
// latest committed rows even inside a REPEATABLE READ transaction, and rows
// held by a concurrent claimer are passed over instead of waited on. SQLite
// has no row locks and ignores the clause.
func (r *TokenRepository) ClaimNext(userID *string, txID *uint, now time.Time) (*models.Token, error) {
	for i := 0; i < claimAttempts; i++ {
		var candidate models.Token
		err := r.db.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("is_used = ? AND assigned_transaction_id IS NULL", false).
			Order("created_at ASC, id ASC").
			First(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenUnavailable
		}
		if err != nil {
			return nil, err
		}

		updates := map[string]interface{}{"assigned_transaction_id": txID}
		if userID != nil {
			updates["is_used"] = true
			updates["used_by"] = *userID
			updates["used_at"] = now
		}
		res := r.db.Model(&models.Token{}).
			Where("id = ? AND is_used = ? AND assigned_transaction_id IS NULL", candidate.ID, false).
			Updates(updates)
		if res.Error != nil {
			return nil, mapError(res.Error)
		}
		if res.RowsAffected == 1 {
			candidate.AssignedTransactionID = txID
			if userID != nil {
				candidate.IsUsed = true
				candidate.UsedBy = userID
				candidate.UsedAt = &now
			}
			return &candidate, nil
		}
	}
	return nil, ErrClaimContention
}

// ClaimCode consumes a specific code for userID. Reserved guest codes are
// claimable; used ones are not.
func (r *TokenRepository) ClaimCode(code, userID string, now time.Time) (*models.Token, error) {
	res := r.db.Model(&models.Token{}).
		Where("code = ? AND is_used = ?", code, false).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_by": userID,
			"used_at": now,
		})
	if res.Error != nil {
		return nil, mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrTokenUnavailable
	}
	return r.GetByCode(code)
}

type TokenStats struct {
	Total     int64 `json:"total"`
	Used      int64 `json:"used"`
	Reserved  int64 `json:"reserved"`
	Available int64 `json:"available"`
}

func (r *TokenRepository) Stats() (*TokenStats, error) {
	var s TokenStats
	if err := r.db.Model(&models.Token{}).Count(&s.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.Token{}).Where("is_used = ?", true).Count(&s.Used).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.Token{}).
		Where("is_used = ? AND assigned_transaction_id IS NOT NULL", false).
		Count(&s.Reserved).Error; err != nil {
		return nil, err
	}
	s.Available = s.Total - s.Used - s.Reserved
	return &s, nil
}
