package repository

import (
	"time"

	"vipclub/internal/domain"
	"vipclub/internal/models"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a repository bound to an open database transaction.
func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

func (r *TransactionRepository) Create(t *models.Transaction) error {
	return mapError(r.db.Create(t).Error)
}

func (r *TransactionRepository) GetByID(id uint) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.First(&t, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func (r *TransactionRepository) GetByExternalID(externalID string) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.Where("external_id = ?", externalID).First(&t).Error; err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func (r *TransactionRepository) GetByGatewayReference(ref string) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.Where("gateway_reference_id = ?", ref).First(&t).Error; err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

// sourcesFor lists the stored statuses allowed to move to next.
func sourcesFor(next string) []string {
	var out []string
	for _, s := range []string{domain.StatusPending, domain.StatusFailed, domain.StatusCancelled, domain.StatusApproved} {
		if domain.CanTransition(s, next) {
			out = append(out, s)
		}
	}
	return out
}

// ApplyGatewayStatus records the raw gateway status unconditionally and moves
// the normalized status forward only along an allowed transition. paid_at is
// stamped once, on the first move to approved. Reports whether status changed.
func (r *TransactionRepository) ApplyGatewayStatus(id uint, raw, normalized string, now time.Time) (bool, error) {
	if err := r.db.Model(&models.Transaction{}).Where("id = ?", id).
		Update("gateway_status", raw).Error; err != nil {
		return false, mapError(err)
	}
	sources := sourcesFor(normalized)
	if len(sources) == 0 {
		return false, nil
	}
	updates := map[string]interface{}{"status": normalized}
	if normalized == domain.StatusApproved {
		updates["paid_at"] = gorm.Expr("COALESCE(paid_at, ?)", now)
	}
	res := r.db.Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", id, sources).
		Updates(updates)
	if res.Error != nil {
		return false, mapError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkSettled writes the settlement outcome if and only if no settlement
// token has been recorded yet. token may be nil (pool exhausted, or a
// purpose that hands out no token). A false result means another settlement
// won and the caller must roll back.
func (r *TransactionRepository) MarkSettled(id uint, token *string, needsReconciliation bool, now time.Time) (bool, error) {
	res := r.db.Model(&models.Transaction{}).
		Where("id = ? AND settlement_token IS NULL", id).
		Updates(map[string]interface{}{
			"settlement_token":     token,
			"status":               domain.StatusApproved,
			"paid_at":              gorm.Expr("COALESCE(paid_at, ?)", now),
			"needs_reconciliation": needsReconciliation,
		})
	if res.Error != nil {
		return false, mapError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// FlagForReconciliation marks an approved, unsettled transaction as waiting
// for a token. Reports true only for the call that set the flag, so the
// shortage is escalated once per transaction.
func (r *TransactionRepository) FlagForReconciliation(id uint, now time.Time) (bool, error) {
	res := r.db.Model(&models.Transaction{}).
		Where("id = ? AND settlement_token IS NULL AND needs_reconciliation = ?", id, false).
		Updates(map[string]interface{}{
			"status":               domain.StatusApproved,
			"paid_at":              gorm.Expr("COALESCE(paid_at, ?)", now),
			"needs_reconciliation": true,
		})
	if res.Error != nil {
		return false, mapError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

type TransactionFilter struct {
	Status              string
	NeedsReconciliation *bool
	UserID              string
	Page                int
	Limit               int
}

// List returns transactions newest first with the total matching count.
func (r *TransactionRepository) List(f TransactionFilter) ([]models.Transaction, int64, error) {
	q := r.db.Model(&models.Transaction{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.NeedsReconciliation != nil {
		q = q.Where("needs_reconciliation = ?", *f.NeedsReconciliation)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Transaction
	err := q.Order("created_at DESC, id DESC").Limit(f.Limit).Offset((f.Page - 1) * f.Limit).Find(&list).Error
	return list, total, err
}
