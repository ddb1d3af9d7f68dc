package service

import (
	"context"
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

// errSettlementRace aborts the database transaction of a settlement that lost
// the conditional update to a concurrent one.
var errSettlementRace = errors.New("settlement lost race")

// SettlementResult describes the outcome of settling one approved transaction.
type SettlementResult struct {
	Token string
	// Reserved is true for guest purchases: the token is bound to the
	// transaction but still has to be redeemed by the buyer.
	Reserved       bool
	AlreadySettled bool
	VIPExpiresAt   *time.Time
}

type SettlementService struct {
	db           *gorm.DB
	transactions *repository.TransactionRepository
	tokens       *repository.TokenRepository
	audit        *repository.AuditRepository
	entitlements *EntitlementService
	notifier     *NotificationService
	alerter      Alerter
	vipDays      int
	log          *slog.Logger
	now          func() time.Time
}

func NewSettlementService(
	db *gorm.DB,
	transactions *repository.TransactionRepository,
	tokens *repository.TokenRepository,
	audit *repository.AuditRepository,
	entitlements *EntitlementService,
	notifier *NotificationService,
	alerter Alerter,
	vipDays int,
	logger *slog.Logger,
) *SettlementService {
	if vipDays <= 0 {
		vipDays = domain.DefaultVIPDays
	}
	return &SettlementService{
		db:           db,
		transactions: transactions,
		tokens:       tokens,
		audit:        audit,
		entitlements: entitlements,
		notifier:     notifier,
		alerter:      alerter,
		vipDays:      vipDays,
		log:          logger,
		now:          utcNow,
	}
}

// Settle hands out the token and VIP time bought by an approved VIP
// transaction. It is safe to call any number of times, concurrently: one
// token is consumed and one extension applied per transaction, and every
// caller sees the same token. When the pool is empty the transaction is
// still approved, flagged for reconciliation, and ErrTokenPoolExhausted is
// returned after the alert has been raised.
func (s *SettlementService) Settle(ctx context.Context, txnID uint) (*SettlementResult, error) {
	var (
		result    *SettlementResult
		poolEmpty bool
		// exhausted is set only by the call that first flagged the transaction.
		exhausted *models.Transaction
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txns := s.transactions.WithTx(tx)
		txn, err := txns.GetByID(txnID)
		if err != nil {
			return err
		}
		if txn.SettlementToken != nil {
			result = settledResult(txn)
			return nil
		}
		if txn.Status != domain.StatusApproved {
			return ErrNotApproved
		}
		if txn.Purpose != domain.PurposeVIP {
			result = &SettlementResult{}
			return nil
		}
		now := s.now()

		tok, err := s.tokens.WithTx(tx).ClaimNext(txn.UserID, &txn.ID, now)
		if errors.Is(err, repository.ErrTokenUnavailable) {
			first, err := txns.FlagForReconciliation(txn.ID, now)
			if err != nil {
				return err
			}
			poolEmpty = true
			if first {
				exhausted = txn
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("claim token: %w", err)
		}

		won, err := txns.MarkSettled(txn.ID, &tok.Code, false, now)
		if err != nil {
			return err
		}
		if !won {
			return errSettlementRace
		}

		result = &SettlementResult{Token: tok.Code, Reserved: txn.IsGuest()}
		if !txn.IsGuest() {
			expiresAt, err := s.entitlements.Extend(tx, *txn.UserID, s.vipDays)
			if err != nil {
				return err
			}
			result.VIPExpiresAt = expiresAt
		}
		meta, _ := json.Marshal(map[string]interface{}{
			"token":          tok.Code,
			"reserved":       result.Reserved,
			"vip_expires_at": result.VIPExpiresAt,
		})
		return s.audit.WithTx(tx).Create(&models.AuditLog{
			UserID:     txn.UserID,
			Action:     domain.AuditSettled,
			Resource:   "transaction",
			ResourceID: txn.ExternalID,
			Metadata:   string(meta),
		})
	})

	if errors.Is(err, errSettlementRace) {
		// Our claim was rolled back; converge on the winner's token.
		txn, err := s.transactions.GetByID(txnID)
		if err != nil {
			return nil, err
		}
		if txn.SettlementToken == nil {
			return nil, fmt.Errorf("settlement of %s lost race but no token recorded", txn.ExternalID)
		}
		return settledResult(txn), nil
	}
	if err != nil {
		return nil, err
	}

	if poolEmpty {
		if exhausted != nil {
			s.alerter.TokenPoolExhausted(ctx, exhausted)
			if !exhausted.IsGuest() && s.notifier != nil {
				if err := s.notifier.Notify(*exhausted.UserID, domain.NotifPaymentPending, "Payment received",
					"Your payment was confirmed. Your VIP access will be activated shortly.",
					map[string]interface{}{"external_id": exhausted.ExternalID}); err != nil {
					s.log.Warn("[Settlement] pending notification failed", "external_id", exhausted.ExternalID, "error", err)
				}
			}
		}
		return &SettlementResult{}, ErrTokenPoolExhausted
	}

	if result.Token != "" && !result.AlreadySettled {
		s.log.Info("[Settlement] settled", "transaction_id", txnID, "reserved", result.Reserved, "vip_expires_at", result.VIPExpiresAt)
		if !result.Reserved && s.notifier != nil {
			txn, err := s.transactions.GetByID(txnID)
			if err == nil && txn.UserID != nil {
				if err := s.notifier.NotifyVIPActivated(*txn.UserID, result.VIPExpiresAt, "payment"); err != nil {
					s.log.Warn("[Settlement] activation notification failed", "transaction_id", txnID, "error", err)
				}
			}
		}
	}
	return result, nil
}

func settledResult(txn *models.Transaction) *SettlementResult {
	return &SettlementResult{
		Token:          *txn.SettlementToken,
		Reserved:       txn.IsGuest(),
		AlreadySettled: true,
	}
}
