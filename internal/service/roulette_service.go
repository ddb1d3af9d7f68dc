package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"vipclub/internal/domain"
	"vipclub/internal/models"
	"vipclub/internal/repository"

	"gorm.io/gorm"
)

// Drawer decides a spin; true is a win.
type Drawer func() bool

// FairCoin wins half the time.
func FairCoin() bool { return rand.IntN(2) == 0 }

type SpinResult struct {
	Result       string
	VIPDaysWon   int
	VIPExpiresAt *time.Time
	Message      string
}

type RouletteService struct {
	db           *gorm.DB
	transactions *repository.TransactionRepository
	spins        *repository.RouletteRepository
	audit        *repository.AuditRepository
	entitlements *EntitlementService
	notifier     *NotificationService
	prizeDays    int
	draw         Drawer
	log          *slog.Logger
}

func NewRouletteService(
	db *gorm.DB,
	transactions *repository.TransactionRepository,
	spins *repository.RouletteRepository,
	audit *repository.AuditRepository,
	entitlements *EntitlementService,
	notifier *NotificationService,
	prizeDays int,
	logger *slog.Logger,
) *RouletteService {
	if prizeDays <= 0 {
		prizeDays = domain.DefaultVIPDays
	}
	return &RouletteService{
		db:           db,
		transactions: transactions,
		spins:        spins,
		audit:        audit,
		entitlements: entitlements,
		notifier:     notifier,
		prizeDays:    prizeDays,
		draw:         FairCoin,
		log:          logger,
	}
}

// Spin spends an approved roulette payment once. amountCents, when non-zero,
// must match what was paid.
func (s *RouletteService) Spin(ctx context.Context, userID, externalID string, amountCents int64) (*SpinResult, error) {
	txn, err := s.transactions.GetByExternalID(externalID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !txn.OwnedBy(userID) {
		return nil, ErrTransactionNotFound
	}
	if txn.Purpose != domain.PurposeRoulette {
		return nil, ErrWrongPurpose
	}
	if txn.Status != domain.StatusApproved {
		return nil, ErrNotApproved
	}
	if amountCents != 0 && amountCents != txn.AmountCents {
		return nil, ErrAmountMismatch
	}
	if _, err := s.spins.GetByTransactionID(txn.ID); err == nil {
		return nil, ErrAlreadySpun
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	spin := &models.RouletteSpin{TransactionID: txn.ID, UserID: userID, Result: domain.RouletteLose}
	if s.draw() {
		spin.Result = domain.RouletteWin
		spin.VIPDaysWon = s.prizeDays
	}

	var expiresAt *time.Time
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.spins.WithTx(tx).Create(spin); err != nil {
			return err
		}
		if spin.Result == domain.RouletteWin {
			var err error
			if expiresAt, err = s.entitlements.Extend(tx, userID, spin.VIPDaysWon); err != nil {
				return err
			}
		}
		uid := userID
		return s.audit.WithTx(tx).Create(&models.AuditLog{
			UserID:     &uid,
			Action:     domain.AuditRouletteSpin,
			Resource:   "transaction",
			ResourceID: externalID,
			Metadata:   fmt.Sprintf(`{"result":%q,"vip_days_won":%d}`, spin.Result, spin.VIPDaysWon),
		})
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrAlreadySpun
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("[Roulette] spin", "user_id", userID, "external_id", externalID, "result", spin.Result)
	res := &SpinResult{Result: spin.Result, VIPDaysWon: spin.VIPDaysWon, VIPExpiresAt: expiresAt}
	if spin.Result == domain.RouletteWin {
		res.Message = fmt.Sprintf("Congratulations! You won %d days of VIP.", spin.VIPDaysWon)
		if s.notifier != nil {
			if err := s.notifier.NotifyRouletteWin(userID, spin.VIPDaysWon); err != nil {
				s.log.Warn("[Roulette] win notification failed", "user_id", userID, "error", err)
			}
		}
	} else {
		res.Message = "Not this time. Better luck on the next spin!"
	}
	return res, nil
}
