package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vipclub/config"
	"vipclub/internal/database"
	"vipclub/internal/domain"
	"vipclub/internal/models"
	"vipclub/internal/repository"
	"vipclub/pkg/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type recordingAlerter struct {
	mu    sync.Mutex
	calls []string
}

func (a *recordingAlerter) TokenPoolExhausted(ctx context.Context, txn *models.Transaction) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, txn.ExternalID)
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type fakeProvider struct {
	mu        sync.Mutex
	createErr error
	statuses  map[string]string
	creates   int32
	gets      int32
	lastReq   payment.ChargeRequest
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{statuses: map[string]string{}}
}

func (p *fakeProvider) CreateCharge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	atomic.AddInt32(&p.creates, 1)
	if p.createErr != nil {
		return nil, p.createErr
	}
	ref := "ch_" + req.ExternalID
	p.mu.Lock()
	p.lastReq = req
	p.statuses[ref] = "pending"
	p.mu.Unlock()
	return &payment.Charge{
		GatewayReference: ref,
		ExternalID:       req.ExternalID,
		Status:           "pending",
		QRCode:           "00020126PIX" + req.ExternalID,
		QRCodeImage:      "aW1hZ2U=",
	}, nil
}

func (p *fakeProvider) GetCharge(ctx context.Context, ref string) (*payment.Charge, error) {
	atomic.AddInt32(&p.gets, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.statuses[ref]
	if !ok {
		return nil, payment.ErrChargeNotFound
	}
	return &payment.Charge{GatewayReference: ref, Status: st}, nil
}

func (p *fakeProvider) set(ref, status string) {
	p.mu.Lock()
	p.statuses[ref] = status
	p.mu.Unlock()
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	msgs []PaymentUpdate
}

func (b *recordingBroadcaster) BroadcastToPayment(externalID string, msg interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg.(PaymentUpdate))
}

type testEnv struct {
	db           *gorm.DB
	cfg          *config.Config
	transactions *repository.TransactionRepository
	tokens       *repository.TokenRepository
	profiles     *repository.ProfileRepository
	spins        *repository.RouletteRepository
	alerter      *recordingAlerter
	provider     *fakeProvider
	broadcaster  *recordingBroadcaster
	entitlements *EntitlementService
	settlement   *SettlementService
	payments     *PaymentService
	redemption   *RedemptionService
	roulette     *RouletteService
	tokenSvc     *TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()
	clock := func() time.Time { return testNow }

	e := &testEnv{
		db:           db,
		cfg:          cfg,
		transactions: repository.NewTransactionRepository(db),
		tokens:       repository.NewTokenRepository(db),
		profiles:     repository.NewProfileRepository(db),
		spins:        repository.NewRouletteRepository(db),
		alerter:      &recordingAlerter{},
		provider:     newFakeProvider(),
		broadcaster:  &recordingBroadcaster{},
	}
	audit := repository.NewAuditRepository(db)
	notifier := NewNotificationService(repository.NewNotificationRepository(db), e.profiles, nil)

	e.entitlements = NewEntitlementService(db, e.profiles, audit, logger)
	e.entitlements.now = clock
	e.settlement = NewSettlementService(db, e.transactions, e.tokens, audit, e.entitlements, notifier, e.alerter, cfg.VIP.DurationDays, logger)
	e.settlement.now = clock
	e.payments = NewPaymentService(e.transactions, e.profiles, audit, e.settlement, e.provider, cfg, logger)
	e.payments.now = clock
	e.payments.SetBroadcaster(e.broadcaster)
	e.redemption = NewRedemptionService(db, e.tokens, audit, e.entitlements, notifier, cfg.VIP.DurationDays, logger)
	e.redemption.now = clock
	e.roulette = NewRouletteService(db, e.transactions, e.spins, audit, e.entitlements, notifier, cfg.Roulette.PrizeDays, logger)
	e.tokenSvc = NewTokenService(e.tokens, audit, logger)
	return e
}

func (e *testEnv) seedTokens(t *testing.T, n int) []string {
	t.Helper()
	codes, err := e.tokenSvc.Generate("", n)
	require.NoError(t, err)
	require.Len(t, codes, n)
	return codes
}

// seedApproved stores an approved transaction the way a webhook would leave it.
func (e *testEnv) seedApproved(t *testing.T, userID, purpose string) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		ExternalID:  "pix-" + uuid.NewString(),
		Purpose:     purpose,
		AmountCents: 2500,
		Currency:    "BRL",
		Status:      domain.StatusPending,
	}
	if purpose == domain.PurposeRoulette {
		txn.AmountCents = e.cfg.Roulette.PriceCents
	}
	if userID != "" {
		txn.UserID = &userID
	}
	require.NoError(t, e.transactions.Create(txn))
	_, err := e.transactions.ApplyGatewayStatus(txn.ID, "paid", domain.StatusApproved, testNow)
	require.NoError(t, err)
	got, err := e.transactions.GetByID(txn.ID)
	require.NoError(t, err)
	return got
}

func (e *testEnv) setVIP(t *testing.T, userID string, expiresAt *time.Time) {
	t.Helper()
	_, err := e.profiles.GetOrCreate(userID, "")
	require.NoError(t, err)
	require.NoError(t, e.profiles.SetVIP(userID, true, expiresAt))
}

func (e *testEnv) countTransactions(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Transaction{}).Count(&n).Error)
	return n
}

var errGatewayDown = errors.New("connection refused")
