package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vipclub/config"
	"vipclub/internal/domain"
	"vipclub/internal/models"
	"vipclub/internal/repository"
	"vipclub/pkg/cloudinary"
	"vipclub/pkg/payment"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// PaymentBroadcaster pushes payment status changes to live subscribers.
type PaymentBroadcaster interface {
	BroadcastToPayment(externalID string, msg interface{})
}

// PaymentUpdate is the realtime message sent on every status change.
type PaymentUpdate struct {
	Type                string `json:"type"`
	ExternalID          string `json:"external_id"`
	Status              string `json:"status"`
	Token               string `json:"token,omitempty"`
	NeedsReconciliation bool   `json:"needs_reconciliation,omitempty"`
}

type InitiateRequest struct {
	AmountCents int64
	Purpose     string
	Payer       payment.Payer
	UserID      string // empty for guest checkout
	Email       string
}

type InitiateResult struct {
	ExternalID  string
	QRCode      string
	QRCodeImage string
	Status      string
	AmountCents int64
	Purpose     string
	ExpiresAt   time.Time
}

// WebhookEvent is the gateway notification reduced to what matters here.
type WebhookEvent struct {
	ExternalID       string
	GatewayReference string
	Status           string
	UserID           string
}

// PaymentStatus is what pollers and webhook callers get back.
type PaymentStatus struct {
	ExternalID          string
	Status              string
	Purpose             string
	AmountCents         int64
	Token               string
	Reserved            bool
	NeedsReconciliation bool
	PaidAt              *time.Time
}

type PaymentService struct {
	transactions  *repository.TransactionRepository
	profiles      *repository.ProfileRepository
	audit         *repository.AuditRepository
	settlement    *SettlementService
	provider      payment.Provider
	qrUploader    cloudinary.QRUploader
	broadcaster   PaymentBroadcaster
	cfg           config.PaymentConfig
	roulettePrice int64
	refresh       singleflight.Group
	log           *slog.Logger
	now           func() time.Time
}

func NewPaymentService(
	transactions *repository.TransactionRepository,
	profiles *repository.ProfileRepository,
	audit *repository.AuditRepository,
	settlement *SettlementService,
	provider payment.Provider,
	cfg *config.Config,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		transactions:  transactions,
		profiles:      profiles,
		audit:         audit,
		settlement:    settlement,
		provider:      provider,
		cfg:           cfg.Payment,
		roulettePrice: cfg.Roulette.PriceCents,
		log:           logger,
		now:           utcNow,
	}
}

// SetQRUploader enables hosting QR images instead of returning base64.
func (s *PaymentService) SetQRUploader(u cloudinary.QRUploader) { s.qrUploader = u }

func (s *PaymentService) SetBroadcaster(b PaymentBroadcaster) { s.broadcaster = b }

// Initiate creates the charge at the gateway and records a pending
// transaction. Nothing is written unless the gateway call succeeds.
func (s *PaymentService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if req.UserID == "" && s.cfg.RequireAuth {
		return nil, ErrAuthRequired
	}
	purpose := req.Purpose
	if purpose == "" {
		purpose = domain.PurposeVIP
	}
	amount := req.AmountCents
	switch purpose {
	case domain.PurposeVIP:
		if amount == 0 {
			amount = s.cfg.DefaultCents
		}
		if amount < s.cfg.MinCents || amount > s.cfg.MaxCents {
			return nil, fmt.Errorf("%w: must be between %d and %d cents", ErrInvalidAmount, s.cfg.MinCents, s.cfg.MaxCents)
		}
	case domain.PurposeRoulette:
		if req.UserID == "" {
			return nil, ErrAuthRequired
		}
		if amount == 0 {
			amount = s.roulettePrice
		}
		if amount != s.roulettePrice {
			return nil, fmt.Errorf("%w: roulette costs %d cents", ErrInvalidAmount, s.roulettePrice)
		}
	default:
		return nil, fmt.Errorf("%w: unknown purpose %q", ErrWrongPurpose, purpose)
	}

	externalID := "pix-" + uuid.NewString()
	charge, err := s.provider.CreateCharge(ctx, payment.ChargeRequest{
		ExternalID:  externalID,
		AmountCents: amount,
		Description: "VIP " + purpose,
		Payer:       req.Payer,
		UserID:      req.UserID,
		WebhookURL:  strings.TrimRight(s.cfg.WebhookBaseURL, "/") + "/api/v1/webhooks/pix",
		ExpiresIn:   s.cfg.ChargeTTL,
	})
	if err != nil {
		s.log.Error("[PIX] create charge failed", "external_id", externalID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	qrImage := charge.QRCodeImage
	if s.qrUploader != nil && qrImage != "" && !strings.HasPrefix(qrImage, "http") {
		if url, err := s.qrUploader.UploadQRImage(ctx, qrImage, externalID); err != nil {
			s.log.Warn("[PIX] qr upload failed, returning inline image", "external_id", externalID, "error", err)
		} else {
			qrImage = url
		}
	}

	txn := &models.Transaction{
		ExternalID:    externalID,
		Purpose:       purpose,
		AmountCents:   amount,
		Currency:      "BRL",
		Status:        domain.StatusPending,
		GatewayStatus: charge.Status,
		QRCode:        charge.QRCode,
		QRCodeImage:   qrImage,
		PayerName:     req.Payer.Name,
		PayerEmail:    req.Payer.Email,
		PayerDocument: req.Payer.Document,
	}
	if charge.GatewayReference != "" {
		ref := charge.GatewayReference
		txn.GatewayReferenceID = &ref
	}
	if req.UserID != "" {
		uid := req.UserID
		txn.UserID = &uid
		if _, err := s.profiles.GetOrCreate(uid, req.Email); err != nil {
			return nil, err
		}
	}
	if err := s.transactions.Create(txn); err != nil {
		s.log.Error("[PIX] charge created but transaction not stored", "external_id", externalID, "gateway_reference", charge.GatewayReference, "error", err)
		return nil, err
	}
	s.log.Info("[PIX] charge created", "external_id", externalID, "purpose", purpose, "amount", payment.FormatBRL(amount), "guest", req.UserID == "")

	return &InitiateResult{
		ExternalID:  externalID,
		QRCode:      charge.QRCode,
		QRCodeImage: qrImage,
		Status:      domain.StatusPending,
		AmountCents: amount,
		Purpose:     purpose,
		ExpiresAt:   charge.ExpiresAt,
	}, nil
}

// HandleWebhook applies a gateway notification. Unknown transactions yield
// ErrTransactionNotFound and change nothing.
func (s *PaymentService) HandleWebhook(ctx context.Context, ev WebhookEvent) (*PaymentStatus, error) {
	var (
		txn *models.Transaction
		err error
	)
	if ev.ExternalID != "" {
		txn, err = s.transactions.GetByExternalID(ev.ExternalID)
	}
	if txn == nil && ev.GatewayReference != "" {
		txn, err = s.transactions.GetByGatewayReference(ev.GatewayReference)
	}
	if txn == nil {
		if err == nil || errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if ev.UserID != "" && txn.UserID != nil && *txn.UserID != ev.UserID {
		s.log.Warn("[PIX webhook] metadata user does not match transaction owner", "external_id", txn.ExternalID, "metadata_user_id", ev.UserID)
	}
	return s.apply(ctx, txn, ev.Status)
}

// Poll returns the current status for externalID as seen by userID. Owned
// transactions are invisible to anyone else; guest transactions are found by
// their external id alone. A pending transaction is refreshed from the gateway.
func (s *PaymentService) Poll(ctx context.Context, externalID, userID string) (*PaymentStatus, error) {
	txn, err := s.transactions.GetByExternalID(externalID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !txn.IsGuest() && !txn.OwnedBy(userID) {
		return nil, ErrTransactionNotFound
	}
	if txn.Status == domain.StatusPending && s.cfg.RefreshOnPoll {
		if raw, ok := s.refreshFromGateway(ctx, txn); ok {
			return s.apply(ctx, txn, raw)
		}
	}
	return s.settleIfDue(ctx, txn)
}

// Reconcile re-runs confirmation for one transaction: refresh from the
// gateway if still pending, then settle if approved and unsettled.
func (s *PaymentService) Reconcile(ctx context.Context, actorID, externalID string) (*PaymentStatus, error) {
	txn, err := s.transactions.GetByExternalID(externalID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	_ = s.audit.Create(&models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     domain.AuditReconcileRequested,
		Resource:   "transaction",
		ResourceID: externalID,
	})
	if txn.Status == domain.StatusPending {
		if raw, ok := s.refreshFromGateway(ctx, txn); ok {
			return s.apply(ctx, txn, raw)
		}
	}
	return s.settleIfDue(ctx, txn)
}

// refreshFromGateway asks the gateway for the charge status, coalescing
// concurrent refreshes of the same charge.
func (s *PaymentService) refreshFromGateway(ctx context.Context, txn *models.Transaction) (string, bool) {
	if txn.GatewayReferenceID == nil || *txn.GatewayReferenceID == "" {
		return "", false
	}
	ref := *txn.GatewayReferenceID
	v, err, _ := s.refresh.Do(ref, func() (interface{}, error) {
		return s.provider.GetCharge(ctx, ref)
	})
	if err != nil {
		s.log.Warn("[PIX] status refresh failed", "external_id", txn.ExternalID, "error", err)
		return "", false
	}
	return v.(*payment.Charge).Status, true
}

// apply records the raw gateway status, moves the normalized status along an
// allowed transition and settles approved transactions.
func (s *PaymentService) apply(ctx context.Context, txn *models.Transaction, rawStatus string) (*PaymentStatus, error) {
	normalized := domain.NormalizeGatewayStatus(rawStatus)
	changed, err := s.transactions.ApplyGatewayStatus(txn.ID, rawStatus, normalized, s.now())
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.Info("[PIX] status changed", "external_id", txn.ExternalID, "from", txn.Status, "to", normalized, "gateway_status", rawStatus)
		if normalized == domain.StatusApproved {
			_ = s.audit.Create(&models.AuditLog{
				UserID:     txn.UserID,
				Action:     domain.AuditPaymentApproved,
				Resource:   "transaction",
				ResourceID: txn.ExternalID,
				Metadata:   fmt.Sprintf(`{"gateway_status":%q}`, rawStatus),
			})
		}
	}
	fresh, err := s.transactions.GetByID(txn.ID)
	if err != nil {
		return nil, err
	}
	due := fresh.Status == domain.StatusApproved && fresh.Purpose == domain.PurposeVIP && fresh.SettlementToken == nil
	st, err := s.settleIfDue(ctx, fresh)
	if err != nil {
		return nil, err
	}
	if changed && !due {
		s.broadcast(st)
	}
	return st, nil
}

// settleIfDue runs settlement for an approved VIP transaction that has no
// token yet and builds the caller-facing status.
func (s *PaymentService) settleIfDue(ctx context.Context, txn *models.Transaction) (*PaymentStatus, error) {
	st := statusOf(txn)
	if txn.Status != domain.StatusApproved || txn.Purpose != domain.PurposeVIP || txn.SettlementToken != nil {
		return st, nil
	}
	res, err := s.settlement.Settle(ctx, txn.ID)
	switch {
	case errors.Is(err, ErrTokenPoolExhausted):
		// The alert is already out; the payer still sees an approved payment.
		st.NeedsReconciliation = true
	case err != nil:
		return nil, err
	default:
		st.Token = res.Token
		st.Reserved = res.Reserved
		st.NeedsReconciliation = false
	}
	if paid, err := s.transactions.GetByID(txn.ID); err == nil {
		st.PaidAt = paid.PaidAt
	}
	s.broadcast(st)
	return st, nil
}

func (s *PaymentService) broadcast(st *PaymentStatus) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToPayment(st.ExternalID, PaymentUpdate{
		Type:                "payment_status",
		ExternalID:          st.ExternalID,
		Status:              st.Status,
		Token:               st.Token,
		NeedsReconciliation: st.NeedsReconciliation,
	})
}

// ListTransactions is the admin listing.
func (s *PaymentService) ListTransactions(f repository.TransactionFilter) ([]models.Transaction, int64, error) {
	return s.transactions.List(f)
}

func statusOf(txn *models.Transaction) *PaymentStatus {
	st := &PaymentStatus{
		ExternalID:          txn.ExternalID,
		Status:              txn.Status,
		Purpose:             txn.Purpose,
		AmountCents:         txn.AmountCents,
		NeedsReconciliation: txn.NeedsReconciliation,
		PaidAt:              txn.PaidAt,
		Reserved:            txn.IsGuest() && txn.SettlementToken != nil,
	}
	if txn.SettlementToken != nil {
		st.Token = *txn.SettlementToken
	}
	return st
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
