package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"vipclub/internal/domain"
	"vipclub/internal/models"
	"vipclub/internal/repository"
)

// Alerter escalates operational failures that need a human.
type Alerter interface {
	TokenPoolExhausted(ctx context.Context, txn *models.Transaction)
}

// OpsAlerter logs at error level, leaves an audit row and pushes to the ops
// FCM topic when Firebase is configured.
type OpsAlerter struct {
	log   *slog.Logger
	audit *repository.AuditRepository
	fcm   *FCMService
	topic string
}

func NewOpsAlerter(logger *slog.Logger, audit *repository.AuditRepository, fcm *FCMService, topic string) *OpsAlerter {
	return &OpsAlerter{log: logger, audit: audit, fcm: fcm, topic: topic}
}

func (a *OpsAlerter) TokenPoolExhausted(ctx context.Context, txn *models.Transaction) {
	a.log.Error("[Settlement] token pool exhausted; payment approved without token",
		"external_id", txn.ExternalID, "transaction_id", txn.ID, "user_id", derefString(txn.UserID))
	meta, _ := json.Marshal(map[string]interface{}{
		"external_id":  txn.ExternalID,
		"amount_cents": txn.AmountCents,
	})
	if err := a.audit.Create(&models.AuditLog{
		UserID:     txn.UserID,
		Action:     domain.AuditTokenPoolExhausted,
		Resource:   "transaction",
		ResourceID: txn.ExternalID,
		Metadata:   string(meta),
	}); err != nil {
		a.log.Error("[Settlement] audit write failed", "error", err)
	}
	_ = a.fcm.SendToTopic(ctx, a.topic, "Token pool exhausted",
		"Payment "+txn.ExternalID+" was approved without a VIP token. Generate tokens and reconcile.",
		map[string]string{"type": domain.AuditTokenPoolExhausted, "external_id": txn.ExternalID})
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
