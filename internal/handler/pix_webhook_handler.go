package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"vipclub/config"
	"vipclub/internal/service"

	"github.com/gin-gonic/gin"
)

type webhookMetadata struct {
	ExternalID string `json:"external_id"`
	UserID     string `json:"user_id"`
}

type webhookCharge struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	ReferenceID   string          `json:"reference_id"`
	ExternalID    string          `json:"external_id"`
	Status        string          `json:"status"`
	Metadata      webhookMetadata `json:"metadata"`
}

// pixWebhookPayload accepts the charge either at the top level or under "data".
type pixWebhookPayload struct {
	webhookCharge
	Event string         `json:"event"`
	Data  *webhookCharge `json:"data"`
}

func (p *pixWebhookPayload) event() service.WebhookEvent {
	charges := []webhookCharge{p.webhookCharge}
	if p.Data != nil {
		charges = append(charges, *p.Data)
	}
	var ev service.WebhookEvent
	for _, ch := range charges {
		ev.ExternalID = firstNonEmpty(ev.ExternalID, ch.ExternalID, ch.Metadata.ExternalID)
		ev.GatewayReference = firstNonEmpty(ev.GatewayReference, ch.ID, ch.TransactionID, ch.ReferenceID)
		ev.Status = firstNonEmpty(ev.Status, ch.Status)
		ev.UserID = firstNonEmpty(ev.UserID, ch.Metadata.UserID)
	}
	return ev
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

type PixWebhookHandler struct {
	payments *service.PaymentService
	cfg      *config.Config
	log      *slog.Logger
}

func NewPixWebhookHandler(payments *service.PaymentService, cfg *config.Config, logger *slog.Logger) *PixWebhookHandler {
	return &PixWebhookHandler{payments: payments, cfg: cfg, log: logger}
}

// Handle processes gateway notifications. Non-2xx answers make the gateway retry.
func (h *PixWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Warn("[PIX webhook] read body error", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	h.log.Info("[PIX webhook] raw body", "body", string(body))
	if h.cfg.Payment.WebhookSecret != "" {
		if !h.verifySignature(body, c.GetHeader("X-Webhook-Signature")) {
			h.log.Warn("[PIX webhook] invalid signature", "ip", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}
	var payload pixWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ev := payload.event()
	if ev.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}
	if ev.ExternalID == "" && ev.GatewayReference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction reference required"})
		return
	}
	h.log.Info("[PIX webhook] parsed", "external_id", ev.ExternalID, "gateway_reference", ev.GatewayReference, "status", ev.Status, "event", payload.Event)

	st, err := h.payments.HandleWebhook(c.Request.Context(), ev)
	if errors.Is(err, service.ErrTransactionNotFound) {
		h.log.Warn("[PIX webhook] transaction not found", "external_id", ev.ExternalID, "gateway_reference", ev.GatewayReference)
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	if err != nil {
		h.log.Error("[PIX webhook] processing failed", "external_id", ev.ExternalID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": st.Status})
}

func (h *PixWebhookHandler) verifySignature(body []byte, sig string) bool {
	if sig == "" {
		return false
	}
	sig = strings.TrimPrefix(sig, "sha256=")
	mac := hmac.New(sha256.New, []byte(h.cfg.Payment.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(sig)), []byte(expected))
}
