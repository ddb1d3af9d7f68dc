package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"vipclub/internal/middleware"
	"vipclub/internal/service"
	"vipclub/pkg/payment"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type payerRequest struct {
	Name     string `json:"name" binding:"max=255"`
	Email    string `json:"email" binding:"omitempty,email"`
	Document string `json:"document" binding:"omitempty,cpf"`
}

type initiateRequest struct {
	Amount  int64        `json:"amount" binding:"gte=0"`
	Purpose string       `json:"purpose" binding:"omitempty,oneof=vip roulette"`
	Payer   payerRequest `json:"payer"`
	UserID  string       `json:"userId"`
	UserID2 string       `json:"user_id"`
}

// Initiate creates a PIX charge. POST /api/v1/payments/pix
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiateRequest
	// An empty body buys the default VIP package.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	userID := middleware.GetUserID(c)
	claimed := req.UserID
	if claimed == "" {
		claimed = req.UserID2
	}
	if claimed != "" && claimed != userID {
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "sign in to buy for an account"})
		} else {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "userId does not match the signed-in user"})
		}
		return
	}
	email := req.Payer.Email
	if email == "" {
		email = middleware.GetEmail(c)
	}
	res, err := h.payments.Initiate(c.Request.Context(), service.InitiateRequest{
		AmountCents: req.Amount,
		Purpose:     req.Purpose,
		Payer: payment.Payer{
			Name:     strings.TrimSpace(req.Payer.Name),
			Email:    email,
			Document: DigitsOnly(req.Payer.Document),
		},
		UserID: userID,
		Email:  middleware.GetEmail(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	body := gin.H{
		"success":       true,
		"qr_code":       res.QRCode,
		"qrCode":        res.QRCode,
		"qr_code_image": res.QRCodeImage,
		"qrCodeImage":   res.QRCodeImage,
		"external_id":   res.ExternalID,
		"externalId":    res.ExternalID,
		"status":        res.Status,
		"purpose":       res.Purpose,
		"amount_cents":  res.AmountCents,
		"amount":        payment.FormatBRL(res.AmountCents),
	}
	if !res.ExpiresAt.IsZero() {
		body["expires_at"] = res.ExpiresAt
	}
	c.JSON(http.StatusCreated, body)
}

// GetStatus polls by path. GET /api/v1/payments/pix/:external_id
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	h.poll(c, c.Param("external_id"))
}

// PostStatus polls by body. POST /api/v1/payments/pix/status
func (h *PaymentHandler) PostStatus(c *gin.Context) {
	var req struct {
		ExternalID  string `json:"externalId"`
		ExternalID2 string `json:"external_id"`
	}
	_ = c.ShouldBindJSON(&req)
	id := req.ExternalID
	if id == "" {
		id = req.ExternalID2
	}
	if id == "" {
		id = c.Query("externalId")
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "externalId required"})
		return
	}
	h.poll(c, id)
}

func (h *PaymentHandler) poll(c *gin.Context, externalID string) {
	st, err := h.payments.Poll(c.Request.Context(), externalID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusBody(st))
}

func statusBody(st *service.PaymentStatus) gin.H {
	body := gin.H{
		"external_id":          st.ExternalID,
		"status":               st.Status,
		"purpose":              st.Purpose,
		"amount_cents":         st.AmountCents,
		"needs_reconciliation": st.NeedsReconciliation,
	}
	if st.Token != "" {
		body["token"] = st.Token
		body["token_redeemed"] = !st.Reserved
	}
	if st.PaidAt != nil {
		body["paid_at"] = st.PaidAt
	}
	return body
}

// Snapshot feeds the realtime endpoint its first message.
func (h *PaymentHandler) Snapshot(ctx context.Context, externalID, userID string) (interface{}, error) {
	st, err := h.payments.Poll(ctx, externalID, userID)
	if err != nil {
		return nil, err
	}
	return service.PaymentUpdate{
		Type:                "payment_status",
		ExternalID:          st.ExternalID,
		Status:              st.Status,
		Token:               st.Token,
		NeedsReconciliation: st.NeedsReconciliation,
	}, nil
}
