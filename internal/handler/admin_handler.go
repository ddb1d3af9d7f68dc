package handler

import (
	"errors"
	"net/http"
	"strconv"

	"vipclub/internal/middleware"
	"vipclub/internal/repository"
	"vipclub/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	tokens       *service.TokenService
	entitlements *service.EntitlementService
	payments     *service.PaymentService
}

func NewAdminHandler(tokens *service.TokenService, entitlements *service.EntitlementService, payments *service.PaymentService) *AdminHandler {
	return &AdminHandler{tokens: tokens, entitlements: entitlements, payments: payments}
}

// GenerateTokens POST /api/v1/admin/tokens
func (h *AdminHandler) GenerateTokens(c *gin.Context) {
	var req struct {
		Count int `json:"count" binding:"required,gte=1,lte=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	codes, err := h.tokens.Generate(middleware.GetUserID(c), req.Count)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"count": len(codes), "tokens": codes})
}

// TokenStats GET /api/v1/admin/tokens/stats
func (h *AdminHandler) TokenStats(c *gin.Context) {
	stats, err := h.tokens.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GrantVIP POST /api/v1/admin/users/:id/vip
func (h *AdminHandler) GrantVIP(c *gin.Context) {
	var req struct {
		Days int `json:"days" binding:"required,gte=1,lte=3650"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := h.entitlements.Grant(middleware.GetUserID(c), c.Param("id"), req.Days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// RevokeVIP DELETE /api/v1/admin/users/:id/vip
func (h *AdminHandler) RevokeVIP(c *gin.Context) {
	err := h.entitlements.Revoke(middleware.GetUserID(c), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListTransactions GET /api/v1/admin/transactions
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	f := repository.TransactionFilter{
		Status: c.Query("status"),
		UserID: c.Query("user_id"),
		Page:   page,
		Limit:  limit,
	}
	if v := c.Query("needs_reconciliation"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "needs_reconciliation must be a boolean"})
			return
		}
		f.NeedsReconciliation = &b
	}
	list, total, err := h.payments.ListTransactions(f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list, "total": total, "page": page})
}

// Reconcile POST /api/v1/admin/transactions/:external_id/reconcile
func (h *AdminHandler) Reconcile(c *gin.Context) {
	st, err := h.payments.Reconcile(c.Request.Context(), middleware.GetUserID(c), c.Param("external_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusBody(st))
}
