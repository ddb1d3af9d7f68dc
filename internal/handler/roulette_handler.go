package handler

import (
	"net/http"

	"vipclub/internal/middleware"
	"vipclub/internal/service"

	"github.com/gin-gonic/gin"
)

type RouletteHandler struct {
	roulette *service.RouletteService
}

func NewRouletteHandler(roulette *service.RouletteService) *RouletteHandler {
	return &RouletteHandler{roulette: roulette}
}

// Spin POST /api/v1/roulette/spin
func (h *RouletteHandler) Spin(c *gin.Context) {
	var req struct {
		TransactionExternalID  string `json:"transactionExternalId"`
		TransactionExternalID2 string `json:"transaction_external_id"`
		Amount                 int64  `json:"amount" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	externalID := firstNonEmpty(req.TransactionExternalID, req.TransactionExternalID2)
	if externalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transactionExternalId required"})
		return
	}
	res, err := h.roulette.Spin(c.Request.Context(), middleware.GetUserID(c), externalID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result":         res.Result,
		"vipDaysWon":     res.VIPDaysWon,
		"vip_days_won":   res.VIPDaysWon,
		"vip_expires_at": res.VIPExpiresAt,
		"message":        res.Message,
	})
}
