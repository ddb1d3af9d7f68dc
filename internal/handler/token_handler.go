package handler

import (
	"errors"
	"net/http"

	"vipclub/internal/middleware"
	"vipclub/internal/service"

	"github.com/gin-gonic/gin"
)

type TokenHandler struct {
	redemption *service.RedemptionService
}

func NewTokenHandler(redemption *service.RedemptionService) *TokenHandler {
	return &TokenHandler{redemption: redemption}
}

// Redeem POST /api/v1/tokens/redeem
func (h *TokenHandler) Redeem(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "token is required"})
		return
	}
	expiresAt, err := h.redemption.Redeem(c.Request.Context(), middleware.GetUserID(c), req.Token)
	if errors.Is(err, service.ErrInvalidToken) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid token"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "VIP activated",
		"vip_expires_at": expiresAt,
	})
}
