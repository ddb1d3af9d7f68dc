package handler

import (
	"net/http"
	"strconv"

	"vipclub/internal/middleware"
	"vipclub/internal/service"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	entitlements  *service.EntitlementService
	notifications *service.NotificationService
}

func NewMeHandler(entitlements *service.EntitlementService, notifications *service.NotificationService) *MeHandler {
	return &MeHandler{entitlements: entitlements, notifications: notifications}
}

// VIP GET /api/v1/me/vip
func (h *MeHandler) VIP(c *gin.Context) {
	e, err := h.entitlements.Get(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Access GET /api/v1/vip/access, behind RequireVIP.
func (h *MeHandler) Access(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"vip": true})
}

// Notifications GET /api/v1/me/notifications
func (h *MeHandler) Notifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, total, err := h.notifications.List(middleware.GetUserID(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "total": total, "page": page})
}

// MarkNotificationRead POST /api/v1/me/notifications/:id/read
func (h *MeHandler) MarkNotificationRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.notifications.MarkRead(middleware.GetUserID(c), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RegisterFCMToken POST /api/v1/me/fcm-token
func (h *MeHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required,max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	if err := h.notifications.RegisterDevice(middleware.GetUserID(c), req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
