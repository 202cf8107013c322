package handler

import (
	"net/http"

	"messmate/internal/middleware"
	"messmate/internal/models"

	"github.com/gin-gonic/gin"
)

type MeUsers interface {
	GetByID(id uint) (*models.User, error)
	UpdateFCMToken(id uint, token string) error
}

type SubscriptionCounter interface {
	CountByUserID(userID uint) (int64, error)
}

type DeviceCounter interface {
	CountForUser(userID uint) int
}

type MeHandler struct {
	users   MeUsers
	subs    SubscriptionCounter
	devices DeviceCounter
}

func NewMeHandler(users MeUsers, subs SubscriptionCounter, devices DeviceCounter) *MeHandler {
	return &MeHandler{users: users, subs: subs, devices: devices}
}

// RegisterFCMToken saves the FCM token for push notifications.
func (h *MeHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	if err := h.users.UpdateFCMToken(middleware.GetUserID(c), req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *MeHandler) ClearFCMToken(c *gin.Context) {
	if err := h.users.UpdateFCMToken(middleware.GetUserID(c), ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PushStatus reports which delivery channels can currently reach the caller.
func (h *MeHandler) PushStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	u, err := h.users.GetByID(userID)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	subs, err := h.subs.CountByUserID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fcm_token_registered":   u.FCMToken != "",
		"web_push_subscriptions": subs,
		"connected_devices":      h.devices.CountForUser(userID),
	})
}
