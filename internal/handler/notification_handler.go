package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"messmate/internal/middleware"
	"messmate/internal/models"
	"messmate/internal/notify"
	"messmate/internal/service"

	"github.com/gin-gonic/gin"
)

type SubscriptionRegistry interface {
	Subscribe(userID uint, req notify.SubscribeRequest) (*models.PushSubscription, error)
	Unsubscribe(userID uint, req notify.UnsubscribeRequest) (bool, error)
}

type Inbox interface {
	List(userID uint, limit, offset int) ([]models.Notification, error)
	UnreadCount(userID uint) (int64, error)
	MarkRead(userID, id uint) (bool, error)
}

// NotificationHandler serves the push subscription registry and the inbox.
type NotificationHandler struct {
	registry SubscriptionRegistry
	inbox    Inbox
	vapidKey string
}

func NewNotificationHandler(registry SubscriptionRegistry, inbox Inbox, vapidPublicKey string) *NotificationHandler {
	return &NotificationHandler{registry: registry, inbox: inbox, vapidKey: vapidPublicKey}
}

func (h *NotificationHandler) Subscribe(c *gin.Context) {
	var req notify.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = c.GetHeader("User-Agent")
	}
	sub, err := h.registry.Subscribe(middleware.GetUserID(c), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSubscription) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[push] subscribe failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": sub.ID, "endpoint": sub.Endpoint})
}

func (h *NotificationHandler) Unsubscribe(c *gin.Context) {
	var req notify.UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	removed, err := h.registry.Unsubscribe(middleware.GetUserID(c), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSubscription) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[push] unsubscribe failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unsubscribe failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *NotificationHandler) VAPIDPublicKey(c *gin.Context) {
	if h.vapidKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "push not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.vapidKey})
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.inbox.List(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	unread, err := h.inbox.UnreadCount(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "unread": unread})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ok, err := h.inbox.MarkRead(middleware.GetUserID(c), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found or already read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
