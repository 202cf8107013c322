package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"messmate/internal/middleware"
	"messmate/internal/notify"
	"messmate/internal/service"
	"messmate/internal/ws"

	"github.com/gin-gonic/gin"
)

// DeviceHandler drives the notification manager of one connected device.
type DeviceHandler struct {
	hub *ws.DeviceHub
}

func NewDeviceHandler(hub *ws.DeviceHub) *DeviceHandler {
	return &DeviceHandler{hub: hub}
}

type ShowRequest struct {
	Template     string                `json:"template"`
	Params       notify.TemplateParams `json:"params"`
	Notification *notify.Input         `json:"notification"`
}

func userKey(id uint) string { return strconv.FormatUint(uint64(id), 10) }

// manager resolves the device in the path to its manager, writing the error
// response itself when it cannot.
func (h *DeviceHandler) manager(c *gin.Context) (*notify.Manager, bool) {
	s, ok := h.hub.Get(middleware.GetUserID(c), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not connected"})
		return nil, false
	}
	m := s.Manager()
	if m == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "device not ready"})
		return nil, false
	}
	return m, true
}

func deviceErrorStatus(err error) (int, string) {
	var remote *ws.RemoteError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "device did not respond"
	case errors.Is(err, ws.ErrSessionClosed):
		return http.StatusNotFound, "device not connected"
	case errors.Is(err, notify.ErrNoRegistration):
		return http.StatusConflict, err.Error()
	case errors.As(err, &remote):
		return http.StatusBadGateway, remote.Error()
	default:
		return http.StatusBadGateway, err.Error()
	}
}

func respondDeviceError(c *gin.Context, err error) {
	status, msg := deviceErrorStatus(err)
	c.JSON(status, gin.H{"error": msg})
}

func (h *DeviceHandler) List(c *gin.Context) {
	sessions := h.hub.ForUser(middleware.GetUserID(c))
	out := make([]ws.DeviceInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	c.JSON(http.StatusOK, gin.H{"devices": out})
}

func (h *DeviceHandler) RequestPermission(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	granted, err := m.RequestPermission(c.Request.Context())
	if err != nil {
		respondDeviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"granted": granted, "state": m.PermissionState()})
}

func (h *DeviceHandler) SubscribePush(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	sub, err := m.SubscribeToPush(c.Request.Context())
	if err != nil {
		respondDeviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

func (h *DeviceHandler) UnsubscribePush(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	removed, err := m.UnsubscribeFromPush(c.Request.Context())
	if err != nil {
		respondDeviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// Show displays a notification on the device. A device without permission
// answers 200 with a null notification.
func (h *DeviceHandler) Show(c *gin.Context) {
	var req ShowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := service.ResolveInput(req.Template, req.Params, req.Notification)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, ok := h.manager(c)
	if !ok {
		return
	}
	in.UserID = userKey(middleware.GetUserID(c))
	rec, err := m.ShowLocalNotification(c.Request.Context(), in)
	if err != nil {
		if rec == nil {
			respondDeviceError(c, err)
			return
		}
		// Stored but not displayed.
		status, msg := deviceErrorStatus(err)
		c.JSON(status, gin.H{"error": msg, "notification": rec, "shown": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": rec, "shown": rec != nil})
}

func (h *DeviceHandler) History(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(notify.DefaultLimit)))
	list, err := m.GetNotifications(c.Request.Context(), userKey(middleware.GetUserID(c)), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	if list == nil {
		list = []notify.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *DeviceHandler) MarkRead(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	ok, err := m.MarkAsReadFor(c.Request.Context(), userKey(middleware.GetUserID(c)), c.Param("nid"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *DeviceHandler) Clear(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	n, err := m.ClearNotifications(c.Request.Context(), userKey(middleware.GetUserID(c)))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clear failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}
