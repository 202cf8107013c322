package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"messmate/internal/service"
	"messmate/pkg/cloudinary"

	"github.com/gin-gonic/gin"
)

type Broadcaster interface {
	Broadcast(ctx context.Context, req service.BroadcastRequest) (*service.BroadcastResult, error)
}

// AdminNotificationHandler lets admins broadcast notifications and upload
// the icons, badges and images they reference.
type AdminNotificationHandler struct {
	notifs Broadcaster
	cloud  cloudinary.Client
	folder string
}

func NewAdminNotificationHandler(notifs Broadcaster, cloud cloudinary.Client, folder string) *AdminNotificationHandler {
	return &AdminNotificationHandler{notifs: notifs, cloud: cloud, folder: folder}
}

func (h *AdminNotificationHandler) Broadcast(c *gin.Context) {
	var req service.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.notifs.Broadcast(c.Request.Context(), req)
	switch {
	case errors.Is(err, service.ErrInvalidTemplate), errors.Is(err, service.ErrUnknownRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrNoRecipients):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("[notify] broadcast failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "broadcast failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// UploadAsset stores an icon, badge or image. Form fields: file, kind.
func (h *AdminNotificationHandler) UploadAsset(c *gin.Context) {
	if h.cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "asset storage not configured"})
		return
	}
	kind := cloudinary.AssetKind(c.DefaultPostForm("kind", string(cloudinary.AssetIcon)))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be icon, badge or image"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	folder := strings.TrimSuffix(h.folder, "/") + "/" + string(kind)
	publicID := string(kind) + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	asset, err := h.cloud.UploadAsset(c.Request.Context(), f, kind, folder, publicID)
	if err != nil {
		log.Printf("[cloudinary] upload %s: %v", kind, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, asset)
}

func (h *AdminNotificationHandler) DeleteAsset(c *gin.Context) {
	if h.cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "asset storage not configured"})
		return
	}
	publicID := strings.TrimPrefix(c.Param("publicID"), "/")
	if publicID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "public id required"})
		return
	}
	if err := h.cloud.Destroy(c.Request.Context(), publicID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
