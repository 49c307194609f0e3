package api

import (
	"time"

	"github.com/gin-gonic/gin"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	IsReady     bool       `json:"isReady"`
	ConnectedAt *time.Time `json:"connectedAt"`
	DeviceInfo  *string    `json:"deviceInfo"`
	SessionID   string     `json:"sessionId"`
}

// QRResponse is the body of GET /api/qr.
type QRResponse struct {
	QRCode  *string `json:"qrCode"`
	IsReady bool    `json:"isReady"`
}

func (h *Handler) handleGetStatus(c *gin.Context) {
	cs, err := h.reader.GetState(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to get status", err)
		return
	}

	h.successResult(c, StatusResponse{
		IsReady:     cs.Ready,
		ConnectedAt: cs.ConnectedAt,
		DeviceInfo:  cs.DeviceInfo,
		SessionID:   cs.SessionID,
	})
}

// handleGetQR returns the latest QR even when it is stale.
func (h *Handler) handleGetQR(c *gin.Context) {
	cs, err := h.reader.GetState(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to get QR code", err)
		return
	}

	h.successResult(c, QRResponse{QRCode: cs.QRImage, IsReady: cs.Ready})
}

func (h *Handler) handleRefreshQR(c *gin.Context) {
	if err := h.coordinator.Refresh(c.Request.Context()); err != nil {
		h.internalError(c, "failed to refresh QR code", err)
		return
	}

	h.successResult(c, gin.H{
		"success": true,
		"message": "QR refresh initiated",
	})
}

func (h *Handler) handleGetHealth(c *gin.Context) {
	h.successResult(c, h.health.GetStatus())
}
