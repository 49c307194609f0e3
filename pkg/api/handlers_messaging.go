package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/store"
)

// SendRequest is the body of POST /api/send.
type SendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Messaging handlers

func (h *Handler) handleSend(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResult(c, NewInvalidInputError(map[string]string{"body": err.Error()}))
		return
	}

	res, err := h.sender.Send(c.Request.Context(), req.Phone, req.Message)
	if err != nil {
		apiErr := fromDispatchError(err)
		if apiErr.Message == MsgInternal {
			h.log.Error("send failed", "error", err, "request_id", c.GetString(requestIDKey))
		}
		h.errorResult(c, apiErr)
		return
	}

	h.successResult(c, gin.H{
		"success": true,
		"message": "Message sent successfully",
		"id":      res.ID,
	})
}

func (h *Handler) handleListMessages(c *gin.Context) {
	limit, ok := getLimit(c, store.DefaultMessageLimit)
	if !ok {
		h.errorResult(c, NewInvalidInputError(map[string]string{"limit": "must be a positive integer"}))
		return
	}

	msgs, err := h.reader.GetMessages(c.Request.Context(), limit)
	if err != nil {
		h.internalError(c, "failed to list messages", err)
		return
	}

	h.successResult(c, gin.H{"messages": msgs})
}

func (h *Handler) handleGetHistory(c *gin.Context) {
	limit, ok := getLimit(c, store.DefaultHistoryLimit)
	if !ok {
		h.errorResult(c, NewInvalidInputError(map[string]string{"limit": "must be a positive integer"}))
		return
	}

	transitions, err := h.reader.GetTransitions(c.Request.Context(), limit)
	if err != nil {
		h.internalError(c, "failed to get connection history", err)
		return
	}

	h.successResult(c, gin.H{"transitions": transitions})
}
