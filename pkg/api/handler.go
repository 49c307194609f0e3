// Package api provides the HTTP API behind the pairing dashboard.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/dispatch"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/health"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/store"
)

// Coordinator restarts pairing.
type Coordinator interface {
	Refresh(ctx context.Context) error
}

// Sender delivers text messages.
type Sender interface {
	Send(ctx context.Context, phone, message string) (*dispatch.Result, error)
}

// Reader answers read-only queries.
type Reader interface {
	GetState(ctx context.Context) (store.ConnectionState, error)
	GetMessages(ctx context.Context, limit int) ([]store.MessageRecord, error)
	GetTransitions(ctx context.Context, limit int) ([]store.Transition, error)
}

// HealthReporter reports service health.
type HealthReporter interface {
	GetStatus() health.Status
}

// Handler serves the dashboard API.
type Handler struct {
	coordinator Coordinator
	sender      Sender
	reader      Reader
	health      HealthReporter
	log         *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(coordinator Coordinator, sender Sender, reader Reader, health HealthReporter) *Handler {
	return &Handler{
		coordinator: coordinator,
		sender:      sender,
		reader:      reader,
		health:      health,
		log:         slog.Default(),
	}
}

// Helper methods

func (h *Handler) successResult(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func (h *Handler) errorResult(c *gin.Context, err *APIError) {
	c.AbortWithStatusJSON(err.Status(), err)
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.log.Error(msg, "error", err, "request_id", c.GetString(requestIDKey))
	h.errorResult(c, NewInternalError())
}

// getLimit reads ?limit=n. Absent means defaultVal.
func getLimit(c *gin.Context, defaultVal int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultVal, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
