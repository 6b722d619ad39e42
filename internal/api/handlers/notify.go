package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wilbur-realtime/internal/realtime"
)

// NotifyHandler exposes the registry's notify operation to the platform's
// CRUD service over an internal endpoint. It is the HTTP face of the single
// call that layer needs: "notify this channel that X happened".
type NotifyHandler struct {
	registry     *realtime.Registry
	serviceToken string
}

func NewNotifyHandler(registry *realtime.Registry, serviceToken string) *NotifyHandler {
	return &NotifyHandler{registry: registry, serviceToken: serviceToken}
}

type notifyRequest struct {
	Channel string          `json:"channel" binding:"required"`
	Event   string          `json:"event" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// HandleNotify accepts POST /internal/v1/notify from the CRUD layer after a
// mutation commits. Fan-out is best effort, so the reply is 202 regardless of
// how many subscribers were reached.
func (h *NotifyHandler) HandleNotify(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid service token"})
		return
	}

	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := realtime.ParseChannel(req.Channel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel: " + req.Channel})
		return
	}

	h.registry.Notify(req.Channel, req.Event, req.Payload)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// HandleMetrics reports fan-out counters for operators.
func (h *NotifyHandler) HandleMetrics(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid service token"})
		return
	}
	c.JSON(http.StatusOK, h.registry.Metrics().Snapshot())
}

func (h *NotifyHandler) authorized(c *gin.Context) bool {
	if h.serviceToken == "" {
		return true
	}
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	return token == h.serviceToken
}
