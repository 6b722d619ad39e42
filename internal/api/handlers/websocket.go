package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"wilbur-realtime/internal/realtime"
)

// TokenVerifier validates an already-issued bearer credential and resolves
// the principal behind it.
type TokenVerifier interface {
	Verify(token string) (realtime.Principal, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
			if origin == strings.TrimSpace(allowed) {
				return true
			}
		}
		return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
	},
}

type WSHandler struct {
	registry  *realtime.Registry
	authz     realtime.Authorizer
	verifier  TokenVerifier
	status    realtime.StatusTracker
	queueSize int
}

func NewWSHandler(registry *realtime.Registry, authz realtime.Authorizer, verifier TokenVerifier, status realtime.StatusTracker, queueSize int) *WSHandler {
	return &WSHandler{
		registry:  registry,
		authz:     authz,
		verifier:  verifier,
		status:    status,
		queueSize: queueSize,
	}
}

// HandleWebSocket upgrades GET /ws?token=<jwt> to a realtime session. The
// credential is checked before the upgrade; a bad token is refused outright
// and no session ever exists.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	principal, err := h.verifier.Verify(token)
	if err != nil {
		slog.Warn("websocket auth failed", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "userID", principal.ID, "error", err)
		return
	}

	client := realtime.NewClient(h.registry, h.authz, h.status, conn, principal, h.queueSize)
	client.Run()
}
