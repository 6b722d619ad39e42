package routes

import (
	"github.com/gin-gonic/gin"

	"wilbur-realtime/internal/api/handlers"
	"wilbur-realtime/internal/api/middleware"
	"wilbur-realtime/internal/config"
	"wilbur-realtime/internal/realtime"
)

type Router struct {
	engine        *gin.Engine
	wsHandler     *handlers.WSHandler
	notifyHandler *handlers.NotifyHandler
}

func NewRouter(
	registry *realtime.Registry,
	authz realtime.Authorizer,
	verifier handlers.TokenVerifier,
	status realtime.StatusTracker,
	cfg *config.Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogAPI())

	return &Router{
		engine:        engine,
		wsHandler:     handlers.NewWSHandler(registry, authz, verifier, status, cfg.Realtime.QueueSize),
		notifyHandler: handlers.NewNotifyHandler(registry, cfg.Realtime.ServiceToken),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")
	api.GET("/ws", r.wsHandler.HandleWebSocket)

	// Reached only from inside the deployment; the CRUD service pushes
	// post-commit events here.
	internal := r.engine.Group("/internal/v1")
	internal.POST("/notify", r.notifyHandler.HandleNotify)
	internal.GET("/metrics", r.notifyHandler.HandleMetrics)
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
