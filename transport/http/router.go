package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/talkie/service"
)

// Deps are the collaborators served over HTTP
type Deps struct {
	Auth    *service.AuthService
	Audio   *service.AudioService
	WS      *WSHandler
	Metrics http.Handler
	Log     *slog.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(d.Log))

	authHandlers := NewAuthHandlers(d.Auth)
	audioHandlers := NewAudioHandlers(d.Audio)

	api := router.Group("/api")
	{
		api.GET("/health", audioHandlers.Health)
		api.GET("/community/stats", audioHandlers.Stats)
		api.GET("/auth/challenge", authHandlers.Challenge)
		api.POST("/auth/verify-nft", authHandlers.VerifyNFT)
	}

	// Protected API routes
	protected := api.Group("")
	protected.Use(AuthMiddleware(d.Auth))
	{
		protected.POST("/audio/broadcast", audioHandlers.Broadcast)
		protected.GET("/audio/latest", audioHandlers.Latest)
		protected.GET("/user/profile", audioHandlers.Profile)
		protected.GET("/user/recordings/:token_id", audioHandlers.Recordings)
	}

	router.GET("/ws/:token", d.WS.Serve)

	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics))
	}

	return router
}
