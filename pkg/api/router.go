package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with middleware and all API routes.
func NewRouter(h *Handler, corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(h.log))
	router.Use(cors.New(corsConfig(corsOrigins)))

	api := router.Group("/api")
	{
		api.GET("/status", h.handleGetStatus)
		api.GET("/qr", h.handleGetQR)
		api.POST("/refresh-qr", h.handleRefreshQR)
		api.POST("/send", h.handleSend)
		api.GET("/messages", h.handleListMessages)
		api.GET("/history", h.handleGetHistory)
		api.GET("/health", h.handleGetHealth)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
