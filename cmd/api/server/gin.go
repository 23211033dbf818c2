package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ginhandler "user-api/internal/adapter/gin/handler"
	"user-api/internal/adapter/gin/middleware"
	ginrouter "user-api/internal/adapter/gin/router"
	"user-api/internal/config"
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(
	cfg *config.Config,
	handler *ginhandler.UserHandler,
	rateLimiter *middleware.RateLimiter,
	l *zap.Logger,
) *http.Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := ginrouter.SetupRouter(handler, rateLimiter, ginrouter.Config{
		ServiceName:    cfg.Logger.ServiceName,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, l)

	addr := ":" + cfg.App.HTTPPort
	l.Info("Gin REST API configured", zap.String("address", addr))

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
