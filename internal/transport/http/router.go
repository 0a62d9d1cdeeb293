// Package http — тонкий транспортный слой поверх движка жизненного цикла:
// обработчики только декодируют запрос, извлекают актора и кодируют ответ.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/lifecycle"
)

// Deps — зависимости транспортного слоя.
type Deps struct {
	Engine  *lifecycle.Engine
	Tracker domain.CourierTracker
	Health  *health.Handler
	Logger  *log.Logger
	// ReleaseMode переключает gin в production-режим.
	ReleaseMode bool
}

// NewRouter собирает маршруты сервиса.
func NewRouter(deps Deps) *gin.Engine {
	if deps.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Logger == nil {
		deps.Logger = log.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(deps.Logger))

	h := &handler{
		engine:  deps.Engine,
		tracker: deps.Tracker,
		logger:  deps.Logger.WithField("component", "http"),
	}

	v1 := router.Group("/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.GET("/:id", h.getOrder)
			orders.GET("/:id/audit", h.getAuditTrail)
			orders.POST("/:id/confirm", h.confirmOrder)
			orders.POST("/:id/ship", h.shipOrder)
			orders.POST("/:id/cancel", h.cancelOrder)
			orders.POST("/:id/deliver", h.deliverOrder)
			orders.POST("/:id/tracking", h.forceTracking)
			orders.POST("/:id/returns", h.requestReturn)
		}

		tracking := v1.Group("/tracking")
		{
			tracking.GET("/:number", h.trackPackage)
			tracking.POST("/batch", h.trackBatch)
		}
	}

	if deps.Health != nil {
		router.GET("/healthz", gin.WrapH(deps.Health))
		router.GET("/readyz", gin.WrapF(deps.Health.ReadinessHandler))
	}
	router.GET("/livez", gin.WrapF(health.LivenessHandler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// loggingMiddleware пишет строку доступа после обработки запроса.
func loggingMiddleware(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.WithFields(log.Fields{
			"method": method,
			"path":   path,
			"status": c.Writer.Status(),
		}).Info("http request")
	}
}
