package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chaosduck/chaos-agents/internal/observability"
)

// SetupRouter configures all API routes.
func SetupRouter(chaos *ChaosHandler, metrics *observability.Metrics, corsOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware(corsOrigin))
	r.Use(PrometheusMiddleware(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chaosGroup := r.Group("/api/chaos")
	{
		chaosGroup.POST("/experiments", chaos.CreateExperiment)
		chaosGroup.POST("/experiments/stream", chaos.StreamExperiment)
	}

	return r
}
