// Package api exposes the HTTP surface: the webhook intake, the read-side
// summary endpoints, and the manual pipeline triggers.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/chorushq/chorus/internal/adapters"
	"github.com/chorushq/chorus/internal/database"
	"github.com/chorushq/chorus/internal/health"
	"github.com/chorushq/chorus/internal/pipeline"
	"github.com/chorushq/chorus/internal/store"
)

// DispatchFunc hands a feedback processing run to the task queue. The
// webhook handler must not block on pipeline completion; it only schedules.
type DispatchFunc func(input pipeline.RunInput) error

// Deps bundles everything the router's handlers need.
type Deps struct {
	DB          *gorm.DB
	Feedback    *store.FeedbackStore
	Summaries   *store.SummaryStore
	Runs        *store.RunStore
	Registry    *adapters.Registry
	Aggregation *pipeline.AggregationPipeline
	Dispatch    DispatchFunc
	Logger      *slog.Logger
}

// NewRouter builds the gin engine with all routes mounted.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(deps.Logger))

	router.GET("/health", gin.WrapF(health.Handler))
	router.GET("/health/ready", ReadyHandler(deps.DB))

	router.POST("/webhook/:source", WebhookHandler(deps.Registry, deps.Runs, deps.Dispatch, deps.Logger))

	api := router.Group("/api")
	{
		api.GET("/summaries", ListSummariesHandler(deps.Summaries))
		api.GET("/summaries/:source", ListSourceSummariesHandler(deps.Summaries))
		api.GET("/aggregated", ListAggregatedHandler(deps.Summaries))
		api.GET("/stats", StatsHandler(deps.Feedback, deps.Summaries))
		api.POST("/aggregate", AggregateHandler(deps.Aggregation))
		api.POST("/summarize/:source", SummarizeSourceHandler(deps.Feedback, deps.Runs, deps.Dispatch, deps.Logger))
		api.GET("/runs/:id", GetRunHandler(deps.Runs))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}

// RequestLogger logs one line per handled request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(
			"Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// ReadyHandler reports whether the database is reachable.
func ReadyHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.Ping(c.Request.Context(), db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
