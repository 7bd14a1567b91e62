package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Makoshaa/kia/internal/auth"
	"github.com/Makoshaa/kia/internal/client"
	"github.com/Makoshaa/kia/internal/config"
	"github.com/Makoshaa/kia/internal/export"
	"github.com/Makoshaa/kia/internal/metrics"
	"github.com/Makoshaa/kia/internal/monitoring"
	"github.com/Makoshaa/kia/internal/refresh"
	"github.com/Makoshaa/kia/internal/storage"
)

type Handler struct {
	config     *config.Config
	repo       *storage.Repository
	store      *storage.SnapshotStore
	refresher  *refresh.Refresher
	auth       *auth.Service
	httpClient *client.HTTPClient
	calculator *metrics.Calculator
	exporter   *export.Exporter
	metrics    *monitoring.Metrics
	logger     *logrus.Logger
}

func New(cfg *config.Config, repo *storage.Repository, store *storage.SnapshotStore, refresher *refresh.Refresher,
	authService *auth.Service, httpClient *client.HTTPClient, calculator *metrics.Calculator,
	exporter *export.Exporter, metrics *monitoring.Metrics, logger *logrus.Logger) *Handler {
	return &Handler{
		config:     cfg,
		repo:       repo,
		store:      store,
		refresher:  refresher,
		auth:       authService,
		httpClient: httpClient,
		calculator: calculator,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
	}
}

// Router wires every route of the service.
func (h *Handler) Router() *gin.Engine {
	if h.config.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), h.cors())

	// Health endpoints
	router.GET("/healthz", h.HealthCheck)
	router.GET("/readyz", h.ReadinessCheck)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	api := router.Group("/api")

	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)

	// Machine-to-machine lead ingestion
	api.POST("/leads", auth.RequireAPIKey(h.config.APIKey), h.CreateLead)

	session := api.Group("", h.auth.RequireSession(), h.reloadIdentity())
	session.GET("/me", h.Me)
	session.GET("/leads", h.ListLeads)
	session.GET("/sheets", auth.RequireAdmin(), h.FetchSheet)

	dashboards := session.Group("/dashboards/:id", h.requireDashboard())
	dashboards.GET("/summary", h.GetSummary)
	dashboards.GET("/leads", h.GetDashboardLeads)
	dashboards.POST("/refresh", h.RefreshDashboard)
	dashboards.GET("/quality", h.GetDataQualityReport)
	dashboards.POST("/export", h.ExportDashboard)

	admin := session.Group("/admin", auth.RequireAdmin())
	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.PUT("/users/:id", h.UpdateUser)
	admin.DELETE("/users/:id", h.DeleteUser)
	admin.GET("/dashboards", h.ListDashboards)
	admin.POST("/dashboards", h.CreateDashboard)
	admin.PUT("/dashboards/:id", h.UpdateDashboard)
	admin.DELETE("/dashboards/:id", h.DeleteDashboard)

	return router
}

func (h *Handler) cors() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(h.config.CORSOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = h.config.CORSOrigins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "leadboard",
	})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	if err := h.repo.Ping(c.Request.Context()); err != nil {
		h.logger.WithError(err).Warn("Readiness check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"message": "Database is unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"dashboards": len(h.store.IDs()),
	})
}
