package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Makoshaa/kia/internal/auth"
	"github.com/Makoshaa/kia/internal/metrics"
	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/refresh"
	"github.com/Makoshaa/kia/internal/storage"
)

const dashboardKey = "dashboard"

// requireDashboard loads :id and checks the session may view it. Users only
// reach the dashboard assigned to them.
func (h *Handler) requireDashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		identity, _ := auth.CurrentIdentity(c)
		if !identity.CanView(id) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access to this dashboard is denied"})
			return
		}

		dashboard, err := h.repo.GetDashboard(c.Request.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Dashboard not found"})
			return
		}
		if err != nil {
			h.logger.WithError(err).Error("Failed to load dashboard")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(dashboardKey, *dashboard)
		c.Next()
	}
}

func currentDashboard(c *gin.Context) models.Dashboard {
	value, _ := c.Get(dashboardKey)
	dashboard, _ := value.(models.Dashboard)
	return dashboard
}

// GetSummary recomputes the summary from the latest snapshot on every call.
func (h *Handler) GetSummary(c *gin.Context) {
	dashboard := currentDashboard(c)
	window := models.ParseWindow(c.Query("window"))

	var snapshot *models.Snapshot
	var leads []models.Lead
	if s, ok := h.store.Get(dashboard.ID); ok {
		snapshot = &s
		leads = s.Leads
	}

	summary := h.calculator.Aggregate(leads, window)
	if !dashboard.ShowLeadCategories {
		summary.Categories = nil
	}
	if !dashboard.ShowLeadSource {
		summary.Sources = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"dashboard": dashboard,
		"snapshot":  snapshot,
		"summary":   summary,
	})
}

func (h *Handler) GetDashboardLeads(c *gin.Context) {
	dashboard := currentDashboard(c)

	filter := metrics.LeadFilter{
		Search:  c.Query("search"),
		Quality: models.QualityLevel(c.Query("quality")),
	}
	if filter.Quality != "" && !filter.Quality.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quality must be low, medium, good or high"})
		return
	}

	var err error
	if from := c.Query("from"); from != "" {
		filter.From, err = time.Parse("2006-01-02", from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date format, use YYYY-MM-DD"})
			return
		}
	}
	if to := c.Query("to"); to != "" {
		filter.To, err = time.Parse("2006-01-02", to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date format, use YYYY-MM-DD"})
			return
		}
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	snapshot, _ := h.store.Get(dashboard.ID)
	leads := metrics.Filter(snapshot.Leads, filter)

	c.JSON(http.StatusOK, metrics.Paginate(leads, page, limit))
}

func (h *Handler) RefreshDashboard(c *gin.Context) {
	dashboard := currentDashboard(c)

	if !h.refresher.IsTracked(dashboard.ID) {
		if err := h.refresher.Track(dashboard); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
	}

	resp, err := h.refresher.RefreshNow(c.Request.Context(), dashboard.ID)
	switch {
	case errors.Is(err, refresh.ErrStale):
		c.JSON(http.StatusConflict, gin.H{"error": "Refresh was superseded by a newer one"})
		return
	case errors.Is(err, refresh.ErrNotTracked):
		c.JSON(http.StatusNotFound, gin.H{"error": "Dashboard not found"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetDataQualityReport(c *gin.Context) {
	dashboard := currentDashboard(c)

	snapshot, ok := h.store.Get(dashboard.ID)
	if !ok || snapshot.Report == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No data available for quality analysis. Please refresh the dashboard first.",
		})
		return
	}

	c.JSON(http.StatusOK, snapshot.Report)
}

// ExportDashboard sends the daily series to the configured sink. Without a
// sink the records are only returned.
func (h *Handler) ExportDashboard(c *gin.Context) {
	dashboard := currentDashboard(c)
	window := models.ParseWindow(c.Query("window"))

	snapshot, ok := h.store.Get(dashboard.ID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No data found for this dashboard"})
		return
	}

	series := h.calculator.Series(snapshot.Leads, window)
	exportRecords := h.exporter.ConvertSeriesToExport(dashboard.ID, series)

	if h.config.SinkURL != "" {
		if err := h.exporter.ExportDailyData(c.Request.Context(), h.config.SinkURL, exportRecords); err != nil {
			h.logger.WithError(err).Error("Failed to export to sink")
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to export data"})
			return
		}
	}

	h.logger.WithFields(logrus.Fields{
		"dashboard_id": dashboard.ID,
		"window":       window,
		"records":      len(exportRecords),
	}).Info("Dashboard exported")

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"dashboard_id":  dashboard.ID,
		"window":        window,
		"records_count": len(exportRecords),
		"exported_at":   time.Now().Format(time.RFC3339),
		"sink_url":      h.config.SinkURL,
		"data":          exportRecords,
	})
}
