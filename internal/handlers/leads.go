package handlers

import (
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Makoshaa/kia/internal/client"
	"github.com/Makoshaa/kia/internal/models"
)

type createLeadRequest struct {
	Name           string      `json:"name"`
	City           string      `json:"city"`
	SelectedCar    string      `json:"selected_car"`
	PurchaseMethod string      `json:"purchase_method"`
	ClientQuality  interface{} `json:"client_quality"`
	TrafficSource  string      `json:"traffic_source"`
	SummaryDialog  string      `json:"summary_dialog"`
}

func (r createLeadRequest) complete() bool {
	return r.Name != "" && r.City != "" && r.SelectedCar != "" && r.PurchaseMethod != "" &&
		r.ClientQuality != nil && r.TrafficSource != "" && r.SummaryDialog != ""
}

// CreateLead stores one lead posted by an external integration.
func (h *Handler) CreateLead(c *gin.Context) {
	var req createLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	if !req.complete() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	score, ok := req.ClientQuality.(float64)
	if !ok || score < 0 || score > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_quality must be a number from 0 to 100"})
		return
	}

	lead := &models.LeadRow{
		Name:           strings.TrimSpace(req.Name),
		City:           strings.TrimSpace(req.City),
		SelectedCar:    strings.TrimSpace(req.SelectedCar),
		PurchaseMethod: strings.TrimSpace(req.PurchaseMethod),
		ClientQuality:  int(math.Round(score)),
		TrafficSource:  strings.TrimSpace(req.TrafficSource),
		SummaryDialog:  req.SummaryDialog,
	}
	if err := h.repo.CreateLead(c.Request.Context(), lead); err != nil {
		h.logger.WithError(err).Error("Failed to store lead")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"lead_id":        lead.ID,
		"traffic_source": lead.TrafficSource,
		"client_quality": lead.ClientQuality,
	}).Info("Lead created")

	c.JSON(http.StatusCreated, gin.H{
		"message": "Lead created",
		"lead":    lead,
	})
}

// ListLeads returns the stored leads, newest first.
func (h *Handler) ListLeads(c *gin.Context) {
	leads, err := h.repo.ListLeads(c.Request.Context(), 0)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list leads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

// FetchSheet returns the raw rows of a spreadsheet link without normalizing them.
func (h *Handler) FetchSheet(c *gin.Context) {
	sheetURL := c.Query("url")
	if sheetURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}

	source := client.NewSheetsSource(sheetURL, h.httpClient, h.logger)
	records, err := source.FetchRecords(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).WithField("url", sheetURL).Error("Failed to fetch spreadsheet")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []models.RawRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}
