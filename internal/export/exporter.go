package export

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Makoshaa/kia/internal/client"
	"github.com/Makoshaa/kia/internal/models"
)

var ErrNoSink = errors.New("no sink url configured")

type Exporter struct {
	secret     string
	httpClient *client.HTTPClient
	logger     *logrus.Logger
}

func NewExporter(secret string, httpClient *client.HTTPClient, logger *logrus.Logger) *Exporter {
	return &Exporter{
		secret:     secret,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ExportDailyData posts each record separately, signed with HMAC-SHA256 in
// the X-Signature header. It stops at the first failure.
func (e *Exporter) ExportDailyData(ctx context.Context, sinkURL string, records []models.ExportRecord) error {
	if sinkURL == "" {
		return ErrNoSink
	}
	if len(records) == 0 {
		return fmt.Errorf("no records to export")
	}

	for _, record := range records {
		signature, err := e.createSignature(record)
		if err != nil {
			e.logger.WithError(err).Error("Failed to create signature")
			return fmt.Errorf("failed to create signature: %w", err)
		}

		if err := e.httpClient.PostJSON(ctx, sinkURL, record, signature); err != nil {
			e.logger.WithError(err).WithField("record", record).Error("Failed to export record")
			return fmt.Errorf("failed to export record: %w", err)
		}

		e.logger.WithFields(logrus.Fields{
			"dashboard_id": record.DashboardID,
			"date":         record.Date,
			"total":        record.Total,
		}).Debug("Exported record")
	}

	e.logger.WithFields(logrus.Fields{
		"records": len(records),
		"sink":    sinkURL,
	}).Info("Export completed")
	return nil
}

// ConvertSeriesToExport turns a daily series into one record per day.
func (e *Exporter) ConvertSeriesToExport(dashboardID string, series []models.DayStats) []models.ExportRecord {
	records := make([]models.ExportRecord, 0, len(series))
	for _, day := range series {
		records = append(records, models.ExportRecord{
			DashboardID: dashboardID,
			Date:        day.Date,
			Total:       day.Count,
			High:        day.High,
			Good:        day.Good,
			Medium:      day.Medium,
			Low:         day.Low,
		})
	}
	return records
}

func (e *Exporter) createSignature(data interface{}) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	h := hmac.New(sha256.New, []byte(e.secret))
	h.Write(jsonData)
	signature := hex.EncodeToString(h.Sum(nil))

	return "sha256=" + signature, nil
}
