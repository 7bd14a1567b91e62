package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Makoshaa/kia/internal/models"
)

// ErrUnsupportedShape means a response held no recognizable list of records.
var ErrUnsupportedShape = errors.New("unsupported response shape")

// RecordSource returns the current raw records of one dashboard source.
type RecordSource interface {
	FetchRecords(ctx context.Context) ([]models.RawRecord, error)
}

// EndpointSource reads records from a JSON HTTP endpoint.
type EndpointSource struct {
	url    string
	http   *HTTPClient
	logger *logrus.Logger
}

func NewEndpointSource(url string, httpClient *HTTPClient, logger *logrus.Logger) *EndpointSource {
	return &EndpointSource{url: url, http: httpClient, logger: logger}
}

func (s *EndpointSource) FetchRecords(ctx context.Context) ([]models.RawRecord, error) {
	body, err := s.http.Get(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	records, err := DecodeRecords(body)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"url":     s.url,
		"records": len(records),
	}).Info("Fetched endpoint records")
	return records, nil
}

// DecodeRecords accepts a bare array, {data: [...]}, {leads: [...]},
// {values: [[headers], [row]...]} or, failing those, the first array-valued
// top-level key in key order. Array items that are not objects become empty
// records.
func DecodeRecords(body []byte) ([]models.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	switch v := payload.(type) {
	case []any:
		return itemsToRecords(v), nil
	case map[string]any:
		for _, key := range []string{"data", "leads"} {
			if items, ok := v[key].([]any); ok {
				return itemsToRecords(items), nil
			}
		}
		if rows, ok := v["values"].([]any); ok {
			return valuesToRecords(rows), nil
		}

		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if items, ok := v[key].([]any); ok {
				return itemsToRecords(items), nil
			}
		}
	}
	return nil, ErrUnsupportedShape
}

func itemsToRecords(items []any) []models.RawRecord {
	records := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		records = append(records, models.RecordFromAny(item))
	}
	return records
}

// valuesToRecords uses the first row as keys. Cells past the end of a short
// row are null.
func valuesToRecords(rows []any) []models.RawRecord {
	if len(rows) == 0 {
		return []models.RawRecord{}
	}
	headerRow, _ := rows[0].([]any)
	headers := make([]string, len(headerRow))
	for i, cell := range headerRow {
		headers[i] = models.FromAny(cell).Trimmed()
	}

	records := make([]models.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells, _ := row.([]any)
		record := make(models.RawRecord, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(cells) {
				record[header] = models.FromAny(cells[i])
			} else {
				record[header] = models.Null()
			}
		}
		records = append(records, record)
	}
	return records
}
