package client

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Makoshaa/kia/internal/models"
)

var (
	gvizURLPattern   = regexp.MustCompile(`/gviz/`)
	editPathPattern  = regexp.MustCompile(`/edit.*`)
	setResponseRegex = regexp.MustCompile(`(?s)setResponse\((.*)\);?\s*$`)
)

// SheetsSource reads a published Google spreadsheet, either through its CSV
// export or through a visualization query link.
type SheetsSource struct {
	url    string
	http   *HTTPClient
	logger *logrus.Logger
}

func NewSheetsSource(sheetURL string, httpClient *HTTPClient, logger *logrus.Logger) *SheetsSource {
	return &SheetsSource{url: sheetURL, http: httpClient, logger: logger}
}

func (s *SheetsSource) FetchRecords(ctx context.Context) ([]models.RawRecord, error) {
	var (
		records []models.RawRecord
		err     error
	)

	if IsGvizURL(s.url) {
		body, fetchErr := s.http.Get(ctx, s.url)
		if fetchErr != nil {
			return nil, fmt.Errorf("sheets gviz fetch failed: %w", fetchErr)
		}
		records, err = ParseGviz(body)
	} else {
		exportURL := CSVExportURL(s.url)
		body, fetchErr := s.http.Get(ctx, exportURL)
		if fetchErr != nil {
			return nil, fmt.Errorf("sheets CSV fetch failed: %w", fetchErr)
		}
		records, err = ParseCSV(body)
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"url":     s.url,
		"records": len(records),
	}).Info("Fetched spreadsheet records")
	return records, nil
}

func IsGvizURL(sheetURL string) bool {
	return gvizURLPattern.MatchString(sheetURL)
}

// CSVExportURL turns an /edit link into its /export?format=csv form. A gid in
// the fragment moves into the query. Export links and unparseable input are
// returned unchanged.
func CSVExportURL(sheetURL string) string {
	u, err := url.Parse(sheetURL)
	if err != nil || u.Host == "" {
		return sheetURL
	}
	if strings.Contains(u.Path, "/export") {
		return sheetURL
	}

	u.Path = editPathPattern.ReplaceAllString(u.Path, "/export")
	q := u.Query()
	q.Set("format", "csv")
	if fragment, err := url.ParseQuery(u.Fragment); err == nil {
		if gid := fragment.Get("gid"); gid != "" && q.Get("gid") == "" {
			q.Set("gid", gid)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

type gvizResponse struct {
	Table *struct {
		Cols []struct {
			Label string `json:"label"`
		} `json:"cols"`
		Rows []struct {
			C []*struct {
				V any `json:"v"`
			} `json:"c"`
		} `json:"rows"`
	} `json:"table"`
}

// ParseGviz reads a google.visualization.Query.setResponse(...) payload.
// Columns without a label are keyed col<index>; null cells become "".
func ParseGviz(body []byte) ([]models.RawRecord, error) {
	m := setResponseRegex.FindSubmatch(body)
	if m == nil {
		return []models.RawRecord{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(m[1]))
	dec.UseNumber()
	var resp gvizResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode gviz response: %w", err)
	}
	if resp.Table == nil {
		return []models.RawRecord{}, nil
	}

	headers := make([]string, len(resp.Table.Cols))
	for i, col := range resp.Table.Cols {
		headers[i] = strings.TrimSpace(col.Label)
		if headers[i] == "" {
			headers[i] = fmt.Sprintf("col%d", i)
		}
	}

	records := make([]models.RawRecord, 0, len(resp.Table.Rows))
	for _, row := range resp.Table.Rows {
		record := make(models.RawRecord, len(row.C))
		for i, cell := range row.C {
			key := fmt.Sprintf("col%d", i)
			if i < len(headers) {
				key = headers[i]
			}
			if cell == nil || cell.V == nil {
				record[key] = models.String("")
				continue
			}
			record[key] = models.FromAny(cell.V)
		}
		records = append(records, record)
	}
	return records, nil
}

// ParseCSV uses the first row as keys. Blank lines are skipped, fields are
// trimmed and short rows are padded with "".
func ParseCSV(body []byte) ([]models.RawRecord, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []models.RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	records := []models.RawRecord{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if isBlankRow(row) {
			continue
		}

		record := make(models.RawRecord, len(header))
		for i, key := range header {
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			record[key] = models.String(value)
		}
		records = append(records, record)
	}
	return records, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
