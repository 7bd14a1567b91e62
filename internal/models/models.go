package models

import (
	"time"
)

// QualityLevel is the canonical strength tier of a lead.
type QualityLevel string

const (
	QualityLow    QualityLevel = "low"
	QualityMedium QualityLevel = "medium"
	QualityGood   QualityLevel = "good"
	QualityHigh   QualityLevel = "high"
)

func (q QualityLevel) Valid() bool {
	switch q {
	case QualityLow, QualityMedium, QualityGood, QualityHigh:
		return true
	}
	return false
}

// Placeholders substituted for missing data.
const (
	NotSpecified       = "Не указано"
	DateNotSpecified   = "Не указана"
	SourceNotSpecified = "Не указан"
	Uncategorized      = "Без категории"
	NoData             = "Нет данных"
)

// Lead is the canonical, fully populated lead record.
type Lead struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Phone     string       `json:"phone"`
	Summary   string       `json:"summary"`
	Category  string       `json:"category"`
	Source    string       `json:"source"`
	Quality   QualityLevel `json:"quality"`
	CreatedAt string       `json:"createdAt"`

	// Day is the date-only rendering of CreatedAt, used for day buckets.
	Day string `json:"day"`
	// Timestamp is the parsed CreatedAt; zero when the raw date was unparseable.
	Timestamp time.Time `json:"timestamp,omitempty"`
	// Extra holds raw fields no alias consumed.
	Extra map[string]string `json:"extra,omitempty"`
}

// Data Quality Tracking Structures
type FieldQuality struct {
	IsValid       bool   `json:"is_valid"`
	Description   string `json:"description"`
	OriginalValue string `json:"original_value,omitempty"`
}

type RecordQuality struct {
	RecordID    string                  `json:"record_id"`
	Index       int                     `json:"index"`
	IsValid     bool                    `json:"is_valid"`
	FieldErrors map[string]FieldQuality `json:"field_errors"`
	ErrorCount  int                     `json:"error_count"`
}

// DataQualityReport describes how cleanly one batch of raw records normalized.
type DataQualityReport struct {
	Summary   QualitySummary  `json:"summary"`
	Records   []RecordQuality `json:"records"`
	Timestamp string          `json:"timestamp"`
}

type QualitySummary struct {
	TotalRecords int      `json:"total_records"`
	ValidRecords int      `json:"valid_records"`
	QualityScore float64  `json:"quality_score"`
	CommonIssues []string `json:"common_issues"`
}

// Window is the trailing period of the daily series.
type Window string

const (
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
)

// Days returns the window length, defaulting to a week for unknown values.
func (w Window) Days() int {
	switch w {
	case WindowMonth:
		return 30
	case WindowYear:
		return 365
	default:
		return 7
	}
}

// ParseWindow accepts week/month/year; anything else is a week.
func ParseWindow(s string) Window {
	switch Window(s) {
	case WindowMonth, WindowYear:
		return Window(s)
	}
	return WindowWeek
}

// DayStats is one entry of the dense daily series.
type DayStats struct {
	Date   string `json:"date"`
	Count  int    `json:"count"`
	High   int    `json:"high"`
	Good   int    `json:"good,omitempty"`
	Medium int    `json:"medium"`
	Low    int    `json:"low"`
}

// BreakdownItem is one bar of a category or source chart.
type BreakdownItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type QualityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	Good   int `json:"good,omitempty"`
	High   int `json:"high"`
}

// DashboardSummary is derived from a lead list and is never persisted.
type DashboardSummary struct {
	TotalLeads              int             `json:"totalLeads"`
	Counts                  QualityCounts   `json:"counts"`
	Conversion              int             `json:"conversion"`
	HighPotentialConversion int             `json:"highPotentialConversion"`
	LastLead                string          `json:"lastLead"`
	LatestLead              *Lead           `json:"latestLead,omitempty"`
	BestDay                 string          `json:"bestDay"`
	AvgLeadsPerDay          int             `json:"avgLeadsPerDay"`
	MaxLeadsInOneDay        int             `json:"maxLeadsInOneDay"`
	Categories              []BreakdownItem `json:"categories"`
	Sources                 []BreakdownItem `json:"sources"`
	Window                  Window          `json:"window"`
	Series                  []DayStats      `json:"series"`
}

// API response structures
type MetricsResponse struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	HasMore bool        `json:"has_more"`
}

type RefreshResponse struct {
	Status      string         `json:"status"`
	DashboardID string         `json:"dashboard_id"`
	Generation  uint64         `json:"generation"`
	Leads       int            `json:"leads"`
	ProcessedAt string         `json:"processed_at"`
	Message     string         `json:"message"`
	Quality     QualitySummary `json:"quality_summary"`
}

type ExportRecord struct {
	DashboardID string `json:"dashboard_id"`
	Date        string `json:"date"`
	Total       int    `json:"total"`
	High        int    `json:"high"`
	Good        int    `json:"good"`
	Medium      int    `json:"medium"`
	Low         int    `json:"low"`
}

// Snapshot is the latest normalized lead list of one dashboard. A failed
// refresh keeps the previous leads and only records the error.
type Snapshot struct {
	DashboardID string             `json:"dashboard_id"`
	Generation  uint64             `json:"generation"`
	Leads       []Lead             `json:"-"`
	Report      *DataQualityReport `json:"-"`
	FetchedAt   time.Time          `json:"fetched_at"`
	LastError   string             `json:"last_error,omitempty"`
	ErrorAt     time.Time          `json:"error_at,omitempty"`
}
