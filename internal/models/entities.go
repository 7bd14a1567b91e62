package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is a dashboard account. Regular users see only their assigned dashboard.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"column:password;size:255;not null"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Role         Role      `json:"role" gorm:"size:20;not null;default:'user'"`
	DashboardID  string    `json:"dashboard_id,omitempty" gorm:"size:26;index"`
	CreatedAt    time.Time `json:"created_at"`
}

type SourceKind string

const (
	SourceSheets   SourceKind = "sheets"
	SourceEndpoint SourceKind = "endpoint"
	SourceDatabase SourceKind = "database"
)

// Dashboard points at one lead source and carries its display options.
type Dashboard struct {
	ID                 string     `json:"id" gorm:"primaryKey;size:26"`
	Name               string     `json:"name" gorm:"size:255;not null"`
	SourceKind         SourceKind `json:"source_kind" gorm:"size:20;not null;default:'sheets'"`
	SourceURL          string     `json:"source_url" gorm:"type:text"`
	Owner              string     `json:"owner" gorm:"size:255"`
	ShowLeadSource     bool       `json:"show_lead_source"`
	ShowLeadCategories bool       `json:"show_lead_categories"`
	AutoRefresh        bool       `json:"auto_refresh"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// BeforeCreate assigns a ULID when the caller did not pick an id.
func (d *Dashboard) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = ulid.Make().String()
	}
	if d.SourceKind == "" {
		d.SourceKind = SourceSheets
	}
	return nil
}

// LeadRow is a lead as stored in the relational leads table.
type LeadRow struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"size:255;not null"`
	City           string    `json:"city" gorm:"size:255;not null"`
	SelectedCar    string    `json:"selected_car" gorm:"size:255;not null"`
	PurchaseMethod string    `json:"purchase_method" gorm:"size:100;not null"`
	ClientQuality  int       `json:"client_quality" gorm:"not null"`
	TrafficSource  string    `json:"traffic_source" gorm:"size:100;not null"`
	SummaryDialog  string    `json:"summary_dialog" gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

func (LeadRow) TableName() string { return "leads" }

// Raw exposes the row under its column names so it flows through the same
// normalization as any external record.
func (r LeadRow) Raw() RawRecord {
	return RawRecord{
		"id":              Number(float64(r.ID)),
		"name":            String(r.Name),
		"city":            String(r.City),
		"selected_car":    String(r.SelectedCar),
		"purchase_method": String(r.PurchaseMethod),
		"client_quality":  Number(float64(r.ClientQuality)),
		"traffic_source":  String(r.TrafficSource),
		"summary_dialog":  String(r.SummaryDialog),
		"created_at":      String(r.CreatedAt.Format(time.RFC3339)),
	}
}
