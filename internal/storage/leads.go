package storage

import (
	"context"

	"github.com/Makoshaa/kia/internal/models"
)

func (r *Repository) CreateLead(ctx context.Context, lead *models.LeadRow) error {
	return translate(r.db.WithContext(ctx).Create(lead).Error)
}

func (r *Repository) CreateLeads(ctx context.Context, leads []models.LeadRow) error {
	if len(leads) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Create(&leads).Error)
}

// ListLeads returns the newest leads first; limit <= 0 means all of them.
func (r *Repository) ListLeads(ctx context.Context, limit int) ([]models.LeadRow, error) {
	leads := []models.LeadRow{}
	query := r.db.WithContext(ctx).Order("created_at desc").Order("id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&leads).Error; err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *Repository) CountLeads(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.LeadRow{}).Count(&n).Error
	return n, err
}
