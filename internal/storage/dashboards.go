package storage

import (
	"context"

	"gorm.io/gorm"

	"github.com/Makoshaa/kia/internal/models"
)

func (r *Repository) CreateDashboard(ctx context.Context, dashboard *models.Dashboard) error {
	return translate(r.db.WithContext(ctx).Create(dashboard).Error)
}

func (r *Repository) GetDashboard(ctx context.Context, id string) (*models.Dashboard, error) {
	var dashboard models.Dashboard
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dashboard).Error; err != nil {
		return nil, translate(err)
	}
	return &dashboard, nil
}

func (r *Repository) ListDashboards(ctx context.Context) ([]models.Dashboard, error) {
	dashboards := []models.Dashboard{}
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&dashboards).Error; err != nil {
		return nil, err
	}
	return dashboards, nil
}

// UpdateDashboard overwrites every column except id and created_at.
func (r *Repository) UpdateDashboard(ctx context.Context, dashboard *models.Dashboard) error {
	result := r.db.WithContext(ctx).Model(dashboard).Select("*").Omit("id", "created_at").Updates(dashboard)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDashboard removes the dashboard and unassigns its users.
func (r *Repository) DeleteDashboard(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.Dashboard{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.User{}).Where("dashboard_id = ?", id).Update("dashboard_id", "").Error
	})
}
