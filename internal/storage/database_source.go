package storage

import (
	"context"
	"fmt"

	"github.com/Makoshaa/kia/internal/models"
)

// DatabaseSource exposes the leads table as raw records, newest first.
type DatabaseSource struct {
	repo  *Repository
	limit int
}

func NewDatabaseSource(repo *Repository, limit int) *DatabaseSource {
	return &DatabaseSource{repo: repo, limit: limit}
}

func (s *DatabaseSource) FetchRecords(ctx context.Context) ([]models.RawRecord, error) {
	rows, err := s.repo.ListLeads(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}
	records := make([]models.RawRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Raw())
	}
	return records, nil
}
