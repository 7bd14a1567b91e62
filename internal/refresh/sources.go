package refresh

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Makoshaa/kia/internal/client"
	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/storage"
)

// SourceFactory builds the record source a dashboard points at.
type SourceFactory func(dashboard models.Dashboard) (client.RecordSource, error)

// Sources returns the factory for the three supported source kinds.
func Sources(httpClient *client.HTTPClient, repo *storage.Repository, logger *logrus.Logger) SourceFactory {
	return func(dashboard models.Dashboard) (client.RecordSource, error) {
		switch dashboard.SourceKind {
		case models.SourceSheets, "":
			if dashboard.SourceURL == "" {
				return nil, fmt.Errorf("dashboard %s has no spreadsheet url", dashboard.ID)
			}
			return client.NewSheetsSource(dashboard.SourceURL, httpClient, logger), nil
		case models.SourceEndpoint:
			if dashboard.SourceURL == "" {
				return nil, fmt.Errorf("dashboard %s has no endpoint url", dashboard.ID)
			}
			return client.NewEndpointSource(dashboard.SourceURL, httpClient, logger), nil
		case models.SourceDatabase:
			return storage.NewDatabaseSource(repo, 0), nil
		}
		return nil, fmt.Errorf("unsupported source kind %q", dashboard.SourceKind)
	}
}
