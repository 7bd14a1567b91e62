package refresh

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makoshaa/kia/internal/client"
	"github.com/Makoshaa/kia/internal/config"
	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/storage"
)

func TestSources(t *testing.T) {
	logger, _ := test.NewNullLogger()
	httpClient := client.NewHTTPClient(&config.Config{HTTPTimeout: time.Second, RetryAttempts: 1}, logger)
	factory := Sources(httpClient, nil, logger)

	testCases := []struct {
		name      string
		dashboard models.Dashboard
		wantType  any
		wantErr   bool
	}{
		{"sheets", models.Dashboard{SourceKind: models.SourceSheets, SourceURL: "https://docs.google.com/spreadsheets/d/x/edit"}, &client.SheetsSource{}, false},
		{"default kind is sheets", models.Dashboard{SourceURL: "https://docs.google.com/spreadsheets/d/x/edit"}, &client.SheetsSource{}, false},
		{"endpoint", models.Dashboard{SourceKind: models.SourceEndpoint, SourceURL: "https://crm.example.com/leads"}, &client.EndpointSource{}, false},
		{"database", models.Dashboard{SourceKind: models.SourceDatabase}, &storage.DatabaseSource{}, false},
		{"sheets without url", models.Dashboard{SourceKind: models.SourceSheets}, nil, true},
		{"endpoint without url", models.Dashboard{SourceKind: models.SourceEndpoint}, nil, true},
		{"unknown kind", models.Dashboard{SourceKind: "ftp", SourceURL: "ftp://x"}, nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			source, err := factory(tc.dashboard)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tc.wantType, source)
		})
	}
}
