package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makoshaa/kia/internal/models"
)

func TestCSVExportURL(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "edit link",
			in:   "https://docs.google.com/spreadsheets/d/abc123/edit",
			want: "https://docs.google.com/spreadsheets/d/abc123/export?format=csv",
		},
		{
			name: "edit link with gid fragment",
			in:   "https://docs.google.com/spreadsheets/d/abc123/edit#gid=42",
			want: "https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=42",
		},
		{
			name: "edit link with query",
			in:   "https://docs.google.com/spreadsheets/d/abc123/edit?usp=sharing",
			want: "https://docs.google.com/spreadsheets/d/abc123/export?format=csv&usp=sharing",
		},
		{
			name: "already export",
			in:   "https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=7",
			want: "https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=7",
		},
		{
			name: "not a url",
			in:   "sheet",
			want: "sheet",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CSVExportURL(tc.in))
		})
	}
}

func TestIsGvizURL(t *testing.T) {
	assert.True(t, IsGvizURL("https://docs.google.com/spreadsheets/d/abc/gviz/tq?tqx=out:json"))
	assert.False(t, IsGvizURL("https://docs.google.com/spreadsheets/d/abc/edit"))
}

func TestParseCSV(t *testing.T) {
	body := "\ufeffИмя, Номер ,Качество\r\n" +
		"Иван,+7 999 1111111, высокий\r\n" +
		"\r\n" +
		"\"Петров, Олег\",+7 700\r\n"

	records, err := ParseCSV([]byte(body))

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.RawRecord{
		"Имя":      models.String("Иван"),
		"Номер":    models.String("+7 999 1111111"),
		"Качество": models.String("высокий"),
	}, records[0])
	assert.Equal(t, models.RawRecord{
		"Имя":      models.String("Петров, Олег"),
		"Номер":    models.String("+7 700"),
		"Качество": models.String(""),
	}, records[1])
}

func TestParseCSVEmpty(t *testing.T) {
	records, err := ParseCSV(nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

const gvizBody = `/*O_o*/
google.visualization.Query.setResponse({"version":"0.6","status":"ok","table":{"cols":[{"id":"A","label":"Имя","type":"string"},{"id":"B","label":"Дата","type":"datetime"},{"id":"C","label":"","type":"number"}],"rows":[{"c":[{"v":"Иван"},{"v":"Date(2024,0,15,10,30,0)","f":"15.01.2024 10:30:00"},{"v":85.0}]},{"c":[{"v":"Анна"},null,{"v":null}]}]}});`

func TestParseGviz(t *testing.T) {
	records, err := ParseGviz([]byte(gvizBody))

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.RawRecord{
		"Имя":  models.String("Иван"),
		"Дата": models.String("Date(2024,0,15,10,30,0)"),
		"col2": models.Number(85),
	}, records[0])
	assert.Equal(t, models.RawRecord{
		"Имя":  models.String("Анна"),
		"Дата": models.String(""),
		"col2": models.String(""),
	}, records[1])
}

func TestParseGvizWithoutResponse(t *testing.T) {
	records, err := ParseGviz([]byte("<html>login required</html>"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSheetsSourceFetchesCSVExport(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte("name,phone\nИван,123\n"))
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	source := NewSheetsSource(server.URL+"/spreadsheets/d/abc/edit#gid=3", newTestClient(1), logger)

	records, err := source.FetchRecords(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/spreadsheets/d/abc/export", gotPath)
	assert.Equal(t, "format=csv&gid=3", gotQuery)
	require.Len(t, records, 1)
	assert.Equal(t, "Иван", records[0]["name"].String())
}

func TestSheetsSourceFetchesGviz(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(gvizBody))
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	source := NewSheetsSource(server.URL+"/spreadsheets/d/abc/gviz/tq", newTestClient(1), logger)

	records, err := source.FetchRecords(context.Background())

	require.NoError(t, err)
	assert.Len(t, records, 2)
}
