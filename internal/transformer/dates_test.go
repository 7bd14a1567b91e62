package transformer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Makoshaa/kia/internal/models"
)

func TestParseDate(t *testing.T) {
	d := NewDateNormalizer(time.UTC)

	testCases := []struct {
		name   string
		raw    models.Value
		full   string
		day    string
		parsed bool
	}{
		{"iso without zone", models.String("2024-01-15T10:30:00"), "15.01.2024 10:30", "15.01.2024", true},
		{"iso with millis and Z", models.String("2024-01-15T10:30:00.000Z"), "15.01.2024 10:30", "15.01.2024", true},
		{"iso with js suffix", models.String("2024-01-15T10:30:00 GMT+0300 (Moscow)"), "15.01.2024 10:30", "15.01.2024", true},
		{"iso with zone and trailing text", models.String("2024-01-15T10:30:00.000Z (UTC)"), "15.01.2024 10:30", "15.01.2024", true},
		{"iso minutes only", models.String("2024-01-15T10:30"), "15.01.2024 10:30", "15.01.2024", true},
		{"plain date", models.String("2024-01-15"), "15.01.2024 00:00", "15.01.2024", true},
		{"dotted with seconds", models.String("15.01.2024 10:30:45"), "15.01.2024 10:30", "15.01.2024", true},
		{"slash day first", models.String("05/01/2024"), "05.01.2024 00:00", "05.01.2024", true},
		{"gviz literal", models.String("Date(2024,0,15,10,30,0)"), "15.01.2024 10:30", "15.01.2024", true},
		{"gviz date only", models.String("Date(2024,11,31)"), "31.12.2024 00:00", "31.12.2024", true},
		{"unix millis", models.Number(1705314600000), "15.01.2024 10:30", "15.01.2024", true},
		{"unix seconds", models.Number(1705314600), "15.01.2024 10:30", "15.01.2024", true},
		{"sheets serial", models.Number(45306.4375), "15.01.2024 10:30", "15.01.2024", true},
		{"empty", models.String(""), models.DateNotSpecified, models.DateNotSpecified, false},
		{"null", models.Null(), models.DateNotSpecified, models.DateNotSpecified, false},
		{"undefined literal", models.String("undefined"), models.DateNotSpecified, models.DateNotSpecified, false},
		{"impossible day kept as written", models.String("31.02.2024 10:00"), "31.02.2024 10:00", "31.02.2024", false},
		{"iso followed by digits kept as written", models.String("2024-01-15T10:305"), "2024-01-15T10:305", "2024-01-15T10:305", false},
		{"rolled over iso kept as written", models.String("2024-13-45T10:30"), "2024-13-45T10:30", "2024-13-45T10:30", false},
		{"free text kept as written", models.String("вчера"), "вчера", "вчера", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := d.Parse(tc.raw)
			assert.Equal(t, tc.full, got.Full)
			assert.Equal(t, tc.day, got.Day)
			assert.Equal(t, tc.parsed, got.Parsed())
		})
	}
}

func TestParseDateZones(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*60*60)
	d := NewDateNormalizer(almaty)

	// explicit zones are instants
	assert.Equal(t, "15.01.2024 15:30", d.NormalizeDate("2024-01-15T10:30:00Z"))
	assert.Equal(t, "15.01.2024 10:30", d.NormalizeDate("2024-01-15T10:30:00+05:00"))
	// no zone means the components are used as written
	assert.Equal(t, "15.01.2024 10:30", d.NormalizeDate("2024-01-15T10:30:00"))
	// late evening UTC is already the next day locally
	assert.Equal(t, "16.01.2024", d.DateOnly("2024-01-15T22:00:00Z"))
	// trailing text after the time is not a zone designator
	assert.Equal(t, "15.01.2024 10:30", d.NormalizeDate("2024-01-15T10:30:00 GMT+0300 (Moscow)"))
}

func TestNormalizeDateIsIdempotent(t *testing.T) {
	d := NewDateNormalizer(time.UTC)

	for _, raw := range []string{"2024-01-15T10:30:00", "Date(2024,0,15)", "15/01/2024 08:00", "что-то"} {
		once := d.NormalizeDate(raw)
		assert.Equal(t, once, d.NormalizeDate(once), raw)
	}
}

func TestFromTime(t *testing.T) {
	d := NewDateNormalizer(time.UTC)
	got := d.FromTime(time.Date(2024, 3, 10, 9, 5, 0, 0, time.UTC))

	assert.Equal(t, "10.03.2024 09:05", got.Full)
	assert.Equal(t, "10.03.2024", got.Day)
	assert.True(t, got.Parsed())
}
