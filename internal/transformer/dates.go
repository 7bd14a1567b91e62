package transformer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Makoshaa/kia/internal/models"
)

const (
	FullLayout = "02.01.2006 15:04"
	DayLayout  = "02.01.2006"
)

var (
	isoPattern  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2})(?::(\d{2})(?:\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?(\D.*)?$`)
	gvizPattern = regexp.MustCompile(`^Date\((\d{4}),\s*(\d{1,2}),\s*(\d{1,2})(?:,\s*(\d{1,2}))?(?:,\s*(\d{1,2}))?(?:,\s*(\d{1,2}))?\)$`)

	passthroughPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4} \d{2}:\d{2}$`),
		regexp.MustCompile(`^\d{2}/\d{2}/\d{4} \d{2}:\d{2}$`),
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`),
	}

	// Day-first wins over month-first for slash dates.
	genericLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"2006/01/02 15:04:05",
		"2006/01/02 15:04",
		"2006/01/02",
		"02.01.2006 15:04:05",
		"02.01.2006 15:04",
		"02.01.2006, 15:04",
		"02.01.2006",
		"2.1.2006",
		"02/01/2006 15:04:05",
		"02/01/2006 15:04",
		"02/01/2006",
		time.RFC1123,
		time.RFC1123Z,
		"Mon Jan 2 2006 15:04:05 GMT-0700",
		"Jan 2, 2006",
		"2 January 2006",
	}
)

// CanonicalDate holds both renderings of one parsed date. Time is zero when
// the token could not be parsed; Full and Day then carry the raw token.
type CanonicalDate struct {
	Full string
	Day  string
	Time time.Time
}

func (c CanonicalDate) Parsed() bool {
	return !c.Time.IsZero()
}

// DateNormalizer turns arbitrary date tokens into the dd.mm.yyyy convention.
type DateNormalizer struct {
	loc *time.Location
}

func NewDateNormalizer(loc *time.Location) *DateNormalizer {
	if loc == nil {
		loc = time.Local
	}
	return &DateNormalizer{loc: loc}
}

func (d *DateNormalizer) Location() *time.Location {
	return d.loc
}

// NormalizeDate returns the full date+time rendering of a raw token.
func (d *DateNormalizer) NormalizeDate(raw string) string {
	return d.Parse(models.String(raw)).Full
}

// DateOnly returns the date-only rendering of a raw token.
func (d *DateNormalizer) DateOnly(raw string) string {
	return d.Parse(models.String(raw)).Day
}

// FromTime renders an already known instant.
func (d *DateNormalizer) FromTime(t time.Time) CanonicalDate {
	t = t.In(d.loc)
	return CanonicalDate{Full: t.Format(FullLayout), Day: t.Format(DayLayout), Time: t}
}

// Parse runs the full attempt chain on a raw value.
func (d *DateNormalizer) Parse(raw models.Value) CanonicalDate {
	if raw.IsNumber() {
		if t, ok := d.fromNumber(raw.Num); ok {
			return d.FromTime(t)
		}
	}

	token := raw.Trimmed()
	if token == "" || token == "undefined" || token == "null" {
		return CanonicalDate{Full: models.DateNotSpecified, Day: models.DateNotSpecified}
	}

	if t, ok := d.fromISO(token); ok {
		return d.FromTime(t)
	}
	if t, ok := d.fromGviz(token); ok {
		return d.FromTime(t)
	}
	for _, layout := range genericLayouts {
		if t, err := time.ParseInLocation(layout, token, d.loc); err == nil {
			return d.FromTime(t)
		}
	}

	for _, pattern := range passthroughPatterns {
		if pattern.MatchString(token) {
			return CanonicalDate{Full: token, Day: strings.Fields(token)[0]}
		}
	}
	return CanonicalDate{Full: token, Day: token}
}

// fromISO reads the components as written. Only a token that ends in an
// explicit zone designator is an instant converted into the local zone; any
// other trailing text, like "GMT+0300 (Moscow)", is ignored.
func (d *DateNormalizer) fromISO(token string) (time.Time, bool) {
	m := isoPattern.FindStringSubmatch(token)
	if m == nil {
		return time.Time{}, false
	}
	if m[7] != "" && m[8] == "" {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04Z07:00", "2006-01-02T15:04:05Z0700", "2006-01-02T15:04:05.999999999Z0700"} {
			if t, err := time.Parse(layout, token); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	return d.build(atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]), atoi(m[5]), atoi(m[6]))
}

// fromGviz reads Google visualization literals like Date(2024,0,15,10,30,0),
// whose month is zero-based.
func (d *DateNormalizer) fromGviz(token string) (time.Time, bool) {
	m := gvizPattern.FindStringSubmatch(token)
	if m == nil {
		return time.Time{}, false
	}
	return d.build(atoi(m[1]), atoi(m[2])+1, atoi(m[3]), atoi(m[4]), atoi(m[5]), atoi(m[6]))
}

// fromNumber accepts unix milliseconds, unix seconds and spreadsheet serial days.
func (d *DateNormalizer) fromNumber(n float64) (time.Time, bool) {
	switch {
	case n >= 1e11:
		return time.UnixMilli(int64(n)), true
	case n >= 1e9:
		return time.Unix(int64(n), 0), true
	case n > 20000 && n < 80000:
		epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, d.loc)
		days := int(n)
		secs := int((n - float64(days)) * 86400)
		return epoch.AddDate(0, 0, days).Add(time.Duration(secs) * time.Second), true
	}
	return time.Time{}, false
}

// build rejects components that time.Date would silently roll over.
func (d *DateNormalizer) build(year, month, day, hour, min, sec int) (time.Time, bool) {
	if month < 1 || month > 12 || hour > 23 || min > 59 || sec > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, min, sec, 0, d.loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
