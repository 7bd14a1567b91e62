package transformer

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Makoshaa/kia/internal/models"
)

// Descriptions recorded in the quality report when the quality level fell back
// to medium.
const (
	QualityMissingIssue = "Missing - no quality field, defaulted to medium"
	QualityUnknownIssue = "Unknown quality value, defaulted to medium"
)

// Transformer turns raw external records into canonical leads.
type Transformer struct {
	resolver *Resolver
	quality  *QualityNormalizer
	dates    *DateNormalizer
	logger   logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Transformer)

func WithAliases(aliases AliasTable) Option {
	return func(t *Transformer) { t.resolver = NewResolver(aliases) }
}

func WithQuality(scheme Scheme, synonyms []Synonyms) Option {
	return func(t *Transformer) { t.quality = NewQualityNormalizer(scheme, synonyms) }
}

func WithLocation(loc *time.Location) Option {
	return func(t *Transformer) { t.dates = NewDateNormalizer(loc) }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(t *Transformer) { t.logger = logger }
}

// WithClock replaces time.Now for records without any date.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) { t.now = now }
}

func New(opts ...Option) *Transformer {
	silent := logrus.New()
	silent.SetOutput(io.Discard)

	t := &Transformer{
		resolver: NewResolver(nil),
		quality:  NewQualityNormalizer(ThreeLevel, nil),
		dates:    NewDateNormalizer(time.Local),
		logger:   silent,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transformer) Resolver() *Resolver { return t.resolver }
func (t *Transformer) Quality() *QualityNormalizer { return t.quality }
func (t *Transformer) Dates() *DateNormalizer { return t.dates }

// Normalize builds one Lead. index is the record's position in its batch; a
// negative index means the caller has none.
func (t *Transformer) Normalize(record models.RawRecord, index int) models.Lead {
	lead, _ := t.normalize(record, index, t.now())
	return lead
}

// NormalizeBatch normalizes every record, keeps ids unique and returns the
// data quality report for the batch.
func (t *Transformer) NormalizeBatch(records []models.RawRecord) ([]models.Lead, models.DataQualityReport) {
	now := t.now()
	leads := make([]models.Lead, 0, len(records))
	qualities := make([]models.RecordQuality, 0, len(records))

	for i, record := range records {
		lead, quality := t.normalize(record, i, now)
		leads = append(leads, lead)
		qualities = append(qualities, quality)
	}

	t.deduplicateIDs(leads, qualities)
	return leads, t.GenerateQualityReport(qualities)
}

func (t *Transformer) normalize(record models.RawRecord, index int, now time.Time) (models.Lead, models.RecordQuality) {
	if record == nil {
		record = models.RawRecord{}
	}
	quality := models.RecordQuality{
		Index:       index,
		IsValid:     true,
		FieldErrors: make(map[string]models.FieldQuality),
	}

	lead := models.Lead{ID: t.resolveID(record, index)}
	quality.RecordID = lead.ID

	lead.Name = t.resolveText(record, FieldName, models.NotSpecified, &quality)
	lead.Phone = t.resolveText(record, FieldPhone, models.NotSpecified, &quality)
	lead.Summary = t.resolveText(record, FieldSummary, models.NotSpecified, &quality)
	lead.Category = t.resolveText(record, FieldCategory, models.Uncategorized, &quality)
	lead.Source = t.resolveText(record, FieldSource, models.SourceNotSpecified, &quality)
	lead.Quality = t.resolveQuality(record, &quality)

	date := t.resolveDate(record, now, &quality)
	lead.CreatedAt = date.Full
	lead.Day = date.Day
	lead.Timestamp = date.Time

	lead.Extra = t.extraFields(record)

	quality.IsValid = quality.ErrorCount == 0
	return lead, quality
}

// resolveID prefers an identifier column, then the batch position, then a
// name-date composite for records normalized on their own.
func (t *Transformer) resolveID(record models.RawRecord, index int) string {
	if id, ok := t.resolver.Resolve(record, FieldID); ok {
		return id
	}
	if index >= 0 {
		return strconv.Itoa(index + 1)
	}
	name, hasName := t.resolver.Resolve(record, FieldName)
	date, hasDate := t.resolver.Resolve(record, FieldDate)
	if hasName && hasDate {
		return name + "-" + date
	}
	return "1"
}

func (t *Transformer) resolveText(record models.RawRecord, field Field, placeholder string, quality *models.RecordQuality) string {
	if value, ok := t.resolver.Resolve(record, field); ok {
		return value
	}
	quality.FieldErrors[string(field)] = models.FieldQuality{
		IsValid:     false,
		Description: fmt.Sprintf("Missing - %s not found, using placeholder", field),
	}
	quality.ErrorCount++
	return placeholder
}

func (t *Transformer) resolveQuality(record models.RawRecord, quality *models.RecordQuality) models.QualityLevel {
	key, raw, ok := t.resolver.Lookup(record, FieldQuality)
	if !ok {
		keys := record.Keys()
		t.logger.WithFields(logrus.Fields{
			"lead_id":          quality.RecordID,
			"available_fields": keys,
		}).Warn("No quality field found, defaulting to medium")
		quality.FieldErrors[string(FieldQuality)] = models.FieldQuality{
			IsValid:       false,
			Description:   QualityMissingIssue,
			OriginalValue: strings.Join(keys, ", "),
		}
		quality.ErrorCount++
		return models.QualityMedium
	}

	level, recognized := t.quality.Match(raw)
	if !recognized {
		t.logger.WithFields(logrus.Fields{
			"lead_id": quality.RecordID,
			"field":   key,
			"value":   raw.Trimmed(),
		}).Warn("Unknown quality value, defaulting to medium")
		quality.FieldErrors[string(FieldQuality)] = models.FieldQuality{
			IsValid:       false,
			Description:   QualityUnknownIssue,
			OriginalValue: raw.Trimmed(),
		}
		quality.ErrorCount++
	}
	return level
}

func (t *Transformer) resolveDate(record models.RawRecord, now time.Time, quality *models.RecordQuality) CanonicalDate {
	_, raw, ok := t.resolver.Lookup(record, FieldDate)
	if !ok {
		quality.FieldErrors[string(FieldDate)] = models.FieldQuality{
			IsValid:     false,
			Description: "Missing - date not found, using normalization time",
		}
		quality.ErrorCount++
		return t.dates.FromTime(now)
	}

	date := t.dates.Parse(raw)
	if !date.Parsed() {
		t.logger.WithFields(logrus.Fields{
			"lead_id": quality.RecordID,
			"value":   raw.Trimmed(),
		}).Debug("Unparseable date kept as written")
		quality.FieldErrors[string(FieldDate)] = models.FieldQuality{
			IsValid:       false,
			Description:   "Unparseable date - kept as written",
			OriginalValue: raw.Trimmed(),
		}
		quality.ErrorCount++
	}
	return date
}

func (t *Transformer) extraFields(record models.RawRecord) map[string]string {
	var extra map[string]string
	for key, value := range record {
		if t.resolver.IsAlias(key) {
			continue
		}
		if v := value.Trimmed(); v != "" {
			if extra == nil {
				extra = make(map[string]string)
			}
			extra[key] = v
		}
	}
	return extra
}

// deduplicateIDs keeps the first lead with a given id untouched and suffixes
// later ones with their batch position.
func (t *Transformer) deduplicateIDs(leads []models.Lead, qualities []models.RecordQuality) {
	seen := make(map[string]int, len(leads))
	for i := range leads {
		id := leads[i].ID
		existingIndex, exists := seen[id]
		if !exists {
			seen[id] = i
			continue
		}

		newID := fmt.Sprintf("%s-%d", id, i+1)
		for n := 2; ; n++ {
			if _, taken := seen[newID]; !taken {
				break
			}
			newID = fmt.Sprintf("%s-%d-%d", id, i+1, n)
		}
		leads[i].ID = newID
		seen[newID] = i

		qualities[i].RecordID = newID
		qualities[i].FieldErrors["duplicate"] = models.FieldQuality{
			IsValid:       false,
			Description:   fmt.Sprintf("Duplicate id found (original at index %d)", existingIndex),
			OriginalValue: id,
		}
		qualities[i].ErrorCount++
		qualities[i].IsValid = false

		t.logger.WithFields(logrus.Fields{
			"id":     id,
			"new_id": newID,
		}).Warn("Duplicate lead id renamed")
	}
}

// Generate Quality Report
func (t *Transformer) GenerateQualityReport(records []models.RecordQuality) models.DataQualityReport {
	valid := 0
	for _, record := range records {
		if record.IsValid {
			valid++
		}
	}

	score := 0.0
	if len(records) > 0 {
		score = float64(valid) / float64(len(records)) * 100
	}

	if records == nil {
		records = []models.RecordQuality{}
	}

	return models.DataQualityReport{
		Summary: models.QualitySummary{
			TotalRecords: len(records),
			ValidRecords: valid,
			QualityScore: score,
			CommonIssues: t.identifyCommonIssues(records),
		},
		Records:   records,
		Timestamp: t.now().Format(time.RFC3339),
	}
}

func (t *Transformer) identifyCommonIssues(records []models.RecordQuality) []string {
	issueCount := make(map[string]int)

	for _, record := range records {
		for _, fieldError := range record.FieldErrors {
			if !fieldError.IsValid {
				issueCount[fieldError.Description]++
			}
		}
	}

	commonIssues := []string{}
	for issue, count := range issueCount {
		if count > 1 { // Only include issues that appear more than once
			commonIssues = append(commonIssues, fmt.Sprintf("%s (occurs %d times)", issue, count))
		}
	}
	sort.Strings(commonIssues)

	return commonIssues
}
