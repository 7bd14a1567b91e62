package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/transformer"
)

// TopBreakdown caps the category and source charts.
const TopBreakdown = 10

// Calculator derives dashboard summaries from canonical leads. It holds no
// state between calls.
type Calculator struct {
	scheme transformer.Scheme
	loc    *time.Location
	now    func() time.Time
}

type Option func(*Calculator)

// WithScheme makes good leads count towards conversion under the four-level scheme.
func WithScheme(scheme transformer.Scheme) Option {
	return func(c *Calculator) { c.scheme = scheme }
}

func WithLocation(loc *time.Location) Option {
	return func(c *Calculator) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithClock replaces time.Now when anchoring the daily series on today.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		scheme: transformer.ThreeLevel,
		loc:    time.Local,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Aggregate computes the full dashboard summary for leads over window.
func (c *Calculator) Aggregate(leads []models.Lead, window models.Window) models.DashboardSummary {
	window = models.ParseWindow(string(window))
	total := len(leads)

	counts := c.countQualities(leads)
	converted := counts.High
	if c.scheme == transformer.FourLevel {
		converted += counts.Good
	}

	summary := models.DashboardSummary{
		TotalLeads:              total,
		Counts:                  counts,
		Conversion:              percent(converted, total),
		HighPotentialConversion: percent(counts.High, total),
		LastLead:                models.NoData,
		BestDay:                 models.NoData,
		Categories:              Breakdown(leads, func(l models.Lead) string { return l.Category }, models.Uncategorized),
		Sources:                 Breakdown(leads, func(l models.Lead) string { return l.Source }, models.SourceNotSpecified),
		Window:                  window,
		Series:                  c.Series(leads, window),
	}

	if latest := LatestLead(leads); latest != nil {
		summary.LatestLead = latest
		summary.LastLead = latest.CreatedAt
	}

	days := groupByDay(leads)
	if best, ok := days.best(); ok {
		summary.BestDay = best.day
		summary.MaxLeadsInOneDay = best.count
	}
	summary.AvgLeadsPerDay = int(math.Round(safeDivide(float64(total), float64(max(1, len(days.order))))))

	return summary
}

func (c *Calculator) countQualities(leads []models.Lead) models.QualityCounts {
	var counts models.QualityCounts
	for _, lead := range leads {
		switch lead.Quality {
		case models.QualityHigh:
			counts.High++
		case models.QualityGood:
			counts.Good++
		case models.QualityLow:
			counts.Low++
		default:
			counts.Medium++
		}
	}
	return counts
}

// Series returns one entry per calendar day in [today-(n-1), today], oldest
// first, with zero entries for days without leads.
func (c *Calculator) Series(leads []models.Lead, window models.Window) []models.DayStats {
	n := window.Days()
	now := c.now().In(c.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	start := today.AddDate(0, 0, -(n - 1))

	series := make([]models.DayStats, n)
	index := make(map[string]int, n)
	for i := range series {
		day := start.AddDate(0, 0, i).Format(transformer.DayLayout)
		series[i].Date = day
		index[day] = i
	}

	for _, lead := range leads {
		i, ok := index[lead.Day]
		if !ok {
			continue
		}
		entry := &series[i]
		entry.Count++
		switch lead.Quality {
		case models.QualityHigh:
			entry.High++
		case models.QualityGood:
			entry.Good++
		case models.QualityLow:
			entry.Low++
		default:
			entry.Medium++
		}
	}
	return series
}

// LatestLead returns the lead with the greatest parsed timestamp; the first
// one wins on ties. When no timestamp parsed, the first lead is returned.
func LatestLead(leads []models.Lead) *models.Lead {
	if len(leads) == 0 {
		return nil
	}
	latest := 0
	for i := 1; i < len(leads); i++ {
		if leads[i].Timestamp.After(leads[latest].Timestamp) {
			latest = i
		}
	}
	lead := leads[latest]
	return &lead
}

// Breakdown counts leads per key, sorted by count descending with encounter
// order kept on ties, truncated to TopBreakdown. Blank keys count under placeholder.
func Breakdown(leads []models.Lead, key func(models.Lead) string, placeholder string) []models.BreakdownItem {
	items := []models.BreakdownItem{}
	position := make(map[string]int)

	for _, lead := range leads {
		name := key(lead)
		if name == "" {
			name = placeholder
		}
		if i, ok := position[name]; ok {
			items[i].Count++
			continue
		}
		position[name] = len(items)
		items = append(items, models.BreakdownItem{Name: name, Count: 1})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Count > items[j].Count
	})
	if len(items) > TopBreakdown {
		items = items[:TopBreakdown]
	}
	return items
}

type dayCount struct {
	day   string
	count int
}

type dayBuckets struct {
	order  []string
	counts map[string]int
}

// groupByDay buckets leads by their date-only rendering. Leads without a
// date are left out.
func groupByDay(leads []models.Lead) dayBuckets {
	buckets := dayBuckets{counts: make(map[string]int)}
	for _, lead := range leads {
		if lead.Day == "" || lead.Day == models.DateNotSpecified {
			continue
		}
		if _, seen := buckets.counts[lead.Day]; !seen {
			buckets.order = append(buckets.order, lead.Day)
		}
		buckets.counts[lead.Day]++
	}
	return buckets
}

// best picks the busiest day; the first-encountered day wins ties.
func (b dayBuckets) best() (dayCount, bool) {
	var best dayCount
	for _, day := range b.order {
		if b.counts[day] > best.count {
			best = dayCount{day: day, count: b.counts[day]}
		}
	}
	return best, best.count > 0
}

func percent(part, total int) int {
	return int(math.Round(safeDivide(float64(part), float64(total)) * 100))
}

func safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	result := numerator / denominator
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return result
}
