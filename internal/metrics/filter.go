package metrics

import (
	"strings"
	"time"

	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/transformer"
)

// LeadFilter narrows a lead list for the table view. Zero fields match everything.
type LeadFilter struct {
	Search  string
	Quality models.QualityLevel
	From    time.Time
	To      time.Time
}

// Filter keeps leads whose name or phone contains Search (case-insensitive),
// whose quality equals Quality and whose day lies within [From, To].
// Leads with an unparseable day never match a date range.
func Filter(leads []models.Lead, f LeadFilter) []models.Lead {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	from := truncateDay(f.From)
	to := truncateDay(f.To)

	out := make([]models.Lead, 0, len(leads))
	for _, lead := range leads {
		if search != "" &&
			!strings.Contains(strings.ToLower(lead.Name), search) &&
			!strings.Contains(strings.ToLower(lead.Phone), search) {
			continue
		}
		if f.Quality != "" && lead.Quality != f.Quality {
			continue
		}
		if !from.IsZero() || !to.IsZero() {
			day, err := time.Parse(transformer.DayLayout, lead.Day)
			if err != nil {
				continue
			}
			if !from.IsZero() && day.Before(from) {
				continue
			}
			if !to.IsZero() && day.After(to) {
				continue
			}
		}
		out = append(out, lead)
	}
	return out
}

// MaxPageLimit caps the page size accepted by Paginate.
const MaxPageLimit = 1000

// Paginate returns page (1-based) of at most limit leads. Limit defaults to 50
// and is capped at MaxPageLimit.
func Paginate(leads []models.Lead, page, limit int) models.MetricsResponse {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	// compare before multiplying so huge pages cannot overflow
	start := len(leads)
	if page-1 <= len(leads)/limit {
		start = min((page-1)*limit, len(leads))
	}
	end := min(start+limit, len(leads))

	return models.MetricsResponse{
		Data:    leads[start:end],
		Total:   len(leads),
		Page:    page,
		Limit:   limit,
		HasMore: end < len(leads),
	}
}

// truncateDay drops the clock and zone so ranges compare on calendar days.
func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
