package transformer

import (
	"math"
	"strconv"

	"github.com/Makoshaa/kia/internal/models"
)

// Scheme selects the quality taxonomy.
type Scheme string

const (
	// ThreeLevel folds "good" tokens into high.
	ThreeLevel Scheme = "three"
	// FourLevel keeps good as its own level between medium and high.
	FourLevel Scheme = "four"
)

// ParseScheme maps a config string to a Scheme; unknown values mean ThreeLevel.
func ParseScheme(s string) Scheme {
	if Scheme(s) == FourLevel {
		return FourLevel
	}
	return ThreeLevel
}

// Synonyms lists, for one level, every lower-case token that means it.
type Synonyms struct {
	Level  models.QualityLevel
	Tokens []string
}

// DefaultSynonyms returns the built-in synonym sets in match order. The sets
// are disjoint.
func DefaultSynonyms() []Synonyms {
	return []Synonyms{
		{Level: models.QualityHigh, Tokens: []string{
			"высокий", "high", "отличный", "excellent", "высокое", "высокого", "высокая",
			"высокое качество", "high quality",
		}},
		{Level: models.QualityGood, Tokens: []string{
			"хороший", "good", "хорошее", "хорошего", "хорошая",
			"хорошее качество", "good quality",
		}},
		{Level: models.QualityMedium, Tokens: []string{
			"средний", "medium", "average", "нормальный", "среднее", "среднего", "средняя",
			"среднее качество", "medium quality",
		}},
		{Level: models.QualityLow, Tokens: []string{
			"низкий", "low", "bad", "плохой", "низкое", "низкого", "низкая",
			"низкое качество", "low quality",
		}},
	}
}

// Score thresholds for numeric 0..100 quality values.
const (
	HighScoreThreshold   = 70
	MediumScoreThreshold = 40
)

// QualityNormalizer maps raw quality tokens onto the canonical levels.
type QualityNormalizer struct {
	scheme Scheme
	lookup map[string]models.QualityLevel
}

func NewQualityNormalizer(scheme Scheme, synonyms []Synonyms) *QualityNormalizer {
	if synonyms == nil {
		synonyms = DefaultSynonyms()
	}
	lookup := make(map[string]models.QualityLevel)
	for _, set := range synonyms {
		level := set.Level
		if level == models.QualityGood && scheme != FourLevel {
			level = models.QualityHigh
		}
		for _, token := range set.Tokens {
			key := foldToken(token)
			// earlier sets win if a token was listed twice
			if _, dup := lookup[key]; !dup {
				lookup[key] = level
			}
		}
	}
	return &QualityNormalizer{scheme: scheme, lookup: lookup}
}

func (q *QualityNormalizer) Scheme() Scheme {
	return q.scheme
}

// NormalizeQuality returns the level for a raw token, medium when unrecognized.
func (q *QualityNormalizer) NormalizeQuality(raw string) models.QualityLevel {
	level, _ := q.Match(models.String(raw))
	return level
}

// Match reports the level for a raw value and whether it was recognized.
// Numbers and numeric strings in 0..100 are treated as scores.
func (q *QualityNormalizer) Match(raw models.Value) (models.QualityLevel, bool) {
	if raw.IsNumber() {
		return q.score(raw.Num)
	}
	token := foldToken(raw.String())
	if token == "" {
		return models.QualityMedium, false
	}
	if level, ok := q.lookup[token]; ok {
		return level, true
	}
	if n, err := strconv.ParseFloat(token, 64); err == nil {
		return q.score(n)
	}
	return models.QualityMedium, false
}

func (q *QualityNormalizer) score(n float64) (models.QualityLevel, bool) {
	switch {
	case math.IsNaN(n) || n < 0 || n > 100:
		return models.QualityMedium, false
	case n >= HighScoreThreshold:
		return models.QualityHigh, true
	case n >= MediumScoreThreshold:
		return models.QualityMedium, true
	default:
		return models.QualityLow, true
	}
}
