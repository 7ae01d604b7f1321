package profiler

import (
	"math"
	"strings"

	"github.com/okian/riskprofiler/internal/domain/model"
	"github.com/spf13/cast"
)

// Extract joins a subject's answers to the catalog. Answers to questions
// without reference metrics are ignored, as are ratings that are not
// numeric, not finite, or not strictly positive (0 means "not rated").
// Observations keep the order of the answers.
func Extract(subject model.Subject, catalog model.Catalog) []model.Observation {
	out := make([]model.Observation, 0, len(subject.Answers))
	for _, a := range subject.Answers {
		ref, ok := catalog[a.QuestionID]
		if !ok {
			continue
		}
		rating, ok := ParseRating(a.Value)
		if !ok {
			continue
		}
		out = append(out, model.Observation{
			QuestionID:     a.QuestionID,
			ExpectedReturn: ref.ExpectedReturn,
			RiskMeasure:    ref.RiskMeasure,
			Rating:         rating,
		})
	}
	return out
}

// ParseRating converts a raw answer value into a rating. Arrays contribute
// their first element. It reports false for anything that is not a finite
// number greater than zero.
func ParseRating(v any) (float64, bool) {
	switch arr := v.(type) {
	case []any:
		if len(arr) == 0 {
			return 0, false
		}
		v = arr[0]
	case []float64:
		if len(arr) == 0 {
			return 0, false
		}
		v = arr[0]
	case []string:
		if len(arr) == 0 {
			return 0, false
		}
		v = arr[0]
	}

	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		v = strings.TrimSpace(x)
	}

	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}
