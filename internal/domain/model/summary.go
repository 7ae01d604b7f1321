package model

import (
	"github.com/okian/riskprofiler/internal/domain/classify"
	"github.com/okian/riskprofiler/internal/domain/stats"
)

// Range is a closed interval of coefficients.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Summary aggregates the profiles of one cohort.
type Summary struct {
	CohortID           string                    `json:"cohort_id"`
	Scheme             classify.Scheme           `json:"scheme"`
	TotalSubjects      int                       `json:"total_subjects"`
	SkippedSubjects    int                       `json:"skipped_subjects"`
	Distribution       map[classify.Category]int `json:"distribution"`
	AverageCoefficient float64                   `json:"average_coefficient"`
	CoefficientRange   Range                     `json:"coefficient_range"`
	Spread             stats.Description         `json:"spread"`
	Profiles           []Profile                 `json:"profiles"`
}

// ChartPoint is one scatter point of the chart projection.
type ChartPoint struct {
	SubjectID string            `json:"subject_id"`
	X         float64           `json:"x"`
	Y         float64           `json:"y"`
	Category  classify.Category `json:"category"`
}

// CategoryCount is one bar of the distribution chart.
type CategoryCount struct {
	Category classify.Category `json:"category"`
	Count    int               `json:"count"`
}

// Chart is a plotting-ready projection of a Summary.
type Chart struct {
	CohortID string          `json:"cohort_id"`
	Scheme   classify.Scheme `json:"scheme"`
	Points   []ChartPoint    `json:"points"`
	Counts   []CategoryCount `json:"counts"`
}

// Row is one line of the flat tabular export.
type Row struct {
	SubjectID   string            `json:"subject_id"`
	DisplayName string            `json:"display_name"`
	Coefficient float64           `json:"risk_aversion_coefficient"`
	RSquared    float64           `json:"r_squared"`
	Category    classify.Category `json:"risk_category"`
}
