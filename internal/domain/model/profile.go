package model

import (
	"github.com/okian/riskprofiler/internal/domain/classify"
	"github.com/okian/riskprofiler/internal/domain/regression"
)

// Observation is one joined (rating, reference metric) data point.
type Observation struct {
	QuestionID     string  `json:"question_id"`
	ExpectedReturn float64 `json:"expected_return"`
	RiskMeasure    float64 `json:"risk_measure"`
	Rating         float64 `json:"rating"`
}

// FitDetails carries the raw regression output behind a coefficient.
// Exactly one of Simple and Multi is set for a subject with observations.
type FitDetails struct {
	Simple       *regression.Simple       `json:"simple,omitempty"`
	Multi        *regression.Multi        `json:"multi,omitempty"`
	Significance *regression.Significance `json:"significance,omitempty"`
}

// Profile is the analysis result for one subject.
type Profile struct {
	SubjectID         string            `json:"subject_id"`
	DisplayName       string            `json:"display_name"`
	Email             string            `json:"email"`
	Scheme            classify.Scheme   `json:"scheme"`
	Observations      []Observation     `json:"observations"`
	NormalizedRatings []float64         `json:"normalized_ratings"`
	Coefficient       float64           `json:"risk_aversion_coefficient"`
	Category          classify.Category `json:"risk_category"`
	RSquared          float64           `json:"r_squared"`
	MeanRating        float64           `json:"mean_rating"`
	StdDevRating      float64           `json:"std_dev_rating"`
	Fit               FitDetails        `json:"fit"`
}

// Qualified reports whether the profile is backed by at least one observation.
func (p *Profile) Qualified() bool { return len(p.Observations) > 0 }
