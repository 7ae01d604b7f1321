// Package model contains the data contracts passed between layers: the
// cohort inputs supplied by the response store and the profiles and
// summaries produced by the analysis core.
package model

// Answer is one response to a questionnaire item. Value is whatever the
// store holds: a number, a numeric string, or an array whose first element
// is the rating.
type Answer struct {
	QuestionID string `json:"question_id" yaml:"question_id" validate:"required"`
	Value      any    `json:"value" yaml:"value"`
}

// Subject is a cohort member together with their answers.
type Subject struct {
	ID          string   `json:"id" yaml:"id" validate:"required"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Email       string   `json:"email" yaml:"email" validate:"omitempty,email"`
	Answers     []Answer `json:"answers" yaml:"answers" validate:"dive"`
}

// ReferenceMetric holds the performance metrics of the trading strategy a
// question asks the subject to rate.
type ReferenceMetric struct {
	ExpectedReturn float64  `json:"expected_return" yaml:"expected_return"`
	RiskMeasure    float64  `json:"risk_measure" yaml:"risk_measure" validate:"gte=0"`
	DisplayName    string   `json:"display_name" yaml:"display_name"`
	MaxDrawdown    *float64 `json:"max_drawdown,omitempty" yaml:"max_drawdown,omitempty"`
}

// Catalog maps question ids to reference metrics.
type Catalog map[string]ReferenceMetric

// Cohort is the unit of analysis: a set of subjects and the catalog their
// answers are joined against.
type Cohort struct {
	ID       string    `json:"id" yaml:"id" validate:"required"`
	Name     string    `json:"name" yaml:"name"`
	Subjects []Subject `json:"subjects" yaml:"subjects" validate:"unique=ID,dive"`
	Catalog  Catalog   `json:"catalog" yaml:"catalog" validate:"dive"`
}

// CohortInfo is the listing view of a stored cohort.
type CohortInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Subjects  int    `json:"subjects"`
	Questions int    `json:"questions"`
}

// Info returns the listing view of c.
func (c *Cohort) Info() CohortInfo {
	return CohortInfo{
		ID:        c.ID,
		Name:      c.Name,
		Subjects:  len(c.Subjects),
		Questions: len(c.Catalog),
	}
}

// Subject returns the subject with the given id.
func (c *Cohort) Subject(id string) (Subject, bool) {
	for _, s := range c.Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}
