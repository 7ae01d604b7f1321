// Package profiler turns one subject's ratings into a risk-aversion profile.
//
// The pipeline is: join answers to reference metrics, z-score the ratings,
// regress them on risk (simple mode) or on expected return and risk
// (multivariate mode), derive a coefficient and classify it. It holds no
// state and never logs, so a Profiler is safe for concurrent use.
package profiler

import (
	"fmt"
	"math"

	"github.com/okian/riskprofiler/internal/domain/classify"
	"github.com/okian/riskprofiler/internal/domain/model"
	"github.com/okian/riskprofiler/internal/domain/regression"
	"github.com/okian/riskprofiler/internal/domain/stats"
)

// utilityTradeoff scales β₁/β₂ in the mean-variance coefficient -2·β₁/β₂.
const utilityTradeoff = -2

// Option applies a configuration option to the Profiler.
type Option func(*Profiler)

// WithScheme selects the classification scheme, and with it the regression mode.
func WithScheme(s classify.Scheme) Option {
	return func(p *Profiler) {
		if s.Valid() {
			p.scheme = s
		}
	}
}

// Profiler builds subject profiles for one classification scheme.
type Profiler struct {
	scheme classify.Scheme
}

// New creates a Profiler. The four-category scheme is the default.
func New(opts ...Option) *Profiler {
	p := &Profiler{scheme: classify.FourCategory}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scheme returns the profiler's classification scheme.
func (p *Profiler) Scheme() classify.Scheme { return p.scheme }

// Profile builds the profile of subject. A subject without observations
// gets the neutral profile: empty slices, coefficient 0 and the scheme's
// neutral category.
func (p *Profiler) Profile(subject model.Subject, catalog model.Catalog) model.Profile {
	obs := Extract(subject, catalog)
	prof := model.Profile{
		SubjectID:         subject.ID,
		DisplayName:       subject.DisplayName,
		Email:             subject.Email,
		Scheme:            p.scheme,
		Observations:      obs,
		NormalizedRatings: []float64{},
		Category:          p.scheme.Neutral(),
	}
	if len(obs) == 0 {
		return prof
	}

	ratings := make([]float64, len(obs))
	for i, o := range obs {
		ratings[i] = o.Rating
	}
	z := stats.ZScores(ratings)
	prof.NormalizedRatings = z
	prof.MeanRating = finiteOrZero(stats.Mean(ratings))
	prof.StdDevRating = finiteOrZero(stats.StdDev(ratings))

	if p.scheme.Multivariate() {
		samples := make([]regression.Sample, len(obs))
		for i, o := range obs {
			samples[i] = regression.Sample{X1: o.ExpectedReturn, X2: o.RiskMeasure, Y: z[i]}
		}
		fit := regression.FitMultivariate(samples)
		prof.Coefficient = MultivariateCoefficient(fit)
		prof.RSquared = fit.RSquared
		prof.Fit.Multi = &fit
	} else {
		points := make([]regression.Point, len(obs))
		for i, o := range obs {
			points[i] = regression.Point{X: o.RiskMeasure, Y: z[i]}
		}
		fit := regression.FitSimple(points)
		sig := regression.SlopeSignificance(points, fit)
		prof.Coefficient = SimpleCoefficient(fit)
		prof.RSquared = fit.RSquared
		prof.Fit.Simple = &fit
		prof.Fit.Significance = &sig
	}
	prof.Category = p.scheme.Classify(prof.Coefficient)
	return prof
}

// Analyze profiles one subject of a cohort. Unlike batch aggregation it
// fails when the subject is unknown or has nothing to regress on.
func (p *Profiler) Analyze(c *model.Cohort, subjectID string) (model.Profile, error) {
	subject, ok := c.Subject(subjectID)
	if !ok {
		return model.Profile{}, fmt.Errorf("subject %q in cohort %q: %w", subjectID, c.ID, ErrSubjectNotFound)
	}
	prof := p.Profile(subject, c.Catalog)
	if !prof.Qualified() {
		return model.Profile{}, fmt.Errorf("subject %q in cohort %q: %w", subjectID, c.ID, ErrNoQualifyingData)
	}
	return prof, nil
}

// SimpleCoefficient derives the coefficient from a risk→rating line.
// A subject whose ratings fall as risk rises has a negative slope and so a
// positive coefficient.
func SimpleCoefficient(fit regression.Simple) float64 {
	return positiveZero(-fit.Slope)
}

// MultivariateCoefficient derives -2·β₁/β₂ from a two-feature fit, or 0
// when β₂ is 0.
func MultivariateCoefficient(fit regression.Multi) float64 {
	if fit.Beta2 == 0 {
		return 0
	}
	c := utilityTradeoff * fit.Beta1 / fit.Beta2
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0
	}
	return positiveZero(c)
}

// positiveZero maps -0 to 0 so exports never print "-0".
func positiveZero(x float64) float64 {
	if x == 0 {
		return 0
	}
	return x
}

func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
