// Package cohort runs the profiler over every subject of a cohort and
// summarises the results.
package cohort

import (
	"slices"

	"github.com/okian/riskprofiler/internal/domain/classify"
	"github.com/okian/riskprofiler/internal/domain/model"
	"github.com/okian/riskprofiler/internal/domain/profiler"
	"github.com/okian/riskprofiler/internal/domain/stats"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithScheme selects the classification scheme.
func WithScheme(s classify.Scheme) Option {
	return func(a *Aggregator) {
		if s.Valid() {
			a.scheme = s
		}
	}
}

// WithPlaceholders controls what happens to subjects without a single usable
// rating. When true they are kept as neutral zero-coefficient profiles;
// otherwise (the default) they are left out and counted as skipped.
func WithPlaceholders(include bool) Option {
	return func(a *Aggregator) {
		a.placeholders = include
	}
}

// Aggregator builds cohort summaries. It is stateless after construction.
type Aggregator struct {
	scheme       classify.Scheme
	placeholders bool
	profiler     *profiler.Profiler
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{scheme: classify.FourCategory}
	for _, opt := range opts {
		opt(a)
	}
	a.profiler = profiler.New(profiler.WithScheme(a.scheme))
	return a
}

// Scheme returns the aggregator's classification scheme.
func (a *Aggregator) Scheme() classify.Scheme { return a.scheme }

// Placeholders reports whether subjects without data are kept.
func (a *Aggregator) Placeholders() bool { return a.placeholders }

// Analyze profiles every subject of c. A nil or empty cohort yields a
// zero summary. One bad subject never fails the batch.
func (a *Aggregator) Analyze(c *model.Cohort) model.Summary {
	sum := model.Summary{
		Scheme:       a.scheme,
		Distribution: make(map[classify.Category]int, len(a.scheme.Categories())),
		Profiles:     []model.Profile{},
	}
	for _, cat := range a.scheme.Categories() {
		sum.Distribution[cat] = 0
	}
	if c == nil {
		return sum
	}
	sum.CohortID = c.ID

	for _, s := range c.Subjects {
		p := a.profiler.Profile(s, c.Catalog)
		if !p.Qualified() && !a.placeholders {
			sum.SkippedSubjects++
			continue
		}
		sum.Profiles = append(sum.Profiles, p)
	}
	if len(sum.Profiles) == 0 {
		return sum
	}

	// SortStableFunc keeps input order among equal coefficients.
	slices.SortStableFunc(sum.Profiles, func(x, y model.Profile) int {
		switch {
		case x.Coefficient > y.Coefficient:
			return -1
		case x.Coefficient < y.Coefficient:
			return 1
		default:
			return 0
		}
	})

	coefs := make([]float64, len(sum.Profiles))
	for i, p := range sum.Profiles {
		coefs[i] = p.Coefficient
		sum.Distribution[p.Category]++
	}
	sum.TotalSubjects = len(sum.Profiles)
	sum.AverageCoefficient = stats.Mean(coefs)
	sum.Spread = stats.Describe(coefs)
	sum.CoefficientRange = model.Range{Min: sum.Spread.Min, Max: sum.Spread.Max}
	return sum
}

// Chart projects a summary into scatter points and per-category counts.
// Counts follow the scheme's category order.
func Chart(sum model.Summary) model.Chart {
	ch := model.Chart{
		CohortID: sum.CohortID,
		Scheme:   sum.Scheme,
		Points:   make([]model.ChartPoint, 0, len(sum.Profiles)),
	}
	for _, p := range sum.Profiles {
		ch.Points = append(ch.Points, model.ChartPoint{
			SubjectID: p.SubjectID,
			X:         p.Coefficient,
			Y:         stats.Mean(p.NormalizedRatings),
			Category:  p.Category,
		})
	}
	cats := sum.Scheme.Categories()
	ch.Counts = make([]model.CategoryCount, 0, len(cats))
	for _, cat := range cats {
		ch.Counts = append(ch.Counts, model.CategoryCount{Category: cat, Count: sum.Distribution[cat]})
	}
	return ch
}

// Table flattens a summary into report rows, in profile order.
func Table(sum model.Summary) []model.Row {
	rows := make([]model.Row, 0, len(sum.Profiles))
	for _, p := range sum.Profiles {
		rows = append(rows, model.Row{
			SubjectID:   p.SubjectID,
			DisplayName: p.DisplayName,
			Coefficient: p.Coefficient,
			RSquared:    p.RSquared,
			Category:    p.Category,
		})
	}
	return rows
}
