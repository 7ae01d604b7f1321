package cohort_test

import (
	"testing"

	"github.com/okian/riskprofiler/internal/domain/classify"
	"github.com/okian/riskprofiler/internal/domain/cohort"
	"github.com/okian/riskprofiler/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rated(id string, pairs ...any) model.Subject {
	s := model.Subject{ID: id, DisplayName: "Subject " + id}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Answers = append(s.Answers, model.Answer{QuestionID: pairs[i].(string), Value: pairs[i+1]})
	}
	return s
}

func mixedCohort() *model.Cohort {
	return &model.Cohort{
		ID: "mixed",
		Subjects: []model.Subject{
			rated("empty", "q1", 0, "q2", "skip"),
			rated("rev", "q1", 2, "q2", 5, "q3", 9),
			rated("flatA", "q1", 5, "q2", 5, "q3", 5),
			rated("s1", "q1", 9, "q2", 6, "q3", 2),
			rated("hi", "q4", 9, "q5", 1),
			rated("flatB", "q4", 3, "q5", 3),
		},
		Catalog: model.Catalog{
			"q1": {ExpectedReturn: 0.10, RiskMeasure: 0.42},
			"q2": {ExpectedReturn: 0.02, RiskMeasure: 2.15},
			"q3": {ExpectedReturn: 0.09, RiskMeasure: 6.78},
			"q4": {ExpectedReturn: 0.04, RiskMeasure: 1},
			"q5": {ExpectedReturn: 0.07, RiskMeasure: 2},
		},
	}
}

func ids(ps []model.Profile) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.SubjectID
	}
	return out
}

func TestAnalyzeEmpty(t *testing.T) {
	Convey("Given an aggregator", t, func() {
		Convey("When the cohort has no subjects", func() {
			sum := cohort.New().Analyze(&model.Cohort{ID: "none"})

			Convey("Then a zero summary is returned", func() {
				So(sum.CohortID, ShouldEqual, "none")
				So(sum.TotalSubjects, ShouldEqual, 0)
				So(sum.AverageCoefficient, ShouldEqual, 0)
				So(sum.CoefficientRange, ShouldResemble, model.Range{})
				So(sum.Profiles, ShouldNotBeNil)
				So(sum.Profiles, ShouldBeEmpty)
			})

			Convey("And every category is present with a zero count", func() {
				So(len(sum.Distribution), ShouldEqual, 4)
				for _, cat := range classify.FourCategory.Categories() {
					So(sum.Distribution, ShouldContainKey, cat)
					So(sum.Distribution[cat], ShouldEqual, 0)
				}
			})
		})

		Convey("When the cohort is nil", func() {
			sum := cohort.New(cohort.WithScheme(classify.FiveCategory)).Analyze(nil)

			Convey("Then the five-category distribution is zeroed", func() {
				So(len(sum.Distribution), ShouldEqual, 5)
				So(sum.Distribution[classify.RiskNeutral], ShouldEqual, 0)
				So(sum.Scheme, ShouldEqual, classify.FiveCategory)
			})
		})
	})
}

func TestAnalyzeSkip(t *testing.T) {
	Convey("Given the default aggregator and a mixed cohort", t, func() {
		agg := cohort.New()
		So(agg.Placeholders(), ShouldBeFalse)
		sum := agg.Analyze(mixedCohort())

		Convey("When subjects without data are encountered", func() {
			Convey("Then they are skipped and counted", func() {
				So(sum.SkippedSubjects, ShouldEqual, 1)
				So(sum.TotalSubjects, ShouldEqual, 5)
			})
		})

		Convey("When profiles are ordered", func() {
			Convey("Then they are descending by coefficient and ties keep input order", func() {
				So(ids(sum.Profiles), ShouldResemble, []string{"hi", "s1", "flatA", "flatB", "rev"})
			})
		})

		Convey("When the distribution is computed", func() {
			Convey("Then every profile lands in one bucket", func() {
				So(sum.Distribution[classify.VeryAggressive], ShouldEqual, 1)
				So(sum.Distribution[classify.Aggressive], ShouldEqual, 1)
				So(sum.Distribution[classify.Moderate], ShouldEqual, 2)
				So(sum.Distribution[classify.Conservative], ShouldEqual, 1)
			})
		})

		Convey("When coefficients are summarised", func() {
			Convey("Then average, range and spread agree", func() {
				So(sum.AverageCoefficient, ShouldAlmostEqual, 0.4, 1e-9)
				So(sum.CoefficientRange.Max, ShouldAlmostEqual, 2, 1e-12)
				So(sum.CoefficientRange.Min, ShouldAlmostEqual, -0.36675322482132033, 1e-9)
				So(sum.Spread.Median, ShouldEqual, 0)
				So(sum.Spread.P75, ShouldAlmostEqual, 0.36675322482132033, 1e-12)
				So(sum.Spread.Min, ShouldEqual, sum.CoefficientRange.Min)
			})
		})
	})
}

func TestAnalyzePlaceholders(t *testing.T) {
	Convey("Given an aggregator that keeps placeholders", t, func() {
		agg := cohort.New(cohort.WithPlaceholders(true))
		sum := agg.Analyze(mixedCohort())

		Convey("When the cohort is analysed", func() {
			Convey("Then the empty subject appears as a neutral profile", func() {
				So(sum.SkippedSubjects, ShouldEqual, 0)
				So(sum.TotalSubjects, ShouldEqual, 6)
				So(ids(sum.Profiles), ShouldResemble, []string{"hi", "s1", "empty", "flatA", "flatB", "rev"})
				So(sum.Profiles[2].Coefficient, ShouldEqual, 0)
				So(sum.Profiles[2].Category, ShouldEqual, classify.Moderate)
				So(sum.Distribution[classify.Moderate], ShouldEqual, 3)
			})
		})
	})
}

func TestChartAndTable(t *testing.T) {
	Convey("Given a summary", t, func() {
		sum := cohort.New().Analyze(mixedCohort())

		Convey("When it is projected for charting", func() {
			ch := cohort.Chart(sum)

			Convey("Then there is one point per profile", func() {
				So(len(ch.Points), ShouldEqual, len(sum.Profiles))
				So(ch.Points[0].SubjectID, ShouldEqual, "hi")
				So(ch.Points[0].X, ShouldAlmostEqual, 2, 1e-12)
				So(ch.Points[0].Y, ShouldAlmostEqual, 0, 1e-12)
				So(ch.Points[0].Category, ShouldEqual, classify.VeryAggressive)
			})

			Convey("And counts follow the scheme order", func() {
				So(len(ch.Counts), ShouldEqual, 4)
				So(ch.Counts[0], ShouldResemble, model.CategoryCount{Category: classify.VeryAggressive, Count: 1})
				So(ch.Counts[2], ShouldResemble, model.CategoryCount{Category: classify.Moderate, Count: 2})
				So(ch.Counts[3].Category, ShouldEqual, classify.Conservative)
			})
		})

		Convey("When it is flattened into rows", func() {
			rows := cohort.Table(sum)

			Convey("Then rows mirror the profiles", func() {
				So(len(rows), ShouldEqual, 5)
				So(rows[1].SubjectID, ShouldEqual, "s1")
				So(rows[1].DisplayName, ShouldEqual, "Subject s1")
				So(rows[1].Category, ShouldEqual, classify.Aggressive)
				So(rows[1].RSquared, ShouldAlmostEqual, 0.969643739831966, 1e-12)
			})
		})

		Convey("When the summary is empty", func() {
			empty := cohort.New().Analyze(nil)

			Convey("Then the chart still lists every category", func() {
				ch := cohort.Chart(empty)
				So(ch.Points, ShouldBeEmpty)
				So(len(ch.Counts), ShouldEqual, 4)
				So(cohort.Table(empty), ShouldBeEmpty)
			})
		})
	})
}
