package testcohort

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"
	"github.com/okian/riskprofiler/internal/domain/model"
)

// namespace scopes the name-based subject ids.
var namespace = uuid.MustParse("6f1c3a0e-8c57-4f1e-9d0b-2a4c5e7f9b13")

// Rating scale bounds.
const (
	minRating = 1
	maxRating = 10
	midRating = 5.5
)

// Catalog ranges.
const (
	minRisk        = 0.2
	riskSpan       = 8.0
	minReturn      = -0.02
	returnSpan     = 0.14
	riskToleranceK = 2.5
)

// DefaultGenerateConfig returns a small but non-trivial configuration.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Cohorts:   1,
		Subjects:  50,
		Questions: 8,
		Seed:      1,
		EmptyRate: 0.05,
		Noise:     0.8,
	}
}

// Generate builds cfg.Cohorts synthetic cohorts. Each subject has a latent
// risk aversion drawn from [-1, 1]; ratings fall with a strategy's risk for
// averse subjects and rise for risk seekers. Answer values are stored in
// the mixed encodings real response stores produce.
func Generate(cfg GenerateConfig) []*model.Cohort {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	out := make([]*model.Cohort, 0, max(cfg.Cohorts, 0))
	for c := range max(cfg.Cohorts, 0) {
		out = append(out, generateCohort(rng, cfg, c))
	}
	return out
}

func generateCohort(rng *rand.Rand, cfg GenerateConfig, index int) *model.Cohort {
	id := "cohort-" + strconv.Itoa(index+1)
	cohort := &model.Cohort{
		ID:       id,
		Name:     fmt.Sprintf("Synthetic cohort %d (seed %d)", index+1, cfg.Seed),
		Subjects: make([]model.Subject, 0, max(cfg.Subjects, 0)),
		Catalog:  make(model.Catalog, max(cfg.Questions, 0)),
	}

	qids := make([]string, max(cfg.Questions, 0))
	var riskSum float64
	for q := range qids {
		qids[q] = fmt.Sprintf("q%02d", q+1)
		risk := round(minRisk+rng.Float64()*riskSpan, 2)
		riskSum += risk
		cohort.Catalog[qids[q]] = model.ReferenceMetric{
			ExpectedReturn: round(minReturn+rng.Float64()*returnSpan, 4),
			RiskMeasure:    risk,
			DisplayName:    "Strategy " + strconv.Itoa(q+1),
		}
	}
	meanRisk := 0.0
	if len(qids) > 0 {
		meanRisk = riskSum / float64(len(qids))
	}

	for s := range max(cfg.Subjects, 0) {
		name := fmt.Sprintf("%s/%d/%d", id, cfg.Seed, s)
		subj := model.Subject{
			ID:          uuid.NewSHA1(namespace, []byte(name)).String(),
			DisplayName: "Subject " + strconv.Itoa(s+1),
			Email:       fmt.Sprintf("subject%d@%s.example.com", s+1, id),
		}
		if rng.Float64() < cfg.EmptyRate {
			// Unanswered or unusable entries only.
			subj.Answers = []model.Answer{{QuestionID: "intro", Value: "ok"}}
			if len(qids) > 0 {
				subj.Answers = append(subj.Answers, model.Answer{QuestionID: qids[0], Value: 0})
			}
			cohort.Subjects = append(cohort.Subjects, subj)
			continue
		}

		aversion := rng.Float64()*2 - 1
		for q, qid := range qids {
			risk := cohort.Catalog[qid].RiskMeasure
			centred := (risk - meanRisk) / riskSpan
			rating := midRating - riskToleranceK*aversion*centred*maxRating/2 + rng.NormFloat64()*cfg.Noise
			r := int(math.Round(math.Min(maxRating, math.Max(minRating, rating))))
			subj.Answers = append(subj.Answers, model.Answer{QuestionID: qid, Value: encode(q, r)})
		}
		cohort.Subjects = append(cohort.Subjects, subj)
	}
	return cohort
}

// encode cycles through the answer encodings the extractor accepts.
func encode(q, rating int) any {
	switch q % 3 {
	case 1:
		return strconv.Itoa(rating)
	case 2:
		return []any{rating}
	default:
		return rating
	}
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
