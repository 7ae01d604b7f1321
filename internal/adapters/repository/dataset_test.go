package repository

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/riskprofiler/internal/domain/model"
)

const yamlDataset = `
cohorts:
  - id: pilot
    name: Pilot group
    subjects:
      - id: s1
        display_name: Subject One
        email: one@example.com
        answers:
          - question_id: q1
            value: 9
          - question_id: q2
            value: "6"
          - question_id: q3
            value: [2, 8]
    catalog:
      q1: {expected_return: 0.10, risk_measure: 0.42}
      q2: {expected_return: 0.02, risk_measure: 2.15, max_drawdown: 0.3}
      q3: {expected_return: 0.09, risk_measure: 6.78, display_name: Momentum}
`

func TestDecodeYAML(t *testing.T) {
	cohorts, err := Decode([]byte(yamlDataset), FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cohorts) != 1 {
		t.Fatalf("expected 1 cohort, got %d", len(cohorts))
	}
	c := cohorts[0]
	if c.ID != "pilot" || c.Name != "Pilot group" || len(c.Subjects) != 1 || len(c.Catalog) != 3 {
		t.Fatalf("unexpected cohort: %+v", c)
	}
	s := c.Subjects[0]
	if s.DisplayName != "Subject One" || len(s.Answers) != 3 {
		t.Fatalf("unexpected subject: %+v", s)
	}
	if v, ok := s.Answers[0].Value.(int); !ok || v != 9 {
		t.Errorf("expected int 9, got %#v", s.Answers[0].Value)
	}
	if v, ok := s.Answers[2].Value.([]any); !ok || len(v) != 2 {
		t.Errorf("expected array answer, got %#v", s.Answers[2].Value)
	}
	if dd := c.Catalog["q2"].MaxDrawdown; dd == nil || *dd != 0.3 {
		t.Errorf("expected max drawdown 0.3, got %v", dd)
	}
	if c.Catalog["q1"].MaxDrawdown != nil {
		t.Error("expected missing max drawdown to stay nil")
	}
	if c.Catalog["q3"].DisplayName != "Momentum" {
		t.Errorf("unexpected display name %q", c.Catalog["q3"].DisplayName)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	src, err := Decode([]byte(yamlDataset), FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dir := t.TempDir()

	for _, name := range []string{"cohorts.yaml", "cohorts.yml", "cohorts.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := SaveFile(path, src); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := LoadFile(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(got) != 1 || got[0].ID != "pilot" || len(got[0].Subjects[0].Answers) != 3 {
				t.Fatalf("unexpected cohorts: %+v", got)
			}
			if got[0].Catalog["q3"].RiskMeasure != 6.78 {
				t.Errorf("risk measure lost: %+v", got[0].Catalog["q3"])
			}
		})
	}
}

func TestDatasetErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "cohorts.csv")); !errors.Is(err, ErrDataset) {
		t.Errorf("expected ErrDataset for unsupported extension, got %v", err)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, ErrDataset) {
		t.Errorf("expected ErrDataset for missing file, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); !errors.Is(err, ErrDataset) {
		t.Errorf("expected ErrDataset for malformed file, got %v", err)
	}

	if err := SaveFile(filepath.Join(dir, "out.txt"), []*model.Cohort{}); !errors.Is(err, ErrDataset) {
		t.Errorf("expected ErrDataset for unsupported output, got %v", err)
	}
	if _, err := Decode(nil, "toml"); !errors.Is(err, ErrDataset) {
		t.Errorf("expected ErrDataset for unknown format, got %v", err)
	}
}
