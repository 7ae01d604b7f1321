package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/riskprofiler/internal/domain/model"
)

func sampleCohort(id string, subjects int) *model.Cohort {
	c := &model.Cohort{
		ID:   id,
		Name: "Cohort " + id,
		Catalog: model.Catalog{
			"q1": {ExpectedReturn: 0.1, RiskMeasure: 0.42},
			"q2": {ExpectedReturn: 0.02, RiskMeasure: 2.15},
		},
	}
	for i := 0; i < subjects; i++ {
		c.Subjects = append(c.Subjects, model.Subject{
			ID:      fmt.Sprintf("%s-s%d", id, i),
			Email:   fmt.Sprintf("s%d@example.com", i),
			Answers: []model.Answer{{QuestionID: "q1", Value: 5}},
		})
	}
	return c
}

func TestCohortStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewCohortStore()

	if n := store.Count(ctx); n != 0 {
		t.Fatalf("expected empty store, got %d", n)
	}

	if err := store.Put(ctx, sampleCohort("b", 2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Put(ctx, sampleCohort("a", 3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Subjects) != 3 {
		t.Errorf("expected 3 subjects, got %d", len(got.Subjects))
	}

	list := store.List(ctx)
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("expected cohorts ordered by id, got %+v", list)
	}
	if list[0].Subjects != 3 || list[0].Questions != 2 || list[0].Name != "Cohort a" {
		t.Errorf("unexpected info: %+v", list[0])
	}

	// Put replaces.
	if err := store.Put(ctx, sampleCohort("a", 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = store.Get(ctx, "a")
	if len(got.Subjects) != 1 {
		t.Errorf("expected replacement with 1 subject, got %d", len(got.Subjects))
	}
	if n := store.Count(ctx); n != 2 {
		t.Errorf("expected count 2, got %d", n)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, ErrCohortNotFound) {
		t.Errorf("expected ErrCohortNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "a"); !errors.Is(err, ErrCohortNotFound) {
		t.Errorf("expected ErrCohortNotFound on second delete, got %v", err)
	}
}

func TestCohortStore_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		cohort *model.Cohort
		opts   []CohortOption
	}{
		{name: "nil cohort", cohort: nil},
		{name: "missing id", cohort: sampleCohort("", 1)},
		{name: "too many subjects", cohort: sampleCohort("big", 5), opts: []CohortOption{WithMaxSubjects(4)}},
		{
			name: "duplicate subject ids",
			cohort: func() *model.Cohort {
				c := sampleCohort("dup", 2)
				c.Subjects[1].ID = c.Subjects[0].ID
				return c
			}(),
		},
		{
			name: "subject without id",
			cohort: func() *model.Cohort {
				c := sampleCohort("noid", 1)
				c.Subjects[0].ID = ""
				return c
			}(),
		},
		{
			name: "bad email",
			cohort: func() *model.Cohort {
				c := sampleCohort("mail", 1)
				c.Subjects[0].Email = "not-an-email"
				return c
			}(),
		},
		{
			name: "negative risk",
			cohort: func() *model.Cohort {
				c := sampleCohort("risk", 1)
				c.Catalog["q3"] = model.ReferenceMetric{RiskMeasure: -1}
				return c
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewCohortStore(tt.opts...)
			err := store.Put(ctx, tt.cohort)
			if !errors.Is(err, ErrInvalidCohort) {
				t.Fatalf("expected ErrInvalidCohort, got %v", err)
			}
			if n := store.Count(ctx); n != 0 {
				t.Errorf("invalid cohort must not be stored, count=%d", n)
			}
		})
	}

	t.Run("subject cap is inclusive", func(t *testing.T) {
		store := NewCohortStore(WithMaxSubjects(4))
		if err := store.Put(ctx, sampleCohort("ok", 4)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestCohortStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewCohortStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%02d", i)
			if err := store.Put(ctx, sampleCohort(id, 2)); err != nil {
				t.Errorf("put %s: %v", id, err)
			}
			_ = store.List(ctx)
			if _, err := store.Get(ctx, id); err != nil {
				t.Errorf("get %s: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	if n := store.Count(ctx); n != 20 {
		t.Errorf("expected 20 cohorts, got %d", n)
	}
}
