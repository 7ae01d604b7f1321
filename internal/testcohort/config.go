// Package testcohort generates synthetic questionnaire cohorts and drives a
// running risk profiler with them.
package testcohort

import "time"

// GenerateConfig controls synthetic cohort generation.
type GenerateConfig struct {
	Cohorts   int    // Number of cohorts
	Subjects  int    // Subjects per cohort
	Questions int    // Strategies in each catalog
	Seed      uint64 // Generator seed; equal seeds give equal output
	// EmptyRate is the share of subjects that get no usable ratings.
	EmptyRate float64
	// Noise is the standard deviation of the rating noise on the 1..10 scale.
	Noise float64
}

// SubmitConfig controls a run against a live server.
type SubmitConfig struct {
	BaseURL string        // Base URL of the service
	Dataset string        // YAML or JSON dataset to upload
	Scheme  string        // four or five; empty uses the server default
	Timeout time.Duration // HTTP request timeout
	Async   bool          // Analyse through POST /jobs instead of /summary
	Poll    time.Duration // Job polling interval
}

// Report is what a submit run observed for one cohort.
type Report struct {
	CohortID           string
	Profiled           int
	Skipped            int
	AverageCoefficient float64
	Distribution       map[string]int
	JobID              string
}
