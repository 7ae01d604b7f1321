// Package classify maps risk-aversion coefficients onto labelled buckets.
//
// Two scales exist. The four-category scale is paired with the simple
// regression coefficient and the five-category scale with the multivariate
// one. Thresholds are inclusive lower bounds checked from the top down.
package classify

import (
	"fmt"
	"strings"
)

// Scheme selects a classification scale and, with it, a regression mode.
type Scheme string

// Supported schemes.
const (
	FourCategory Scheme = "four"
	FiveCategory Scheme = "five"
)

// Category is a classification label.
type Category string

// Four-category labels.
const (
	VeryAggressive Category = "VeryAggressive"
	Aggressive     Category = "Aggressive"
	Moderate       Category = "Moderate"
	Conservative   Category = "Conservative"
)

// Five-category labels.
const (
	VeryRiskAverse   Category = "VeryRiskAverse"
	MildRiskAversion Category = "MildRiskAversion"
	LowRiskAversion  Category = "LowRiskAversion"
	RiskNeutral      Category = "RiskNeutral"
	RiskSeeking      Category = "RiskSeeking"
)

// bucket is a lower bound and the label assigned at or above it.
type bucket struct {
	min      float64
	category Category
}

var (
	fourBuckets = []bucket{
		{0.5, VeryAggressive},
		{0.2, Aggressive},
		{-0.2, Moderate},
	}
	fiveBuckets = []bucket{
		{2, VeryRiskAverse},
		{1, MildRiskAversion},
		{0.5, LowRiskAversion},
		{-0.5, RiskNeutral},
	}
)

// ParseScheme accepts "four"/"4" and "five"/"5", case-insensitively.
// The empty string maps to FourCategory.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "four", "4":
		return FourCategory, nil
	case "five", "5":
		return FiveCategory, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownScheme)
	}
}

// Valid reports whether s is a known scheme.
func (s Scheme) Valid() bool {
	return s == FourCategory || s == FiveCategory
}

// Multivariate reports whether the scheme is fed by the two-feature fit.
func (s Scheme) Multivariate() bool {
	return s == FiveCategory
}

// Categories lists the scheme's labels from the highest bucket down.
func (s Scheme) Categories() []Category {
	if s == FiveCategory {
		return []Category{VeryRiskAverse, MildRiskAversion, LowRiskAversion, RiskNeutral, RiskSeeking}
	}
	return []Category{VeryAggressive, Aggressive, Moderate, Conservative}
}

// Neutral is the label given to subjects with no usable observations.
func (s Scheme) Neutral() Category {
	if s == FiveCategory {
		return RiskNeutral
	}
	return Moderate
}

// Classify returns the label for coefficient under scheme s.
func (s Scheme) Classify(coefficient float64) Category {
	buckets, floor := fourBuckets, Conservative
	if s == FiveCategory {
		buckets, floor = fiveBuckets, RiskSeeking
	}
	for _, b := range buckets {
		if coefficient >= b.min {
			return b.category
		}
	}
	return floor
}

func (s Scheme) String() string { return string(s) }
