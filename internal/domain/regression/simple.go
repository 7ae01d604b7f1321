// Package regression implements ordinary least squares fits used to turn
// normalised ratings into risk-aversion coefficients.
//
// Two entry points share the same numerical conventions: FitSimple for a
// bivariate line and FitMultivariate for an intercept plus two features.
// Both are pure and never produce NaN or Inf in their results.
package regression

import (
	"math"
)

// minSimplePoints is the number of points needed to fit a line.
const minSimplePoints = 2

// Point is a single (x, y) observation.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Simple is the result of a bivariate least squares fit.
type Simple struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	N         int     `json:"n"`
}

// Insufficient reports whether the fit had too few points to carry signal.
func (s Simple) Insufficient() bool { return s.N < minSimplePoints }

// FitSimple fits y = intercept + slope*x by least squares.
// Fewer than two points yield the zero result. When x has no variance the
// slope is 0, and when y has no variance R² is 0.
func FitSimple(points []Point) Simple {
	n := len(points)
	if n < minSimplePoints {
		return Simple{N: n}
	}

	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var sxy, sxx float64
	for _, p := range points {
		dx := p.X - meanX
		sxy += dx * (p.Y - meanY)
		sxx += dx * dx
	}

	var slope float64
	if sxx != 0 {
		slope = sxy / sxx
	}
	intercept := meanY - slope*meanX

	var ssRes, ssTot float64
	for _, p := range points {
		r := p.Y - (intercept + slope*p.X)
		ssRes += r * r
		d := p.Y - meanY
		ssTot += d * d
	}

	return Simple{
		Slope:     finiteOrZero(slope),
		Intercept: finiteOrZero(intercept),
		RSquared:  rSquared(ssRes, ssTot),
		N:         n,
	}
}

// rSquared computes 1 - ssRes/ssTot clamped into [0, 1].
func rSquared(ssRes, ssTot float64) float64 {
	if ssTot == 0 {
		return 0
	}
	return clamp01(1 - ssRes/ssTot)
}

func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
