package regression

import (
	"errors"
	"math"

	"github.com/okian/riskprofiler/internal/domain/linalg"
)

// Fit constants.
const (
	minMultiSamples = 3
	// determinantEpsilon bounds the centred 2x2 determinant of the fallback solve.
	determinantEpsilon = 1e-10
)

// FitPath names the numerical route a multivariate fit took.
type FitPath string

// Fit paths, in the order they are attempted.
const (
	PathInsufficient     FitPath = "insufficient"
	PathNormalEquations  FitPath = "normal_equations"
	PathCenteredFallback FitPath = "centered_fallback"
	PathDegenerate       FitPath = "degenerate"
)

// Sample is one row of a two-feature design matrix. The intercept column is
// implicit and always 1, so a row is [1, X1, X2] -> Y.
type Sample struct {
	X1 float64 `json:"x1"`
	X2 float64 `json:"x2"`
	Y  float64 `json:"y"`
}

// Multi is the result of y = Alpha + Beta1*x1 + Beta2*x2.
type Multi struct {
	Alpha    float64 `json:"alpha"`
	Beta1    float64 `json:"beta1"`
	Beta2    float64 `json:"beta2"`
	RSquared float64 `json:"r_squared"`
	N        int     `json:"n"`
	Path     FitPath `json:"path"`
}

// Insufficient reports whether the fit had fewer samples than unknowns.
func (m Multi) Insufficient() bool { return m.Path == PathInsufficient }

// FitMultivariate solves the normal equations (XᵀX)β = Xᵀy for an intercept
// and two features. When XᵀX is singular the features are centred and the
// remaining 2x2 system is solved with Cramer's rule; if that is degenerate
// too, the fit collapses to the mean of y.
func FitMultivariate(samples []Sample) Multi {
	n := len(samples)
	if n < minMultiSamples {
		return Multi{N: n, Path: PathInsufficient}
	}

	var xtx linalg.Matrix3
	var xty linalg.Vector3
	for _, s := range samples {
		row := linalg.Vector3{1, s.X1, s.X2}
		for i := 0; i < linalg.Dim; i++ {
			for j := 0; j < linalg.Dim; j++ {
				xtx[i][j] += row[i] * row[j]
			}
			xty[i] += row[i] * s.Y
		}
	}

	var res Multi
	inv, err := linalg.Invert(xtx)
	if err == nil {
		beta := inv.MulVec(xty)
		res = Multi{Alpha: beta[0], Beta1: beta[1], Beta2: beta[2], Path: PathNormalEquations}
	}
	if errors.Is(err, linalg.ErrSingularMatrix) || !finite(res.Alpha) || !finite(res.Beta1) || !finite(res.Beta2) {
		res = centeredFit(samples)
	}
	res.N = n
	res.RSquared = multiRSquared(samples, res)
	return res
}

// centeredFit solves the two-feature system on mean-centred sums.
func centeredFit(samples []Sample) Multi {
	n := float64(len(samples))
	var sum1, sum2, sumY float64
	for _, s := range samples {
		sum1 += s.X1
		sum2 += s.X2
		sumY += s.Y
	}
	mean1, mean2, meanY := sum1/n, sum2/n, sumY/n

	var s11, s12, s22, s1y, s2y float64
	for _, s := range samples {
		c1 := s.X1 - mean1
		c2 := s.X2 - mean2
		cy := s.Y - meanY
		s11 += c1 * c1
		s12 += c1 * c2
		s22 += c2 * c2
		s1y += c1 * cy
		s2y += c2 * cy
	}

	det := s11*s22 - s12*s12
	if math.Abs(det) < determinantEpsilon || math.IsNaN(det) {
		return Multi{Alpha: finiteOrZero(meanY), Path: PathDegenerate}
	}

	b1 := (s1y*s22 - s2y*s12) / det
	b2 := (s2y*s11 - s1y*s12) / det
	return Multi{
		Alpha: finiteOrZero(meanY - b1*mean1 - b2*mean2),
		Beta1: finiteOrZero(b1),
		Beta2: finiteOrZero(b2),
		Path:  PathCenteredFallback,
	}
}

func multiRSquared(samples []Sample, m Multi) float64 {
	if m.Path == PathDegenerate {
		return 0
	}
	var sumY float64
	for _, s := range samples {
		sumY += s.Y
	}
	meanY := sumY / float64(len(samples))

	var ssRes, ssTot float64
	for _, s := range samples {
		r := s.Y - (m.Alpha + m.Beta1*s.X1 + m.Beta2*s.X2)
		ssRes += r * r
		d := s.Y - meanY
		ssTot += d * d
	}
	return rSquared(ssRes, ssTot)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
