package regression

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Significance describes a two-sided Student-t test of a fitted slope.
type Significance struct {
	StdErr float64 `json:"std_err"`
	PValue float64 `json:"p_value"`
	DF     int     `json:"df"`
}

// SlopeSignificance tests H0: slope == 0 for a fit produced by FitSimple on
// the same points. With fewer than one residual degree of freedom, or no
// variance in x, nothing can be said and the p-value is 1.
func SlopeSignificance(points []Point, fit Simple) Significance {
	n := len(points)
	df := n - minSimplePoints
	if df < 1 {
		return Significance{PValue: 1, DF: max(df, 0)}
	}

	var sumX float64
	for _, p := range points {
		sumX += p.X
	}
	meanX := sumX / float64(n)

	var sxx, ssRes float64
	for _, p := range points {
		dx := p.X - meanX
		sxx += dx * dx
		r := p.Y - (fit.Intercept + fit.Slope*p.X)
		ssRes += r * r
	}
	if sxx == 0 {
		return Significance{PValue: 1, DF: df}
	}

	se := math.Sqrt(ssRes / float64(df) / sxx)
	if se == 0 || !finite(se) {
		p := 1.0
		if fit.Slope != 0 {
			p = 0
		}
		return Significance{PValue: p, DF: df}
	}

	t := math.Abs(fit.Slope / se)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	p := clamp01(2 * dist.Survival(t))
	return Significance{StdErr: se, PValue: p, DF: df}
}
