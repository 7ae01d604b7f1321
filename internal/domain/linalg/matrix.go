// Package linalg is a tiny fixed-size linear algebra kernel for the 3x3
// normal equations of a two-feature regression with intercept.
package linalg

import (
	"fmt"
	"math"
)

// Dim is the order of every matrix in this package.
const Dim = 3

// PivotEpsilon is the smallest pivot magnitude accepted during elimination.
const PivotEpsilon = 1e-10

// Matrix3 is a row-major 3x3 matrix.
type Matrix3 [Dim][Dim]float64

// Vector3 is a column vector of length 3.
type Vector3 [Dim]float64

// Identity3 returns the 3x3 identity matrix.
func Identity3() Matrix3 {
	var m Matrix3
	for i := 0; i < Dim; i++ {
		m[i][i] = 1
	}
	return m
}

// Mul returns m·o.
func (m Matrix3) Mul(o Matrix3) Matrix3 {
	var out Matrix3
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			var sum float64
			for k := 0; k < Dim; k++ {
				sum += m[i][k] * o[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// MulVec returns m·v.
func (m Matrix3) MulVec(v Vector3) Vector3 {
	var out Vector3
	for i := 0; i < Dim; i++ {
		var sum float64
		for k := 0; k < Dim; k++ {
			sum += m[i][k] * v[k]
		}
		out[i] = sum
	}
	return out
}

// Invert returns the inverse of m using Gauss-Jordan elimination on the
// augmented matrix [m | I] with partial pivoting. It returns
// ErrSingularMatrix when the best available pivot of a column is smaller
// than PivotEpsilon in magnitude.
func Invert(m Matrix3) (Matrix3, error) {
	a := m
	inv := Identity3()

	for col := 0; col < Dim; col++ {
		pivot := col
		best := math.Abs(a[col][col])
		for row := col + 1; row < Dim; row++ {
			if v := math.Abs(a[row][col]); v > best {
				best = v
				pivot = row
			}
		}
		if best < PivotEpsilon || math.IsNaN(best) {
			return Matrix3{}, fmt.Errorf("column %d pivot %g: %w", col, best, ErrSingularMatrix)
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			inv[col], inv[pivot] = inv[pivot], inv[col]
		}

		p := a[col][col]
		for j := 0; j < Dim; j++ {
			a[col][j] /= p
			inv[col][j] /= p
		}

		for row := 0; row < Dim; row++ {
			if row == col {
				continue
			}
			f := a[row][col]
			if f == 0 {
				continue
			}
			for j := 0; j < Dim; j++ {
				a[row][j] -= f * a[col][j]
				inv[row][j] -= f * inv[col][j]
			}
		}
	}
	return inv, nil
}
