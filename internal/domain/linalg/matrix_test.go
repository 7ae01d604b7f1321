package linalg_test

import (
	"errors"
	"testing"

	"github.com/okian/riskprofiler/internal/domain/linalg"
	"github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/mat"
)

const tolerance = 1e-9

func shouldBeIdentity(m linalg.Matrix3) {
	id := linalg.Identity3()
	for i := 0; i < linalg.Dim; i++ {
		for j := 0; j < linalg.Dim; j++ {
			convey.So(m[i][j], convey.ShouldAlmostEqual, id[i][j], tolerance)
		}
	}
}

func TestInvert(t *testing.T) {
	convey.Convey("Given the Gauss-Jordan inverter", t, func() {
		convey.Convey("When inverting the identity", func() {
			inv, err := linalg.Invert(linalg.Identity3())

			convey.Convey("Then the identity is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(inv, convey.ShouldResemble, linalg.Identity3())
			})
		})

		convey.Convey("When inverting a well-conditioned matrix", func() {
			m := linalg.Matrix3{
				{4, 7, 2},
				{3, 6, 1},
				{2, 5, 3},
			}
			inv, err := linalg.Invert(m)

			convey.Convey("Then m times its inverse is the identity", func() {
				convey.So(err, convey.ShouldBeNil)
				shouldBeIdentity(m.Mul(inv))
				shouldBeIdentity(inv.Mul(m))
			})

			convey.Convey("And it agrees with gonum", func() {
				dense := mat.NewDense(3, 3, []float64{4, 7, 2, 3, 6, 1, 2, 5, 3})
				var want mat.Dense
				convey.So(want.Inverse(dense), convey.ShouldBeNil)
				for i := 0; i < 3; i++ {
					for j := 0; j < 3; j++ {
						convey.So(inv[i][j], convey.ShouldAlmostEqual, want.At(i, j), tolerance)
					}
				}
			})
		})

		convey.Convey("When the leading diagonal entry is zero", func() {
			m := linalg.Matrix3{
				{0, 1, 0},
				{1, 0, 0},
				{0, 0, 2},
			}
			inv, err := linalg.Invert(m)

			convey.Convey("Then pivoting swaps rows and the inverse is still found", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(inv[0][1], convey.ShouldEqual, 1)
				convey.So(inv[1][0], convey.ShouldEqual, 1)
				convey.So(inv[2][2], convey.ShouldEqual, 0.5)
				shouldBeIdentity(m.Mul(inv))
			})
		})

		convey.Convey("When the matrix is singular", func() {
			// X'X for feature2 = 2 * feature1.
			m := linalg.Matrix3{
				{4, 10, 20},
				{10, 30, 60},
				{20, 60, 120},
			}
			_, err := linalg.Invert(m)

			convey.Convey("Then ErrSingularMatrix is returned", func() {
				convey.So(errors.Is(err, linalg.ErrSingularMatrix), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the matrix is all zeros", func() {
			_, err := linalg.Invert(linalg.Matrix3{})

			convey.Convey("Then ErrSingularMatrix is returned", func() {
				convey.So(errors.Is(err, linalg.ErrSingularMatrix), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the input is inverted", func() {
			m := linalg.Matrix3{{2, 0, 0}, {0, 3, 0}, {0, 0, 4}}
			_, _ = linalg.Invert(m)

			convey.Convey("Then the caller's matrix is not modified", func() {
				convey.So(m, convey.ShouldResemble, linalg.Matrix3{{2, 0, 0}, {0, 3, 0}, {0, 0, 4}})
			})
		})
	})
}

func TestMulVec(t *testing.T) {
	convey.Convey("Given a matrix and a vector", t, func() {
		m := linalg.Matrix3{{1, 2, 3}, {0, 1, 0}, {2, 0, 1}}
		v := linalg.Vector3{1, 1, 2}

		convey.Convey("Then MulVec computes the product", func() {
			convey.So(m.MulVec(v), convey.ShouldResemble, linalg.Vector3{9, 1, 4})
		})
	})
}
