package math3

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular indicates a matrix decomposition did not converge.
var ErrSingular = errors.New("math3: decomposition failed to converge")

func (m Mat3) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

func fromDense(d mat.Matrix) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = d.At(i, j)
		}
	}
	return r
}

// SVD computes m = U diag(sigma) Vᵀ with sigma sorted descending. U and V
// are adjusted to proper rotations (det = +1) so that callers reconstructing
// deformation gradients keep orientation.
func SVD(m Mat3) (u Mat3, sigma Vec3, v Mat3, err error) {
	var svd mat.SVD
	if ok := svd.Factorize(m.dense(), mat.SVDFull); !ok {
		return Identity(), Splat(1), Identity(), ErrSingular
	}
	var ud, vd mat.Dense
	svd.UTo(&ud)
	svd.VTo(&vd)
	vals := svd.Values(nil)
	u = fromDense(&ud)
	v = fromDense(&vd)
	sigma = Vec3{vals[0], vals[1], vals[2]}

	// Reflections show up as det = -1; push the flip into the smallest
	// singular value so U and V stay rotations.
	if u.Det() < 0 {
		for i := 0; i < 3; i++ {
			u[i][2] = -u[i][2]
		}
		sigma.Z = -sigma.Z
	}
	if v.Det() < 0 {
		for i := 0; i < 3; i++ {
			v[i][2] = -v[i][2]
		}
		sigma.Z = -sigma.Z
	}
	return u, sigma, v, nil
}

// Polar computes the polar decomposition m = R S with R a rotation and S
// symmetric, via the SVD.
func Polar(m Mat3) (r, s Mat3, err error) {
	u, sigma, v, err := SVD(m)
	if err != nil {
		return Identity(), Identity(), err
	}
	r = u.Mul(v.Transpose())
	s = v.Mul(Diag(sigma)).Mul(v.Transpose())
	return r, s, nil
}
