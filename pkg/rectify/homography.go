package rectify

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 planar projective transform with h33 fixed to 1.
type Homography [3][3]float64

// EstimateHomography computes the homography mapping src[i] onto dst[i]
// for four point correspondences. With h33 = 1 each correspondence
// contributes two linear equations in the remaining eight coefficients:
//
//	u = (h11 x + h12 y + h13) / (h31 x + h32 y + 1)
//	v = (h21 x + h22 y + h23) / (h31 x + h32 y + 1)
//
// Four points in general position determine the system exactly; a
// degenerate arrangement (three collinear points, repeated points) makes
// it singular and is reported as an error.
func EstimateHomography(src, dst [4]Point) (Homography, error) {
	A := mat.NewDense(8, 8, nil)
	B := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		A.Set(i*2, 6, -u*x)
		A.Set(i*2, 7, -u*y)
		B.SetVec(i*2, u)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		A.Set(i*2+1, 6, -v*x)
		A.Set(i*2+1, 7, -v*y)
		B.SetVec(i*2+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, B); err != nil {
		return Homography{}, fmt.Errorf("corner points are degenerate: %w", err)
	}

	return Homography{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}, nil
}

// Apply maps a point through the homography.
func (h Homography) Apply(p Point) Point {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	return Point{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}
}

// Invert returns the inverse transform.
func (h Homography) Invert() (Homography, error) {
	m := mat.NewDense(3, 3, []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	})

	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Homography{}, fmt.Errorf("homography is not invertible: %w", err)
	}

	// Renormalize so h33 stays 1.
	s := inv.At(2, 2)
	if s == 0 {
		return Homography{}, fmt.Errorf("homography inverse is degenerate")
	}
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = inv.At(r, c) / s
		}
	}
	return out, nil
}
