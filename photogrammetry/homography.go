package photogrammetry

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Relative size below which a projective denominator counts as zero.
const degenerateTolerance = 1e-12

var canonicalCorners = Corners{{X: -1, Y: -1}, {X: -1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: -1}}

var canonicalCentre = Pos{X: 0, Y: 0}

// NewHomography reshapes nine row-major entries into a Homography.
func NewHomography(data []float64) (Homography, error) {
	var h Homography
	if len(data) != 9 {
		return h, errors.Wrapf(ErrMalformedDetection, "homography has %d entries, want 9", len(data))
	}
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return h, errors.Wrapf(ErrMalformedDetection, "homography entry %d is %v", i, v)
		}
		h[i/3][i%3] = v
	}
	return h, nil
}

func (h Homography) Dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	})
}

// Scale returns h with every entry multiplied by s.
func (h Homography) Scale(s float64) Homography {
	for r := range 3 {
		for c := range 3 {
			h[r][c] *= s
		}
	}
	return h
}

func (h Homography) rowMul(p Pos, row int) float64 {
	return h[row][0]*p.X + h[row][1]*p.Y + h[row][2]
}

// Transform applies the homography to a canonical point, the same mapping as
// OpenCV's warpPerspective.
func (h Homography) Transform(p Pos) (Pos, error) {
	z := h.rowMul(p, 2)
	magnitude := math.Abs(h[2][0]*p.X) + math.Abs(h[2][1]*p.Y) + math.Abs(h[2][2])
	if math.IsNaN(z) || math.Abs(z) <= degenerateTolerance*magnitude {
		return Pos{}, errors.Wrapf(ErrDegenerateHomography, "point (%v, %v) maps to infinity", p.X, p.Y)
	}
	res := Pos{X: h.rowMul(p, 0) / z, Y: h.rowMul(p, 1) / z}
	if math.IsInf(res.X, 0) || math.IsInf(res.Y, 0) || math.IsNaN(res.X) || math.IsNaN(res.Y) {
		return Pos{}, errors.Wrapf(ErrDegenerateHomography, "point (%v, %v) is not finite after transform", p.X, p.Y)
	}
	return res, nil
}

// Corners returns the pixel position of each canonical marker corner.
func (h Homography) Corners() (Corners, error) {
	var corners Corners
	for i, corner := range canonicalCorners {
		pos, err := h.Transform(corner)
		if err != nil {
			return Corners{}, errors.Wrapf(err, "corner %d", i)
		}
		corners[i] = pos
	}
	return corners, nil
}

// Centre returns the pixel position of the marker origin.
func (h Homography) Centre() (Pos, error) {
	return h.Transform(canonicalCentre)
}
