package photogrammetry

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

func FormatMatrixPrint(matrix mat.Matrix) fmt.Formatter {
	return mat.Formatted(matrix, mat.Prefix("    "), mat.Squeeze())
}

func (r Rotation) Dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		r[0][0], r[0][1], r[0][2],
		r[1][0], r[1][1], r[1][2],
		r[2][0], r[2][1], r[2][2],
	})
}

func roundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

func Degrees2Rad(deg float64) float64 {
	res := deg * math.Pi / 180
	return roundFloat(res, 10)
}

func Rad2Degrees(rad float64) float64 {
	res := rad * 180 / math.Pi
	return roundFloat(res, 10)
}

// CameraPosition is the camera centre expressed in the marker frame, -R^T t.
func CameraPosition(c Candidate) r3.Vector {
	var coordinates mat.VecDense
	coordinates.MulVec(c.Rotation.Dense().T(), mat.NewVecDense(3, []float64{c.Translation.X, c.Translation.Y, c.Translation.Z}))
	coordinates.ScaleVec(-1, &coordinates)
	return r3.Vector{X: coordinates.AtVec(0), Y: coordinates.AtVec(1), Z: coordinates.AtVec(2)}
}

// Bearing returns the horizontal and vertical angles, in radians, at which a
// camera-frame point is seen (x right, y down, z forward).
func Bearing(v r3.Vector) (azimuth float64, elevation float64) {
	azimuth = math.Atan2(v.X, v.Z)
	elevation = math.Atan2(-v.Y, math.Sqrt(math.Pow(v.X, 2)+math.Pow(v.Z, 2)))
	return azimuth, elevation
}
