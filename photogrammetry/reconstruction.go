package photogrammetry

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Relative determinant below which a 3x3 system is treated as singular.
const singularTolerance = 1e-10

// Matrix returns the 3x3 camera matrix K. Without an explicit camera matrix
// the principal point sits at the origin of the detector's coordinates.
func (in Intrinsics) Matrix() (*mat.Dense, error) {
	if len(in.CameraMatrix.Data) > 0 {
		if in.CameraMatrix.Shape.Row != 3 || in.CameraMatrix.Shape.Col != 3 || len(in.CameraMatrix.Data) != 9 {
			return nil, errors.Wrapf(ErrInvalidCamera, "camera matrix is %dx%d with %d entries",
				in.CameraMatrix.Shape.Row, in.CameraMatrix.Shape.Col, len(in.CameraMatrix.Data))
		}
		k := mat.NewDense(3, 3, append([]float64(nil), in.CameraMatrix.Data...))
		if k.At(0, 0) <= 0 || k.At(1, 1) <= 0 {
			return nil, errors.Wrapf(ErrInvalidCamera, "focal lengths fx=%v fy=%v", k.At(0, 0), k.At(1, 1))
		}
		return k, nil
	}
	if in.FocalLength <= 0 {
		return nil, errors.Wrapf(ErrInvalidCamera, "focal length %v", in.FocalLength)
	}
	f := in.FocalLength
	return mat.NewDense(3, 3, []float64{f, 0, 0, 0, f, 0, 0, 0, 1}), nil
}

// Focal returns the scalar focal length in pixels, averaging fx and fy when
// only a camera matrix is known.
func (in Intrinsics) Focal() (float64, error) {
	if in.FocalLength > 0 {
		return in.FocalLength, nil
	}
	k, err := in.Matrix()
	if err != nil {
		return 0, err
	}
	return (k.At(0, 0) + k.At(1, 1)) / 2, nil
}

func scaleHomogeonousPoint(point mat.Vector) mat.Vector {
	var vector mat.VecDense
	vector.ScaleVec((1 / point.AtVec(point.Len()-1)), point)
	return &vector
}

// ProjectPoint projects a camera-frame point into pixels.
func ProjectPoint(point r3.Vector, intrinsics mat.Matrix) (Pos, error) {
	if point.Z <= 0 {
		return Pos{}, errors.Errorf("point (%v, %v, %v) is behind the camera", point.X, point.Y, point.Z)
	}
	var pixel mat.VecDense
	pixel.MulVec(intrinsics, mat.NewVecDense(3, []float64{point.X, point.Y, point.Z}))
	scaled := scaleHomogeonousPoint(&pixel)
	return Pos{X: scaled.AtVec(0), Y: scaled.AtVec(1)}, nil
}

func nearlySingular(a mat.Matrix) bool {
	_, c := a.Dims()
	bound := 1.0
	for j := range c {
		bound *= floats.Norm(mat.Col(nil, j, a), 2)
	}
	det := mat.Det(a)
	return bound == 0 || math.IsNaN(det) || math.Abs(det) <= singularTolerance*bound
}

// Cartesian reconstructs the camera-frame position of each corner from its
// pixel position, the focal length and the physical marker width.
//
// The corners are assumed to form a parallelogram in space, so corner 3 is a
// signed combination of the other three rays. Solving for those ratios and
// fixing the length of the 0-3 edge to the marker width gives every depth.
func Cartesian(corners Corners, focalLength float64, size Size) ([4]r3.Vector, error) {
	var points [4]r3.Vector
	if focalLength <= 0 || size.Width <= 0 {
		return points, errors.Wrapf(ErrInvalidCamera, "focal length %v, marker width %v", focalLength, size.Width)
	}
	f := focalLength

	a := mat.NewDense(3, 3, []float64{
		-corners[0].X, corners[1].X, corners[2].X,
		-corners[0].Y, corners[1].Y, corners[2].Y,
		-f, f, f,
	})
	b := mat.NewVecDense(3, []float64{corners[3].X, corners[3].Y, f})

	if nearlySingular(a) {
		return points, errors.Wrap(ErrSingularReconstruction, "corners 0-2 are collinear")
	}
	var aInv mat.Dense
	if err := aInv.Inverse(a); err != nil {
		return points, errors.Wrapf(ErrSingularReconstruction, "inverting corner system: %v", err)
	}
	var ratios mat.VecDense
	ratios.MulVec(&aInv, b)

	// column 0 of a is negated, so its ratio comes back with the opposite sign
	k0OverK3 := -ratios.AtVec(0)
	residual := r3.Vector{
		X: k0OverK3*corners[0].X - corners[3].X,
		Y: k0OverK3*corners[0].Y - corners[3].Y,
		Z: k0OverK3*f - f,
	}
	tempK3 := residual.Norm()
	if math.IsNaN(tempK3) || tempK3 <= 0 {
		return points, errors.Wrapf(ErrSingularReconstruction, "edge residual %v", tempK3)
	}

	k3 := math.Abs(size.Width / tempK3)
	k := [4]float64{
		math.Abs(ratios.AtVec(0)) * k3,
		math.Abs(ratios.AtVec(1)) * k3,
		math.Abs(ratios.AtVec(2)) * k3,
		k3,
	}
	for i := range points {
		points[i] = r3.Vector{X: corners[i].X * k[i], Y: corners[i].Y * k[i], Z: f * k[i]}
	}
	return points, nil
}
