package photogrammetry

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// DistanceFunc estimates the camera to marker distance from its pixel corners.
type DistanceFunc func(corners Corners, focalLength float64, size Size) (float64, error)

const (
	PixelHeightEstimator = "pixel-height"
	CartesianEstimator   = "cartesian"
)

// DistanceEstimators lists the estimators selectable by name.
var DistanceEstimators = map[string]DistanceFunc{
	PixelHeightEstimator: PixelHeightDistance,
	CartesianEstimator:   CartesianDistance,
}

func LookupDistance(name string) (DistanceFunc, error) {
	if name == "" {
		return PixelHeightDistance, nil
	}
	est, ok := DistanceEstimators[name]
	if !ok {
		names := make([]string, 0, len(DistanceEstimators))
		for k := range DistanceEstimators {
			names = append(names, k)
		}
		sort.Strings(names)
		return nil, errors.Errorf("unknown distance estimator %q (have %v)", name, names)
	}
	return est, nil
}

// CentroidDistance is the norm of the mean of the four corner positions.
func CentroidDistance(points [4]r3.Vector) float64 {
	var centroid r3.Vector
	for _, p := range points {
		centroid = centroid.Add(p)
	}
	return centroid.Mul(0.25).Norm()
}

// CartesianDistance reconstructs the corners in 3D and returns the distance
// to their centroid.
func CartesianDistance(corners Corners, focalLength float64, size Size) (float64, error) {
	points, err := Cartesian(corners, focalLength, size)
	if err != nil {
		return 0, err
	}
	return CentroidDistance(points), nil
}

// PixelHeightDistance approximates the distance from the average vertical
// pixel extent of the marker. It ignores roll and horizontal rotation and is
// only trustworthy for markers facing the camera.
func PixelHeightDistance(corners Corners, focalLength float64, size Size) (float64, error) {
	if focalLength <= 0 || size.Height <= 0 {
		return 0, errors.Wrapf(ErrInvalidCamera, "focal length %v, marker height %v", focalLength, size.Height)
	}
	pixelHeight := (corners[1].Y - corners[0].Y + corners[2].Y - corners[3].Y) / 4
	if pixelHeight == 0 || math.IsNaN(pixelHeight) {
		return 0, errors.Wrapf(ErrZeroPixelExtent, "corners %v", corners)
	}
	return math.Abs(size.Height * focalLength / pixelHeight), nil
}
