package photogrammetry

import "github.com/pkg/errors"

var (
	// ErrDegenerateHomography is returned when a homography maps a point to
	// infinity or cannot be decomposed.
	ErrDegenerateHomography = errors.New("degenerate homography")
	// ErrMalformedDetection is returned for detector output that cannot be
	// turned into a token.
	ErrMalformedDetection = errors.New("malformed detection")
	// ErrSingularReconstruction is returned when the corner system used for
	// cartesian reconstruction has no unique solution.
	ErrSingularReconstruction = errors.New("singular reconstruction")
	// ErrZeroPixelExtent is returned by the pixel height estimator when the
	// marker has no vertical extent in the image.
	ErrZeroPixelExtent = errors.New("zero pixel extent")
	// ErrInvalidCamera is returned for non-positive focal lengths or marker sizes.
	ErrInvalidCamera = errors.New("invalid camera parameters")
)
