package photogrammetry

import (
	"sync"

	"github.com/pkg/errors"
)

// NewToken builds a Token using the pixel height distance estimate.
func NewToken(det Detection, size Size, focalLength float64) (Token, error) {
	return NewTokenWith(det, size, focalLength, PixelHeightDistance)
}

// NewTokenWith builds a Token using the given distance estimator.
func NewTokenWith(det Detection, size Size, focalLength float64, distance DistanceFunc) (Token, error) {
	if det.ID < 0 {
		return Token{}, errors.Wrapf(ErrMalformedDetection, "tag id %d", det.ID)
	}
	if !(det.Certainty >= 0 && det.Certainty <= 1) {
		return Token{}, errors.Wrapf(ErrMalformedDetection, "tag %d certainty %v outside [0, 1]", det.ID, det.Certainty)
	}
	if focalLength <= 0 || size.Width <= 0 || size.Height <= 0 {
		return Token{}, errors.Wrapf(ErrInvalidCamera, "tag %d: focal length %v, size %vx%v",
			det.ID, focalLength, size.Width, size.Height)
	}
	if distance == nil {
		distance = PixelHeightDistance
	}

	homography, err := NewHomography(det.Homography)
	if err != nil {
		return Token{}, errors.Wrapf(err, "tag %d", det.ID)
	}
	corners, err := homography.Corners()
	if err != nil {
		return Token{}, errors.Wrapf(err, "tag %d", det.ID)
	}
	centre, err := homography.Centre()
	if err != nil {
		return Token{}, errors.Wrapf(err, "tag %d centre", det.ID)
	}
	dist, err := distance(corners, focalLength, size)
	if err != nil {
		return Token{}, errors.Wrapf(err, "tag %d distance", det.ID)
	}

	return Token{
		ID:           det.ID,
		Certainty:    det.Certainty,
		Size:         size,
		PixelCorners: corners,
		PixelCentre:  centre,
		Distance:     dist,
	}, nil
}

// TokenResult pairs a detection with the outcome of building its token.
type TokenResult struct {
	Detection Detection
	Token     Token
	Err       error
}

// SizeFunc returns the physical size of the marker with the given id.
type SizeFunc func(id int) Size

// NewTokens builds a token for every detection of a frame concurrently. A
// failure only affects its own result. Results keep the order of dets. A nil
// sizeOf leaves every marker without a size, which fails with ErrInvalidCamera.
func NewTokens(dets []Detection, sizeOf SizeFunc, focalLength float64, distance DistanceFunc) []TokenResult {
	if sizeOf == nil {
		sizeOf = func(int) Size { return Size{} }
	}
	results := make([]TokenResult, len(dets))
	var wg sync.WaitGroup
	for i, det := range dets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := NewTokenWith(det, sizeOf(det.ID), focalLength, distance)
			results[i] = TokenResult{Detection: det, Token: token, Err: err}
		}()
	}
	wg.Wait()
	return results
}
