package photogrammetry

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/spatialmath"
	"gonum.org/v1/gonum/mat"
)

const (
	// Spread of squared singular values under which a homography is a pure rotation.
	pureRotationTolerance = 1e-9
	candidateTolerance    = 1e-9
)

// Decomposer factors a homography into the camera poses that explain it.
// A single view of a plane is ambiguous, so more than one candidate may be
// returned; choosing between them is left to the caller.
type Decomposer interface {
	Decompose(h Homography, intrinsics Intrinsics) ([]Candidate, error)
}

// SVDDecomposer is the classical Euclidean homography decomposition. The
// canonical marker square is treated as the image of a reference view at
// unit distance, so Translation is expressed in units of that distance and
// Normal is the plane normal in the reference view.
type SVDDecomposer struct{}

// PlanarDecomposer uses the marker plane model directly and returns a single
// candidate: the marker orientation, the marker centre in the camera frame
// (in the units of Size, or canonical half-widths when Size is zero) and the
// marker normal.
type PlanarDecomposer struct {
	Size Size
}

func referencePoints() []r3.Vector {
	points := make([]r3.Vector, 0, len(canonicalCorners)+1)
	for _, c := range canonicalCorners {
		points = append(points, r3.Vector{X: c.X, Y: c.Y, Z: 1})
	}
	return append(points, r3.Vector{X: canonicalCentre.X, Y: canonicalCentre.Y, Z: 1})
}

// metricHomography removes the camera intrinsics: K^-1 H.
func metricHomography(h Homography, intrinsics Intrinsics) (*mat.Dense, error) {
	k, err := intrinsics.Matrix()
	if err != nil {
		return nil, err
	}
	hd := h.Dense()
	if nearlySingular(hd) {
		return nil, errors.Wrap(ErrDegenerateHomography, "homography is not invertible")
	}
	var kInv mat.Dense
	if err := kInv.Inverse(k); err != nil {
		return nil, errors.Wrapf(ErrInvalidCamera, "inverting camera matrix: %v", err)
	}
	var metric mat.Dense
	metric.Mul(&kInv, hd)
	return &metric, nil
}

func colVec(m mat.Matrix, j int) r3.Vector {
	return r3.Vector{X: m.At(0, j), Y: m.At(1, j), Z: m.At(2, j)}
}

func mulVec(m mat.Matrix, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z,
		Y: m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z,
		Z: m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z,
	}
}

func fromColumns(cols ...r3.Vector) *mat.Dense {
	m := mat.NewDense(3, len(cols), nil)
	for j, c := range cols {
		m.SetCol(j, []float64{c.X, c.Y, c.Z})
	}
	return m
}

func toRotation(m mat.Matrix) Rotation {
	var r Rotation
	for i := range 3 {
		for j := range 3 {
			r[i][j] = m.At(i, j)
		}
	}
	return r
}

// orthonormalize returns the rotation closest to m in the Frobenius norm.
func orthonormalize(m mat.Matrix) (Rotation, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return Rotation{}, errors.Wrap(ErrDegenerateHomography, "failed to factorize rotation")
	}
	var u, v, r mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		u.SetCol(2, []float64{-u.At(0, 2), -u.At(1, 2), -u.At(2, 2)})
		r.Mul(&u, v.T())
	}
	return toRotation(&r), nil
}

// depthSign returns +1 or -1 so that every reference point lands in front of
// the camera, or 0 when the plane straddles the camera.
func depthSign(h mat.Matrix) float64 {
	var positive, negative int
	for _, p := range referencePoints() {
		switch z := mulVec(h, p).Z; {
		case z > 0:
			positive++
		case z < 0:
			negative++
		}
	}
	switch {
	case negative == 0 && positive > 0:
		return 1
	case positive == 0 && negative > 0:
		return -1
	}
	return 0
}

func (SVDDecomposer) Decompose(h Homography, intrinsics Intrinsics) ([]Candidate, error) {
	metric, err := metricHomography(h, intrinsics)
	if err != nil {
		return nil, err
	}

	var svd mat.SVD
	if ok := svd.Factorize(metric, mat.SVDFull); !ok {
		return nil, errors.Wrap(ErrDegenerateHomography, "failed to factorize homography")
	}
	s := svd.Values(nil)
	if s[2] <= degenerateTolerance*s[0] {
		return nil, errors.Wrapf(ErrDegenerateHomography, "singular values %v", s)
	}

	// H = ±(R + T n^T) once scaled by the middle singular value
	var hl mat.Dense
	hl.Scale(1/s[1], metric)
	sign := depthSign(&hl)
	if sign == 0 {
		return nil, errors.Wrap(ErrDegenerateHomography, "marker plane crosses the camera")
	}
	hl.Scale(sign, &hl)

	sig1 := (s[0] / s[1]) * (s[0] / s[1])
	sig3 := (s[2] / s[1]) * (s[2] / s[1])
	if sig1-sig3 < pureRotationTolerance {
		rot, err := orthonormalize(&hl)
		if err != nil {
			return nil, err
		}
		return []Candidate{{Rotation: rot, Normal: r3.Vector{Z: 1}}}, nil
	}

	var v mat.Dense
	svd.VTo(&v)
	if mat.Det(&v) < 0 {
		v.Scale(-1, &v)
	}
	v1, v2, v3 := colVec(&v, 0), colVec(&v, 1), colVec(&v, 2)

	a := math.Sqrt(math.Max(0, 1-sig3))
	c := math.Sqrt(math.Max(0, sig1-1))
	d := math.Sqrt(sig1 - sig3)
	u1 := v1.Mul(a).Add(v3.Mul(c)).Mul(1 / d)
	u2 := v1.Mul(a).Sub(v3.Mul(c)).Mul(1 / d)

	solve := func(u r3.Vector) Candidate {
		normal := v2.Cross(u)
		hv2, hu := mulVec(&hl, v2), mulVec(&hl, u)
		basis := fromColumns(v2, u, normal)
		image := fromColumns(hv2, hu, hv2.Cross(hu))
		var rot, diff mat.Dense
		rot.Mul(image, basis.T())
		diff.Sub(&hl, &rot)
		return Candidate{Rotation: toRotation(&rot), Translation: mulVec(&diff, normal), Normal: normal}
	}

	var candidates []Candidate
	for _, u := range []r3.Vector{u1, u2} {
		sol := solve(u)
		flipped := Candidate{Rotation: sol.Rotation, Translation: sol.Translation.Mul(-1), Normal: sol.Normal.Mul(-1)}
		for _, cand := range []Candidate{sol, flipped} {
			if !inFront(cand.Normal) || containsCandidate(candidates, cand) {
				continue
			}
			candidates = append(candidates, cand)
		}
	}
	if len(candidates) == 0 {
		return nil, errors.Wrap(ErrDegenerateHomography, "no candidate places the marker in front of the camera")
	}
	return candidates, nil
}

// inFront reports whether a plane with this normal sees every reference
// point at positive depth.
func inFront(normal r3.Vector) bool {
	for _, p := range referencePoints() {
		if normal.Dot(p) <= 0 {
			return false
		}
	}
	return true
}

func containsCandidate(candidates []Candidate, c Candidate) bool {
	for _, other := range candidates {
		if sameCandidate(other, c) {
			return true
		}
	}
	return false
}

func sameCandidate(a, b Candidate) bool {
	for i := range 3 {
		for j := range 3 {
			if math.Abs(a.Rotation[i][j]-b.Rotation[i][j]) > candidateTolerance {
				return false
			}
		}
	}
	return a.Translation.Sub(b.Translation).Norm() <= candidateTolerance &&
		a.Normal.Sub(b.Normal).Norm() <= candidateTolerance
}

func (p PlanarDecomposer) Decompose(h Homography, intrinsics Intrinsics) ([]Candidate, error) {
	metric, err := metricHomography(h, intrinsics)
	if err != nil {
		return nil, err
	}
	halfWidth, halfHeight := 1.0, 1.0
	if p.Size.Width > 0 && p.Size.Height > 0 {
		halfWidth, halfHeight = p.Size.Width/2, p.Size.Height/2
	}

	h1, h2, h3 := colVec(metric, 0), colVec(metric, 1), colVec(metric, 2)
	lambda := (h1.Norm()/halfWidth + h2.Norm()/halfHeight) / 2
	if lambda == 0 || h3.Z == 0 {
		return nil, errors.Wrap(ErrDegenerateHomography, "marker centre is not in front of the camera")
	}
	if h3.Z < 0 {
		lambda = -lambda
	}

	r1 := h1.Mul(1 / (lambda * halfWidth))
	r2 := h2.Mul(1 / (lambda * halfHeight))
	rot, err := orthonormalize(fromColumns(r1, r2, r1.Cross(r2)))
	if err != nil {
		return nil, err
	}
	normal := r3.Vector{X: rot[0][2], Y: rot[1][2], Z: rot[2][2]}
	return []Candidate{{Rotation: rot, Translation: h3.Mul(1 / lambda), Normal: normal}}, nil
}

// Pose converts the candidate into an RDK pose for robot controllers.
func (c Candidate) Pose() (spatialmath.Pose, error) {
	r := c.Rotation
	orientation, err := spatialmath.NewRotationMatrix([]float64{
		r[0][0], r[0][1], r[0][2],
		r[1][0], r[1][1], r[1][2],
		r[2][0], r[2][1], r[2][2],
	})
	if err != nil {
		return nil, errors.Wrap(err, "candidate rotation")
	}
	return spatialmath.NewPose(c.Translation, orientation), nil
}
