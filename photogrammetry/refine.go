package photogrammetry

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// reprojection holds what the refinement compares a pose against.
type reprojection struct {
	intrinsics mat.Matrix
	model      []r3.Vector
	observed   []Pos
}

func quaternionToRotation(qw, qx, qy, qz float64) Rotation {
	n := math.Sqrt(qw*qw + qx*qx + qy*qy + qz*qz)
	qw, qx, qy, qz = qw/n, qx/n, qy/n, qz/n
	return Rotation{
		{1 - 2*(qy*qy+qz*qz), 2 * (qx*qy - qz*qw), 2 * (qx*qz + qy*qw)},
		{2 * (qx*qy + qz*qw), 1 - 2*(qx*qx+qz*qz), 2 * (qy*qz - qx*qw)},
		{2 * (qx*qz - qy*qw), 2 * (qy*qz + qx*qw), 1 - 2*(qx*qx+qy*qy)},
	}
}

func (r Rotation) apply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		Y: r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		Z: r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

// Func is the summed squared pixel error for x = (qw, qx, qy, qz, tx, ty, tz).
func (rp *reprojection) Func(x []float64) float64 {
	rot := quaternionToRotation(x[0], x[1], x[2], x[3])
	t := r3.Vector{X: x[4], Y: x[5], Z: x[6]}
	var sum float64
	for i, m := range rp.model {
		pixel, err := ProjectPoint(rot.apply(m).Add(t), rp.intrinsics)
		if err != nil {
			return math.Inf(1)
		}
		dx, dy := pixel.X-rp.observed[i].X, pixel.Y-rp.observed[i].Y
		sum += dx*dx + dy*dy
	}
	return sum
}

// Refine polishes a marker pose (as returned by PlanarDecomposer with the same
// size) by minimising the reprojection error of the marker corners and
// centre. It returns the refined candidate and the RMS pixel error.
func Refine(h Homography, intrinsics Intrinsics, size Size, c Candidate) (Candidate, float64, error) {
	k, err := intrinsics.Matrix()
	if err != nil {
		return Candidate{}, 0, err
	}
	halfWidth, halfHeight := 1.0, 1.0
	if size.Width > 0 && size.Height > 0 {
		halfWidth, halfHeight = size.Width/2, size.Height/2
	}

	corners, err := h.Corners()
	if err != nil {
		return Candidate{}, 0, err
	}
	centre, err := h.Centre()
	if err != nil {
		return Candidate{}, 0, err
	}
	rp := &reprojection{intrinsics: k, observed: append(corners[:], centre)}
	for _, p := range append(canonicalCorners[:], canonicalCentre) {
		rp.model = append(rp.model, r3.Vector{X: p.X * halfWidth, Y: p.Y * halfHeight})
	}

	pose, err := c.Pose()
	if err != nil {
		return Candidate{}, 0, err
	}
	q := pose.Orientation().Quaternion()
	x0 := []float64{q.Real, q.Imag, q.Jmag, q.Kmag, c.Translation.X, c.Translation.Y, c.Translation.Z}

	problem := optimize.Problem{
		Func: rp.Func,
	}
	settings := &optimize.Settings{
		FuncEvaluations: 20000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 200,
		},
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	// hitting the evaluation limit still leaves a usable pose
	if result == nil || math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		if err == nil {
			err = errors.New("no finite reprojection error")
		}
		return Candidate{}, 0, errors.Wrap(err, "refining pose")
	}

	rot := quaternionToRotation(result.X[0], result.X[1], result.X[2], result.X[3])
	refined := Candidate{
		Rotation:    rot,
		Translation: r3.Vector{X: result.X[4], Y: result.X[5], Z: result.X[6]},
		Normal:      r3.Vector{X: rot[0][2], Y: rot[1][2], Z: rot[2][2]},
	}
	rms := math.Sqrt(rp.Func(result.X) / float64(len(rp.model)))
	return refined, rms, nil
}
