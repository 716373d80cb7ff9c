package photogrammetry

import (
	"math"

	"github.com/golang/geo/r3"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func vectorsAlmostEqual(v1, v2 r3.Vector, tol float64) bool {
	return almostEqual(v1.X, v2.X, tol) && almostEqual(v1.Y, v2.Y, tol) && almostEqual(v1.Z, v2.Z, tol)
}

func rotationsAlmostEqual(a, b Rotation, tol float64) bool {
	for i := range 3 {
		for j := range 3 {
			if !almostEqual(a[i][j], b[i][j], tol) {
				return false
			}
		}
	}
	return true
}

func mulRotation(a, b Rotation) Rotation {
	var r Rotation
	for i := range 3 {
		for j := range 3 {
			for k := range 3 {
				r[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return r
}

// rotXYZ builds Rz(az) * Ry(ay) * Rx(ax).
func rotXYZ(ax, ay, az float64) Rotation {
	cx, sx := math.Cos(ax), math.Sin(ax)
	cy, sy := math.Cos(ay), math.Sin(ay)
	cz, sz := math.Cos(az), math.Sin(az)
	rx := Rotation{{1, 0, 0}, {0, cx, -sx}, {0, sx, cx}}
	ry := Rotation{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
	rz := Rotation{{cz, -sz, 0}, {sz, cz, 0}, {0, 0, 1}}
	return mulRotation(rz, mulRotation(ry, rx))
}

func identityRotation() Rotation {
	return Rotation{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// markerPoints places the canonical corners of a marker in the camera frame.
func markerPoints(rot Rotation, centre r3.Vector, size Size) [4]r3.Vector {
	var points [4]r3.Vector
	for i, c := range canonicalCorners {
		points[i] = rot.apply(r3.Vector{X: c.X * size.Width / 2, Y: c.Y * size.Height / 2}).Add(centre)
	}
	return points
}

func projectMarker(rot Rotation, centre r3.Vector, size Size, f float64) Corners {
	var corners Corners
	for i, p := range markerPoints(rot, centre, size) {
		corners[i] = Pos{X: f * p.X / p.Z, Y: f * p.Y / p.Z}
	}
	return corners
}

// markerHomography is K [w/2 r1, h/2 r2, t] for K = diag(f, f, 1).
func markerHomography(rot Rotation, centre r3.Vector, size Size, f float64) Homography {
	var h Homography
	for i := range 3 {
		row := f
		if i == 2 {
			row = 1
		}
		h[i][0] = row * rot[i][0] * size.Width / 2
		h[i][1] = row * rot[i][1] * size.Height / 2
	}
	h[0][2], h[1][2], h[2][2] = f*centre.X, f*centre.Y, centre.Z
	return h
}
