package photogrammetry

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

func TestRefine(t *testing.T) {
	rot := rotXYZ(0.3, -0.4, 0.2)
	centre := r3.Vector{X: 0.1, Y: -0.05, Z: 1.5}
	size := Size{Width: 0.2, Height: 0.2}
	intrinsics := Intrinsics{FocalLength: 600}
	h := markerHomography(rot, centre, size, intrinsics.FocalLength)

	start := Candidate{Rotation: rot, Translation: centre.Add(r3.Vector{X: 0.01, Z: -0.02})}
	refined, rms, err := Refine(h, intrinsics, size, start)
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if rms > 0.05 {
		t.Errorf("rms reprojection error %f px, want < 0.05", rms)
	}
	if !vectorsAlmostEqual(refined.Translation, centre, 5e-3) {
		t.Errorf("translation: got %+v, want %+v", refined.Translation, centre)
	}
	if !rotationsAlmostEqual(refined.Rotation, rot, 1e-2) {
		t.Errorf("rotation: got %v, want %v", refined.Rotation, rot)
	}
}

func TestQuaternionToRotation(t *testing.T) {
	half := math.Pi / 4
	// 90 degrees about z, unnormalised on purpose
	got := quaternionToRotation(2*math.Cos(half), 0, 0, 2*math.Sin(half))
	want := Rotation{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}}
	if !rotationsAlmostEqual(got, want, 1e-12) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReprojectionBehindCamera(t *testing.T) {
	k, _ := Intrinsics{FocalLength: 500}.Matrix()
	rp := &reprojection{
		intrinsics: k,
		model:      []r3.Vector{{X: -1, Y: -1}},
		observed:   []Pos{{X: 0, Y: 0}},
	}
	if f := rp.Func([]float64{1, 0, 0, 0, 0, 0, -1}); !math.IsInf(f, 1) {
		t.Errorf("got %f, want +Inf", f)
	}
}
