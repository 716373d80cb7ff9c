package imports

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	sph "robotd/photogrammetry"
)

func TestParseDetectionsCSV(t *testing.T) {
	input := strings.Join([]string{
		"# id\tcertainty\thomography",
		"3\t0.75\t100\t0\t0\t0\t50\t0\t0\t0\t1",
		"4\tabc\t100\t0\t0\t0\t50\t0\t0\t0\t1",
		"5\t0.5\t1\t0\t0\t0\t1\t0\t0\t0",
		"6",
		"7\t1\t1\t0\t0\t0\t1\t0\t0\t0\t1",
		"8\tNaN\t100\t0\t0\t0\t50\t0\t0\t0\t1",
		"9\t+Inf\t100\t0\t0\t0\t50\t0\t0\t0\t1",
	}, "\n") + "\n"

	dets, rejected, err := ParseDetectionsCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseDetectionsCSV failed: %v", err)
	}

	if len(dets) != 3 {
		t.Fatalf("got %d detections, want 3: %+v", len(dets), dets)
	}
	if dets[0].ID != 3 || dets[0].Certainty != 0.75 || len(dets[0].Homography) != 9 || dets[0].Homography[4] != 50 {
		t.Errorf("detection 3 parsed as %+v", dets[0])
	}
	// short homographies are left for token construction to reject
	if dets[1].ID != 5 || len(dets[1].Homography) != 8 {
		t.Errorf("detection 5 parsed as %+v", dets[1])
	}
	if dets[2].ID != 7 {
		t.Errorf("last detection parsed as %+v", dets[2])
	}
	if _, err := sph.NewToken(dets[1], sph.Size{Width: 0.1, Height: 0.1}, 500); !errors.Is(err, sph.ErrMalformedDetection) {
		t.Errorf("short homography: got %v, want ErrMalformedDetection", err)
	}

	if len(rejected) != 4 {
		t.Fatalf("got %d rejected rows, want 4: %+v", len(rejected), rejected)
	}
	wantLines := []int{3, 5, 7, 8}
	for i, row := range rejected {
		if row.Line != wantLines[i] {
			t.Errorf("rejected row %d: line %d, want %d", i, row.Line, wantLines[i])
		}
		if !errors.Is(row.Err, sph.ErrMalformedDetection) {
			t.Errorf("rejected row %d: got %v, want ErrMalformedDetection", i, row.Err)
		}
	}
}

func TestReadDetectionsCSVMissing(t *testing.T) {
	if _, _, err := ReadDetectionsCSV("/nonexistent/detections.csv"); err == nil {
		t.Error("expected error for missing file")
	}
}
