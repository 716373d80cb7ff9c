package imports

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	sph "robotd/photogrammetry"
)

const calibrationXML = `<?xml version="1.0"?>
<opencv_storage>
<image_Width>640</image_Width>
<image_Height>480</image_Height>
<Camera_Matrix type_id="opencv-matrix">
  <rows>3</rows>
  <cols>3</cols>
  <dt>d</dt>
  <data>
    6.1e+02 0. 3.2e+02 0. 5.9e+02 2.4e+02 0. 0. 1.</data></Camera_Matrix>
</opencv_storage>
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestReadIntrinsicsXML(t *testing.T) {
	intrinsics, err := ReadIntrinsicsXML(writeFile(t, "camera.xml", calibrationXML))
	if err != nil {
		t.Fatalf("ReadIntrinsicsXML failed: %v", err)
	}
	if intrinsics.Width != 640 || intrinsics.Height != 480 {
		t.Errorf("image size: got %dx%d, want 640x480", intrinsics.Width, intrinsics.Height)
	}
	k, err := intrinsics.Matrix()
	if err != nil {
		t.Fatalf("Matrix failed: %v", err)
	}
	if k.At(0, 0) != 610 || k.At(1, 1) != 590 || k.At(0, 2) != 320 || k.At(1, 2) != 240 {
		t.Errorf("unexpected camera matrix %v", sph.FormatMatrixPrint(k))
	}
	f, err := intrinsics.Focal()
	if err != nil || f != 600 {
		t.Errorf("focal: got (%f, %v), want 600", f, err)
	}
}

func TestReadIntrinsicsXMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not xml", "camera matrix"},
		{"bad number", `<opencv_storage><Camera_Matrix><rows>3</rows><cols>3</cols><data>1 0 x 0 1 0 0 0 1</data></Camera_Matrix></opencv_storage>`},
		{"wrong shape", `<opencv_storage><Camera_Matrix><rows>2</rows><cols>2</cols><data>1 0 0 1</data></Camera_Matrix></opencv_storage>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadIntrinsicsXML(writeFile(t, "camera.xml", tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := ReadIntrinsicsXML(filepath.Join(t.TempDir(), "missing.xml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v, want os.ErrNotExist", err)
	}
}
