package photogrammetry

import (
	"fmt"

	"github.com/golang/geo/r3"
)

type Shape struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type MatrixInfo struct {
	Shape Shape     `json:"shape"`
	Data  []float64 `json:"data"`
}

// Intrinsics describes a pinhole camera. When CameraMatrix is empty the
// principal point is taken at the image centre and only FocalLength is used,
// which is how the detector normalises coordinates before handing off the
// homography.
type Intrinsics struct {
	Height       int        `json:"height"`
	Width        int        `json:"width"`
	FocalLength  float64    `json:"focal_length"`
	CameraMatrix MatrixInfo `json:"camera_matrix"`
}

// Pos is a point in pixel space.
type Pos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Corners holds the images of the canonical corners (-1,-1), (-1,1), (1,1)
// and (1,-1), in that order. Reconstruction indexes them positionally.
type Corners [4]Pos

// Size is the physical marker size, in the units the caller wants distances in.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Homography is a row-major 3x3 perspective transform from the canonical
// marker plane to image pixels.
type Homography [3][3]float64

// Rotation is a row-major 3x3 rotation matrix.
type Rotation [3][3]float64

// Candidate is one (rotation, translation, plane normal) solution of a
// homography decomposition.
type Candidate struct {
	Rotation    Rotation  `json:"rotation"`
	Translation r3.Vector `json:"translation"`
	Normal      r3.Vector `json:"normal"`
}

// Detection is what the external marker detector reports for one tag.
type Detection struct {
	ID         int       `json:"id"`
	Certainty  float64   `json:"certainty"`
	Homography []float64 `json:"homography"`
}

// Token is the immutable result of processing one detection.
type Token struct {
	ID           int     `json:"id"`
	Certainty    float64 `json:"certainty"`
	Size         Size    `json:"size"`
	PixelCorners Corners `json:"pixel_corners"`
	PixelCentre  Pos     `json:"pixel_centre"`
	Distance     float64 `json:"distance"`
}

func (t Token) String() string {
	return fmt.Sprintf("Token: %d, certainty:%v", t.ID, t.Certainty)
}

// IntrinsicsXML mirrors the OpenCV FileStorage layout written by most
// calibration tools.
type IntrinsicsXML struct {
	Image_Width   int `xml:"image_Width"`
	Image_Height  int `xml:"image_Height"`
	Camera_Matrix struct {
		Rows int    `xml:"rows"`
		Cols int    `xml:"cols"`
		Data string `xml:"data"`
	} `xml:"Camera_Matrix"`
}
