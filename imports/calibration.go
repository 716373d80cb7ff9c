package imports

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	sph "robotd/photogrammetry"
)

// ReadIntrinsicsXML reads the camera matrix from an OpenCV calibration file.
func ReadIntrinsicsXML(file string) (*sph.Intrinsics, error) {
	xmlFile, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer xmlFile.Close()

	byteValue, err := io.ReadAll(xmlFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", file)
	}
	var intrinsicFile sph.IntrinsicsXML
	if err := xml.Unmarshal(byteValue, &intrinsicFile); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", file)
	}

	cameraDataString := strings.Fields(intrinsicFile.Camera_Matrix.Data)
	cameraData := make([]float64, len(cameraDataString))
	for index := range cameraDataString {
		val, err := strconv.ParseFloat(cameraDataString[index], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "camera matrix entry %d", index)
		}
		cameraData[index] = val
	}

	intrinsics := &sph.Intrinsics{
		Height: intrinsicFile.Image_Height,
		Width:  intrinsicFile.Image_Width,
		CameraMatrix: sph.MatrixInfo{
			Shape: sph.Shape{
				Row: intrinsicFile.Camera_Matrix.Rows,
				Col: intrinsicFile.Camera_Matrix.Cols,
			},
			Data: cameraData,
		},
	}
	if _, err := intrinsics.Matrix(); err != nil {
		return nil, errors.Wrapf(err, "camera matrix in %s", file)
	}
	return intrinsics, nil
}
