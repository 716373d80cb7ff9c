package imports

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
	sph "robotd/photogrammetry"
)

// RejectedRow is a CSV row that could not be parsed into a detection.
type RejectedRow struct {
	Line int
	Err  error
}

// ReadDetectionsCSV reads tab separated detections, one per line:
//
//	id  certainty  h00 h01 h02 h10 h11 h12 h20 h21 h22
//
// Lines starting with '#' are comments. Rows that cannot be parsed are
// reported but do not stop the rest of the file from loading.
func ReadDetectionsCSV(file string) ([]sph.Detection, []RejectedRow, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ParseDetectionsCSV(f)
}

func ParseDetectionsCSV(r io.Reader) ([]sph.Detection, []RejectedRow, error) {
	csvReader := csv.NewReader(r)
	csvReader.Comma = '\t'
	csvReader.Comment = '#'
	csvReader.FieldsPerRecord = -1

	var detections []sph.Detection
	var rejected []RejectedRow
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rejected = append(rejected, RejectedRow{Line: parseErr.Line, Err: err})
				continue
			}
			return nil, nil, err
		}
		line, _ := csvReader.FieldPos(0)
		det, err := parseDetection(record)
		if err != nil {
			rejected = append(rejected, RejectedRow{Line: line, Err: err})
			continue
		}
		detections = append(detections, det)
	}
	return detections, rejected, nil
}

func parseDetection(record []string) (sph.Detection, error) {
	if len(record) < 2 {
		return sph.Detection{}, errors.Wrapf(sph.ErrMalformedDetection, "%d fields", len(record))
	}
	id, err := strconv.Atoi(record[0])
	if err != nil {
		return sph.Detection{}, errors.Wrap(sph.ErrMalformedDetection, err.Error())
	}
	certainty, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return sph.Detection{}, errors.Wrap(sph.ErrMalformedDetection, err.Error())
	}
	if math.IsNaN(certainty) || math.IsInf(certainty, 0) {
		return sph.Detection{}, errors.Wrapf(sph.ErrMalformedDetection, "certainty %q", record[1])
	}
	homography := make([]float64, 0, len(record)-2)
	for _, field := range record[2:] {
		val, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return sph.Detection{}, errors.Wrap(sph.ErrMalformedDetection, err.Error())
		}
		homography = append(homography, val)
	}
	return sph.Detection{ID: id, Certainty: certainty, Homography: homography}, nil
}
