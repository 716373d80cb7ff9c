package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"robotd/imports"
	sph "robotd/photogrammetry"
)

const (
	planarDecomposer = "planar"
	svdDecomposer    = "svd"
)

type refineFunc func(h sph.Homography, intrinsics sph.Intrinsics, size sph.Size, c sph.Candidate) (sph.Candidate, float64, error)

// App turns the detections of one camera into tokens and poses.
type App struct {
	project     project
	focalLength float64
	estimator   sph.DistanceFunc
	refine      refineFunc
	logger      *slog.Logger
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func readJSON(file string, v any) error {
	jsonFile, err := os.Open(file)
	if err != nil {
		return err
	}
	defer jsonFile.Close()

	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return errors.Wrapf(err, "reading %s", file)
	}
	if err := json.Unmarshal(byteValue, v); err != nil {
		return errors.Wrapf(err, "parsing %s", file)
	}
	return nil
}

// NewApp loads the camera project file. An intrinsics_file entry, resolved
// relative to the project file, replaces the inline intrinsics.
func NewApp(projectFile string, logger *slog.Logger) (*App, error) {
	var proj project
	if err := readJSON(projectFile, &proj); err != nil {
		return nil, err
	}

	if proj.IntrinsicsFile != "" {
		path := proj.IntrinsicsFile
		if !filepath.IsAbs(path) {
			projectDirAbs, err := filepath.Abs(filepath.Dir(projectFile))
			if err != nil {
				return nil, errors.Wrapf(err, "resolving intrinsics_file %s", path)
			}
			path = filepath.Join(projectDirAbs, path)
		}
		intrinsics, err := imports.ReadIntrinsicsXML(path)
		if err != nil {
			return nil, err
		}
		if proj.Intrinsics.FocalLength > 0 {
			intrinsics.FocalLength = proj.Intrinsics.FocalLength
		}
		proj.Intrinsics = *intrinsics
	}

	focalLength, err := proj.Intrinsics.Focal()
	if err != nil {
		return nil, err
	}
	if proj.MarkerSize.Width <= 0 || proj.MarkerSize.Height <= 0 {
		return nil, errors.Wrapf(sph.ErrInvalidCamera, "marker_size %vx%v", proj.MarkerSize.Width, proj.MarkerSize.Height)
	}

	proj.Estimator = getEnv("ROBOTD_ESTIMATOR", proj.Estimator)
	estimator, err := sph.LookupDistance(proj.Estimator)
	if err != nil {
		return nil, err
	}
	switch proj.Decomposer {
	case "":
		proj.Decomposer = planarDecomposer
	case planarDecomposer, svdDecomposer:
	default:
		return nil, errors.Errorf("unknown decomposer %q", proj.Decomposer)
	}

	logger.Debug("Loaded project", "file", projectFile, "focal_length", focalLength,
		"estimator", proj.Estimator, "decomposer", proj.Decomposer)
	return &App{project: proj, focalLength: focalLength, estimator: estimator, refine: sph.Refine, logger: logger}, nil
}

// SetEstimator overrides the distance estimator from the project file.
func (a *App) SetEstimator(name string) error {
	estimator, err := sph.LookupDistance(name)
	if err != nil {
		return err
	}
	a.estimator = estimator
	a.project.Estimator = name
	return nil
}

func (a *App) sizeOf(id int) sph.Size {
	if size, ok := a.project.MarkerSizes[id]; ok {
		return size
	}
	return a.project.MarkerSize
}

func (a *App) decomposer(id int) sph.Decomposer {
	if a.project.Decomposer == svdDecomposer {
		return sph.SVDDecomposer{}
	}
	return sph.PlanarDecomposer{Size: a.sizeOf(id)}
}

// Tokens builds a token per detection. Failed detections are logged and
// reported, the rest of the frame is unaffected.
func (a *App) Tokens(dets []sph.Detection) ([]sph.Token, []Rejected) {
	tokens := make([]sph.Token, 0, len(dets))
	var rejected []Rejected
	for _, res := range sph.NewTokens(dets, a.sizeOf, a.focalLength, a.estimator) {
		if res.Err != nil {
			a.logger.Warn("Dropping detection", "id", res.Detection.ID, "error", res.Err)
			rejected = append(rejected, Rejected{ID: res.Detection.ID, Error: res.Err.Error()})
			continue
		}
		a.logger.Debug("Built token", "token", res.Token.String(), "distance", res.Token.Distance)
		tokens = append(tokens, res.Token)
	}
	return tokens, rejected
}

// Poses decomposes the homography of every detection. Refinement only
// applies to the planar decomposer, whose candidates are metric marker poses.
func (a *App) Poses(dets []sph.Detection, refine bool) ([]PoseJSON, []Rejected) {
	if refine && a.project.Decomposer != planarDecomposer {
		a.logger.Warn("Refinement needs the planar decomposer, skipping", "decomposer", a.project.Decomposer)
		refine = false
	}

	var poses []PoseJSON
	var rejected []Rejected
	for _, det := range dets {
		pose, err := a.pose(det, refine)
		if err != nil {
			a.logger.Warn("No pose for detection", "id", det.ID, "error", err)
			rejected = append(rejected, Rejected{ID: det.ID, Error: err.Error()})
			continue
		}
		poses = append(poses, pose)
	}
	return poses, rejected
}

func (a *App) pose(det sph.Detection, refine bool) (PoseJSON, error) {
	h, err := sph.NewHomography(det.Homography)
	if err != nil {
		return PoseJSON{}, err
	}
	candidates, err := a.decomposer(det.ID).Decompose(h, a.project.Intrinsics)
	if err != nil {
		return PoseJSON{}, err
	}

	pose := PoseJSON{ID: det.ID}
	for _, c := range candidates {
		var reprojection *float64
		if refine {
			refined, rms, err := a.refine(h, a.project.Intrinsics, a.sizeOf(det.ID), c)
			if err != nil {
				a.logger.Warn("Keeping unrefined candidate", "id", det.ID, "error", err)
			} else {
				c, reprojection = refined, &rms
			}
		}
		azimuth, elevation := sph.Bearing(c.Translation)
		a.logger.Debug("Pose candidate", "id", det.ID,
			"rotation", fmt.Sprintf("%v", sph.FormatMatrixPrint(c.Rotation.Dense())), "translation", c.Translation)
		pose.Candidates = append(pose.Candidates, CandidateJSON{
			Candidate:         c,
			CameraPosition:    sph.CameraPosition(c),
			Azimuth:           sph.Rad2Degrees(azimuth),
			Elevation:         sph.Rad2Degrees(elevation),
			ReprojectionError: reprojection,
		})
	}
	return pose, nil
}

// Process runs a frame of detections through the whole pipeline.
func (a *App) Process(dets []sph.Detection, withPoses bool, refine bool) Report {
	tokens, rejected := a.Tokens(dets)
	report := Report{Tokens: tokens, Rejected: rejected}
	if withPoses {
		poses, failed := a.Poses(dets, refine)
		report.Poses = poses
		report.Rejected = append(report.Rejected, failed...)
	}
	return report
}

// ReadDetections loads detections from a JSON array or a tab separated file.
func ReadDetections(file string, logger *slog.Logger) ([]sph.Detection, []Rejected, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".csv", ".tsv", ".txt":
		dets, bad, err := imports.ReadDetectionsCSV(file)
		if err != nil {
			return nil, nil, err
		}
		var rejected []Rejected
		for _, row := range bad {
			logger.Warn("Skipping detection row", "file", file, "line", row.Line, "error", row.Err)
			rejected = append(rejected, Rejected{ID: -1, Line: row.Line, Error: row.Err.Error()})
		}
		return dets, rejected, nil
	default:
		var dets []sph.Detection
		if err := readJSON(file, &dets); err != nil {
			return nil, nil, err
		}
		return dets, nil, nil
	}
}
