package main

import (
	"github.com/golang/geo/r3"
	sph "robotd/photogrammetry"
)

type project struct {
	Intrinsics     sph.Intrinsics   `json:"intrinsics"`
	IntrinsicsFile string           `json:"intrinsics_file"`
	MarkerSize     sph.Size         `json:"marker_size"`
	MarkerSizes    map[int]sph.Size `json:"marker_sizes"`
	Estimator      string           `json:"estimator"`
	Decomposer     string           `json:"decomposer"`
}

type Rejected struct {
	ID    int    `json:"id"`
	Line  int    `json:"line,omitempty"`
	Error string `json:"error"`
}

type CandidateJSON struct {
	sph.Candidate
	CameraPosition    r3.Vector `json:"camera_position"`
	Azimuth           float64   `json:"azimuth"`
	Elevation         float64   `json:"elevation"`
	ReprojectionError *float64  `json:"reprojection_error,omitempty"`
}

type PoseJSON struct {
	ID         int             `json:"id"`
	Candidates []CandidateJSON `json:"candidates"`
}

type Report struct {
	Tokens   []sph.Token `json:"tokens"`
	Poses    []PoseJSON  `json:"poses,omitempty"`
	Rejected []Rejected  `json:"rejected,omitempty"`
}
