package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	projectFile := flag.String("project", "camera.json", "camera project file")
	detectionsFile := flag.String("detections", "", "detections file (.json array or tab separated .csv)")
	estimator := flag.String("estimator", "", "distance estimator, overrides the project file (pixel-height, cartesian)")
	withPoses := flag.Bool("poses", false, "decompose each homography into pose candidates")
	refine := flag.Bool("refine", false, "refine planar poses by minimising reprojection error")
	flag.Parse()

	logger, cleanup, err := initLogger(getEnv("ROBOTD_LOG_DIR", "debug"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer cleanup()

	logger.Info("robotd vision", "version", Version)

	if *detectionsFile == "" {
		logger.Error("Usage: robotd-vision -project camera.json -detections detections.json")
		return 2
	}

	app, err := NewApp(*projectFile, logger)
	if err != nil {
		logger.Error("Failed to load project", "file", *projectFile, "error", err)
		return 1
	}
	if *estimator != "" {
		if err := app.SetEstimator(*estimator); err != nil {
			logger.Error("Bad estimator", "error", err)
			return 2
		}
	}

	dets, unreadable, err := ReadDetections(*detectionsFile, logger)
	if err != nil {
		logger.Error("Failed to read detections", "file", *detectionsFile, "error", err)
		return 1
	}
	logger.Info("Processing detections", "count", len(dets))

	report := app.Process(dets, *withPoses, *refine)
	report.Rejected = append(unreadable, report.Rejected...)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Error("Failed to write report", "error", err)
		return 1
	}
	return 0
}
