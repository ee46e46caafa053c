package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for face, expression and pose landmark
// detection.
type Detector interface {
	// Detect analyzes a video frame. Parts that were not found are left nil
	// or empty in the Result.
	Detect(frame *gocv.Mat) (Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// MinVisibility is the pose landmark visibility below which shoulders and
	// wrists are treated as missing.
	MinVisibility float64

	// IdleTimeout stops the landmark service after this long without a frame.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		MinVisibility:   0.5,
		IdleTimeout:     30 * time.Second,
	}
}
