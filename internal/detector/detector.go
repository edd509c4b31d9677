package detector

import "gocv.io/x/gocv"

// Detector defines the interface for landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected subjects in model order.
	// Returns an empty slice if nothing is detected.
	Detect(frame *gocv.Mat) ([]Subject, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for the external landmark model.
type Config struct {
	// Kind selects the hand or body model.
	Kind Kind

	// StaticMode treats every frame as an unrelated image (no tracking).
	StaticMode bool

	// MaxSubjects is the maximum number of hands to detect. Body tracking is always 1.
	MaxSubjects int

	// ModelComplexity is the model size, 0 (lite) to 2 (heavy).
	ModelComplexity int

	// SmoothLandmarks enables temporal filtering of body landmarks.
	SmoothLandmarks bool

	// EnableSegmentation requests a segmentation mask (body only).
	EnableSegmentation bool

	// SmoothSegmentation enables temporal filtering of the mask.
	SmoothSegmentation bool

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// WorldLandmarks requests model-space coordinates in meters instead of
	// normalized image coordinates.
	WorldLandmarks bool

	// Script overrides the location of the landmark service script.
	Script string

	// Python overrides the interpreter used to run the script.
	Python string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Kind:               KindHand,
		MaxSubjects:        1,
		ModelComplexity:    1,
		SmoothLandmarks:    true,
		SmoothSegmentation: true,
		MinConfidence:      0.5,
		MinTrackingConf:    0.5,
	}
}
