package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	subjects []Subject
	err      error
	calls    int
	closed   bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetSubjects sets the subjects that will be returned by Detect.
func (m *MockDetector) SetSubjects(subjects []Subject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = subjects
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured subjects or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.subjects, nil
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// ThumbsUpLandmarks returns a preset hand representing a thumbs up gesture.
// The thumb is extended upward while other fingers are curled.
func ThumbsUpLandmarks() Subject {
	points := make([]Point3D, NumHandLandmarks)

	points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended upward (pointing up, Y decreases going up)
	points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	// Remaining fingers curled toward the palm
	points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return Subject{Label: "Right", Score: 0.95, Points: points}
}

// OpenPalmLandmarks returns a preset hand representing an open palm gesture.
// All fingers are extended outward.
func OpenPalmLandmarks() Subject {
	points := make([]Point3D, NumHandLandmarks)

	points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return Subject{Label: "Left", Score: 0.92, Points: points}
}

// StandingPoseLandmarks returns a preset body standing upright, arms at the
// sides, facing the camera. Face landmarks report lower visibility than limbs.
func StandingPoseLandmarks() Subject {
	points := make([]Point3D, NumBodyLandmarks)
	vis := func(v float64) *float64 { return &v }

	// Face
	points[Nose] = Point3D{X: 0.50, Y: 0.15, Z: -0.30, Visibility: vis(0.99)}
	points[LeftEyeInner] = Point3D{X: 0.51, Y: 0.13, Z: -0.29, Visibility: vis(0.98)}
	points[LeftEye] = Point3D{X: 0.52, Y: 0.13, Z: -0.29, Visibility: vis(0.98)}
	points[LeftEyeOuter] = Point3D{X: 0.53, Y: 0.13, Z: -0.29, Visibility: vis(0.97)}
	points[RightEyeInner] = Point3D{X: 0.49, Y: 0.13, Z: -0.29, Visibility: vis(0.98)}
	points[RightEye] = Point3D{X: 0.48, Y: 0.13, Z: -0.29, Visibility: vis(0.98)}
	points[RightEyeOuter] = Point3D{X: 0.47, Y: 0.13, Z: -0.29, Visibility: vis(0.97)}
	points[LeftEar] = Point3D{X: 0.55, Y: 0.14, Z: -0.15, Visibility: vis(0.90)}
	points[RightEar] = Point3D{X: 0.45, Y: 0.14, Z: -0.15, Visibility: vis(0.90)}
	points[MouthLeft] = Point3D{X: 0.51, Y: 0.18, Z: -0.27, Visibility: vis(0.99)}
	points[MouthRight] = Point3D{X: 0.49, Y: 0.18, Z: -0.27, Visibility: vis(0.99)}

	// Arms hanging at the sides
	points[LeftShoulder] = Point3D{X: 0.60, Y: 0.28, Z: -0.10, Visibility: vis(0.99)}
	points[RightShoulder] = Point3D{X: 0.40, Y: 0.28, Z: -0.10, Visibility: vis(0.99)}
	points[LeftElbow] = Point3D{X: 0.63, Y: 0.42, Z: -0.08, Visibility: vis(0.95)}
	points[RightElbow] = Point3D{X: 0.37, Y: 0.42, Z: -0.08, Visibility: vis(0.95)}
	points[LeftWrist] = Point3D{X: 0.64, Y: 0.55, Z: -0.10, Visibility: vis(0.92)}
	points[RightWrist] = Point3D{X: 0.36, Y: 0.55, Z: -0.10, Visibility: vis(0.92)}
	points[LeftPinky] = Point3D{X: 0.65, Y: 0.58, Z: -0.11, Visibility: vis(0.88)}
	points[RightPinky] = Point3D{X: 0.35, Y: 0.58, Z: -0.11, Visibility: vis(0.88)}
	points[LeftIndex] = Point3D{X: 0.64, Y: 0.59, Z: -0.12, Visibility: vis(0.88)}
	points[RightIndex] = Point3D{X: 0.36, Y: 0.59, Z: -0.12, Visibility: vis(0.88)}
	points[LeftThumb] = Point3D{X: 0.63, Y: 0.57, Z: -0.11, Visibility: vis(0.87)}
	points[RightThumb] = Point3D{X: 0.37, Y: 0.57, Z: -0.11, Visibility: vis(0.87)}

	// Legs
	points[LeftHip] = Point3D{X: 0.56, Y: 0.58, Z: 0.00, Visibility: vis(0.99)}
	points[RightHip] = Point3D{X: 0.44, Y: 0.58, Z: 0.00, Visibility: vis(0.99)}
	points[LeftKnee] = Point3D{X: 0.56, Y: 0.75, Z: 0.02, Visibility: vis(0.96)}
	points[RightKnee] = Point3D{X: 0.44, Y: 0.75, Z: 0.02, Visibility: vis(0.96)}
	points[LeftAnkle] = Point3D{X: 0.56, Y: 0.91, Z: 0.05, Visibility: vis(0.90)}
	points[RightAnkle] = Point3D{X: 0.44, Y: 0.91, Z: 0.05, Visibility: vis(0.90)}
	points[LeftHeel] = Point3D{X: 0.56, Y: 0.93, Z: 0.06, Visibility: vis(0.85)}
	points[RightHeel] = Point3D{X: 0.44, Y: 0.93, Z: 0.06, Visibility: vis(0.85)}
	points[LeftFootIndex] = Point3D{X: 0.57, Y: 0.95, Z: 0.00, Visibility: vis(0.85)}
	points[RightFootIndex] = Point3D{X: 0.43, Y: 0.95, Z: 0.00, Visibility: vis(0.85)}

	return Subject{Score: 0.97, Points: points}
}
