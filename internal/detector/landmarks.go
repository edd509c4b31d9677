// Package detector provides the landmark detection boundary: the Detector
// interface, the subject and landmark types it produces, and adapters for the
// external pose/hand estimation model.
package detector

import (
	"strings"

	"github.com/pkg/errors"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist            = 0
	ThumbCMC         = 1
	ThumbMCP         = 2
	ThumbIP          = 3
	ThumbTip         = 4
	IndexMCP         = 5
	IndexPIP         = 6
	IndexDIP         = 7
	IndexTip         = 8
	MiddleMCP        = 9
	MiddlePIP        = 10
	MiddleDIP        = 11
	MiddleTip        = 12
	RingMCP          = 13
	RingPIP          = 14
	RingDIP          = 15
	RingTip          = 16
	PinkyMCP         = 17
	PinkyPIP         = 18
	PinkyDIP         = 19
	PinkyTip         = 20
	NumHandLandmarks = 21
)

// Body landmark indices following the MediaPipe pose convention.
const (
	Nose             = 0
	LeftEyeInner     = 1
	LeftEye          = 2
	LeftEyeOuter     = 3
	RightEyeInner    = 4
	RightEye         = 5
	RightEyeOuter    = 6
	LeftEar          = 7
	RightEar         = 8
	MouthLeft        = 9
	MouthRight       = 10
	LeftShoulder     = 11
	RightShoulder    = 12
	LeftElbow        = 13
	RightElbow       = 14
	LeftWrist        = 15
	RightWrist       = 16
	LeftPinky        = 17
	RightPinky       = 18
	LeftIndex        = 19
	RightIndex       = 20
	LeftThumb        = 21
	RightThumb       = 22
	LeftHip          = 23
	RightHip         = 24
	LeftKnee         = 25
	RightKnee        = 26
	LeftAnkle        = 27
	RightAnkle       = 28
	LeftHeel         = 29
	RightHeel        = 30
	LeftFootIndex    = 31
	RightFootIndex   = 32
	NumBodyLandmarks = 33
)

// Kind selects which model the detector runs and therefore what a Subject is.
type Kind int

const (
	// KindHand tracks up to N hands, each with a handedness label.
	KindHand Kind = iota
	// KindBody tracks a single body pose with per-landmark visibility.
	KindBody
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindHand:
		return "hand"
	case KindBody:
		return "body"
	default:
		return "unknown"
	}
}

// NumLandmarks returns how many landmarks a subject of this kind carries.
func (k Kind) NumLandmarks() int {
	if k == KindBody {
		return NumBodyLandmarks
	}
	return NumHandLandmarks
}

// ParseKind parses a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hand", "hands":
		return KindHand, nil
	case "body", "pose":
		return KindBody, nil
	}
	return KindHand, errors.Errorf("unknown tracker kind %q (want hand or body)", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Point3D is a single landmark in the model's native space: normalized image
// coordinates, or meters when world landmarks were requested.
type Point3D struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// Subject is one detected hand or body in a frame.
type Subject struct {
	Label  string    `json:"label,omitempty"` // handedness for hands, empty for bodies
	Score  float64   `json:"score"`
	Points []Point3D `json:"points"`
}
