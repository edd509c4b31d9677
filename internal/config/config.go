// Package config loads the YAML document that drives a posecast run.
//
// The document has two required sections: `config` describes the camera,
// the landmark model and the sink port; `output` describes the record layout.
// Every key is optional and falls back to its default.
package config

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/posecast/internal/capture"
	"github.com/ayusman/posecast/internal/detector"
	"github.com/ayusman/posecast/internal/encode"
)

// ErrMissingSection is returned when a required top-level section is absent.
var ErrMissingSection = errors.New("missing config section")

// Config is a fully loaded document.
type Config struct {
	Tracker Tracker
	Output  Output
	// Source is the document text the config was parsed from.
	Source string
}

// Tracker is the `config` section.
type Tracker struct {
	Tracker     detector.Kind `yaml:"tracker"`
	CameraIndex int           `yaml:"camera_index"`
	Port        int           `yaml:"port"`

	ConfigFrame bool `yaml:"config_frame"`
	FrameWidth  int  `yaml:"frame_width"`
	FrameHeight int  `yaml:"frame_height"`

	DisplayVideo     bool `yaml:"display_video"`
	DisplayVideoSize int  `yaml:"display_video_size"`
	DrawPose         bool `yaml:"draw_pose"`

	StaticMode             bool    `yaml:"static_mode"`
	MaxHands               int     `yaml:"max_hands"`
	ModelComplexity        int     `yaml:"model_complexity"`
	SmoothLandmarks        bool    `yaml:"smooth_landmarks"`
	EnableSegmentation     bool    `yaml:"enable_segmentation"`
	SmoothSegmentation     bool    `yaml:"smooth_segmentation"`
	MinDetectionConfidence float64 `yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `yaml:"min_tracking_confidence"`

	MaxReadFailures int    `yaml:"max_read_failures"`
	Pipelined       bool   `yaml:"pipelined"`
	DetectorScript  string `yaml:"detector_script"`
	Python          string `yaml:"python"`
	RecordPath      string `yaml:"record_path"`
	MirrorAddr      string `yaml:"mirror_addr"`
	MirrorStaticDir string `yaml:"mirror_static_dir"`
}

// Output is the `output` section.
type Output struct {
	IncludeFPS        bool `yaml:"include_fps"`
	Type              bool `yaml:"type"`
	IncludeHeight     bool `yaml:"include_height"`
	IncludeWidth      bool `yaml:"include_width"`
	IncludeBox        bool `yaml:"include_box"`
	IncludeCenter     bool `yaml:"include_center"`
	IncludeVisibility bool `yaml:"include_visibility"`
	FlipX             bool `yaml:"flip_x"`
	FlipY             bool `yaml:"flip_y"`
	PrintData         bool `yaml:"print_data"`

	MirrorLabel      bool                    `yaml:"mirror_label"`
	CorrectBoxHeight bool                    `yaml:"correct_box_height"`
	BoxFormat        encode.BoxFormat        `yaml:"box_format"`
	DimsPosition     encode.DimsPosition     `yaml:"dims_position"`
	Coordinates      encode.CoordinateSystem `yaml:"coordinates"`
	Round            int                     `yaml:"round"`

	// Landmarks is read from `lm_list`, where an explicit null differs from
	// an absent key.
	Landmarks encode.IndexSubset `yaml:"-"`
}

// Default returns the configuration used for keys the document leaves out.
func Default() Config {
	return Config{
		Tracker: Tracker{
			Tracker:                detector.KindHand,
			Port:                   5052,
			FrameWidth:             capture.DefaultWidth,
			FrameHeight:            capture.DefaultHeight,
			DisplayVideoSize:       1,
			DrawPose:               true,
			MaxHands:               1,
			ModelComplexity:        1,
			SmoothLandmarks:        true,
			SmoothSegmentation:     true,
			MinDetectionConfidence: 0.5,
			MinTrackingConfidence:  0.5,
			MaxReadFailures:        30,
		},
		Output: Output{
			MirrorLabel: true,
			Coordinates: encode.Pixel,
			Round:       encode.NoRounding,
			Landmarks:   encode.IndexSubset{Mode: encode.IndexAll},
		},
	}
}

// Load reads, decodes and validates the document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("config file %s does not exist", path)
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes and validates a document.
func Parse(data []byte) (*Config, error) {
	var doc struct {
		Config yaml.Node `yaml:"config"`
		Output yaml.Node `yaml:"output"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse yaml")
	}

	cfg := Default()
	if err := decodeSection("config", &doc.Config, &cfg.Tracker); err != nil {
		return nil, err
	}
	if err := decodeSection("output", &doc.Output, &cfg.Output); err != nil {
		return nil, err
	}

	subset, err := landmarkSubset(&doc.Output)
	if err != nil {
		return nil, err
	}
	cfg.Output.Landmarks = subset
	cfg.Source = string(data)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeSection(name string, node *yaml.Node, out interface{}) error {
	if node.Kind == 0 {
		return errors.Wrapf(ErrMissingSection, "%q", name)
	}
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("section %q must be a mapping (line %d)", name, node.Line)
	}
	if err := node.Decode(out); err != nil {
		return errors.Wrapf(err, "section %q", name)
	}
	return nil
}

// landmarkSubset interprets `lm_list`: null selects nothing, an absent key or
// empty list selects every landmark, anything else is used verbatim.
func landmarkSubset(output *yaml.Node) (encode.IndexSubset, error) {
	for i := 0; i+1 < len(output.Content); i += 2 {
		if output.Content[i].Value != "lm_list" {
			continue
		}
		value := output.Content[i+1]
		if value.Kind == yaml.ScalarNode && value.ShortTag() == "!!null" {
			return encode.IndexSubset{Mode: encode.IndexNone}, nil
		}

		var indices []int
		if err := value.Decode(&indices); err != nil {
			return encode.IndexSubset{}, errors.Wrapf(err, "lm_list (line %d)", value.Line)
		}
		if len(indices) == 0 {
			return encode.IndexSubset{Mode: encode.IndexAll}, nil
		}
		return encode.IndexSubset{Mode: encode.IndexList, Indices: indices}, nil
	}
	return encode.IndexSubset{Mode: encode.IndexAll}, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	t := c.Tracker

	if t.Port < 1 || t.Port > 65535 {
		err = multierr.Append(err, errors.Errorf("port %d out of range 1-65535", t.Port))
	}
	if t.CameraIndex < 0 {
		err = multierr.Append(err, errors.Errorf("camera_index %d must not be negative", t.CameraIndex))
	}
	if t.FrameWidth <= 0 || t.FrameHeight <= 0 {
		err = multierr.Append(err, errors.Errorf("frame size %dx%d must be positive", t.FrameWidth, t.FrameHeight))
	}
	if t.DisplayVideoSize < 1 {
		err = multierr.Append(err, errors.Errorf("display_video_size %d must be at least 1", t.DisplayVideoSize))
	}
	if t.MaxHands < 1 {
		err = multierr.Append(err, errors.Errorf("max_hands %d must be at least 1", t.MaxHands))
	}
	if t.ModelComplexity < 0 || t.ModelComplexity > 2 {
		err = multierr.Append(err, errors.Errorf("model_complexity %d out of range 0-2", t.ModelComplexity))
	}
	if t.MinDetectionConfidence < 0 || t.MinDetectionConfidence > 1 {
		err = multierr.Append(err, errors.Errorf("min_detection_confidence %v out of range 0-1", t.MinDetectionConfidence))
	}
	if t.MinTrackingConfidence < 0 || t.MinTrackingConfidence > 1 {
		err = multierr.Append(err, errors.Errorf("min_tracking_confidence %v out of range 0-1", t.MinTrackingConfidence))
	}
	if t.MaxReadFailures < 0 {
		err = multierr.Append(err, errors.Errorf("max_read_failures %d must not be negative", t.MaxReadFailures))
	}

	if r := c.Output.Round; r < encode.NoRounding || r > encode.MaxPrecision {
		err = multierr.Append(err, errors.Errorf("round %d out of range %d-%d", r, encode.NoRounding, encode.MaxPrecision))
	}

	n := t.Tracker.NumLandmarks()
	for _, idx := range c.Output.Landmarks.Indices {
		if idx < 0 || idx >= n {
			err = multierr.Append(err, errors.Wrapf(encode.ErrLandmarkIndex,
				"lm_list index %d, %s has %d landmarks", idx, t.Tracker, n))
		}
	}
	return err
}

// Detector returns the landmark model settings.
func (c *Config) Detector() detector.Config {
	t := c.Tracker
	maxSubjects := t.MaxHands
	if t.Tracker == detector.KindBody {
		maxSubjects = 1
	}
	return detector.Config{
		Kind:               t.Tracker,
		StaticMode:         t.StaticMode,
		MaxSubjects:        maxSubjects,
		ModelComplexity:    t.ModelComplexity,
		SmoothLandmarks:    t.SmoothLandmarks,
		EnableSegmentation: t.EnableSegmentation,
		SmoothSegmentation: t.SmoothSegmentation,
		MinConfidence:      t.MinDetectionConfidence,
		MinTrackingConf:    t.MinTrackingConfidence,
		WorldLandmarks:     c.Output.Coordinates == encode.RealWorld,
		Script:             t.DetectorScript,
		Python:             t.Python,
	}
}

// Capture returns the camera settings.
func (c *Config) Capture() capture.Config {
	return capture.Config{
		DeviceID:       c.Tracker.CameraIndex,
		Width:          c.Tracker.FrameWidth,
		Height:         c.Tracker.FrameHeight,
		ConfigureFrame: c.Tracker.ConfigFrame,
	}
}

// Profile returns the record profile for the configured tracker.
func (c *Config) Profile() encode.Profile {
	return encode.ProfileFor(c.Tracker.Tracker)
}

// Encode returns the record assembly options.
func (c *Config) Encode() encode.Options {
	o := c.Output
	return encode.Options{
		Transformer: encode.Transformer{
			System:    o.Coordinates,
			FlipX:     o.FlipX,
			FlipY:     o.FlipY,
			Precision: o.Round,
		},
		IncludeFPS:        o.IncludeFPS,
		IncludeLabel:      o.Type,
		IncludeHeight:     o.IncludeHeight,
		IncludeWidth:      o.IncludeWidth,
		IncludeBox:        o.IncludeBox,
		IncludeCenter:     o.IncludeCenter,
		IncludeVisibility: o.IncludeVisibility,
		MirrorLabel:       o.MirrorLabel,
		CorrectBoxHeight:  o.CorrectBoxHeight,
		BoxFormat:         o.BoxFormat,
		DimsPosition:      o.DimsPosition,
		Landmarks:         o.Landmarks,
	}
}
