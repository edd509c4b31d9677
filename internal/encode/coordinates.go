// Package encode turns per-frame landmark detections into the ordered,
// positional records streamed to consumers: coordinate transformation,
// bounding-box geometry, record assembly and the list-literal wire format.
package encode

import (
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/ayusman/posecast/internal/detector"
)

// CoordinateSystem is the numeric domain of emitted landmark coordinates.
type CoordinateSystem int

const (
	// Pixel scales normalized coordinates by the frame size and floors them.
	Pixel CoordinateSystem = iota
	// Normalized emits the model's [0,1] image-relative coordinates.
	Normalized
	// RealWorld emits model-space coordinates in meters.
	RealWorld
)

const (
	// NoRounding disables rounding when used as a precision.
	NoRounding = -1
	// MaxPrecision is the most fractional digits a float64 can carry.
	// Larger precisions leave values unchanged.
	MaxPrecision = 15
)

// ParseCoordinateSystem parses a coordinate system name. Matching is
// case-insensitive on the substrings "pixel", "norm" and "real", so
// "Pixels" and "real_world" both work. A name matching none is an error.
func ParseCoordinateSystem(s string) (CoordinateSystem, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch {
	case name == "px" || strings.Contains(name, "pixel"):
		return Pixel, nil
	case strings.Contains(name, "norm"):
		return Normalized, nil
	case strings.Contains(name, "real") || name == "world":
		return RealWorld, nil
	}
	return Pixel, errors.Errorf("unknown coordinate system %q (want pixel, normalized or real_world)", s)
}

// String returns the canonical configuration name.
func (c CoordinateSystem) String() string {
	switch c {
	case Pixel:
		return "pixel"
	case Normalized:
		return "normalized"
	case RealWorld:
		return "real_world"
	default:
		return "unknown"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CoordinateSystem) UnmarshalText(text []byte) error {
	parsed, err := ParseCoordinateSystem(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c CoordinateSystem) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Transformer converts native landmark coordinates into the configured
// output coordinate system.
type Transformer struct {
	System CoordinateSystem
	FlipX  bool
	FlipY  bool
	// Precision is the number of fractional digits kept; negative disables rounding.
	Precision int
}

// Transform maps p into the output space for a w x h frame.
//
// Flips are defined on normalized [0,1] values: in pixel mode the flip is applied
// before scaling, otherwise to the value as expressed, followed by a re-round.
func (t Transformer) Transform(p detector.Point3D, w, h int) r3.Vector {
	if t.System == Pixel {
		x, y := p.X, p.Y
		if t.FlipX {
			x = flip(x)
		}
		if t.FlipY {
			y = flip(y)
		}
		return t.round(r3.Vector{
			X: math.Floor(x * float64(w)),
			Y: math.Floor(y * float64(h)),
			Z: math.Floor(p.Z * float64(w)),
		})
	}

	v := t.round(r3.Vector{X: p.X, Y: p.Y, Z: p.Z})
	if t.FlipX || t.FlipY {
		if t.FlipX {
			v.X = flip(v.X)
		}
		if t.FlipY {
			v.Y = flip(v.Y)
		}
		v = t.round(v)
	}
	return v
}

// Round applies the transformer's precision to a single value.
func (t Transformer) Round(v float64) float64 {
	return Round(v, t.Precision)
}

func (t Transformer) round(v r3.Vector) r3.Vector {
	return r3.Vector{X: t.Round(v.X), Y: t.Round(v.Y), Z: t.Round(v.Z)}
}

func flip(v float64) float64 {
	return 1 - v
}

// Round rounds v half away from zero to precision fractional digits.
// A negative precision, or one above MaxPrecision, returns v unchanged, as
// does a value too large to scale.
func Round(v float64, precision int) float64 {
	if precision < 0 || precision > MaxPrecision || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow10(precision)
	scaled := v * p
	if math.IsInf(scaled, 0) {
		return v
	}
	return math.Round(scaled) / p
}
