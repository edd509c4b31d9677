package encode

import (
	"math"
	"testing"

	"github.com/ayusman/posecast/internal/detector"
)

const epsilon = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func cornerPoints() []detector.Point3D {
	return []detector.Point3D{
		{X: 0.1, Y: 0.2, Z: 0.7},
		{X: 0.5, Y: 0.5, Z: -0.9},
		{X: 0.9, Y: 0.8, Z: 0.1},
	}
}

func TestExtract_HeightRepeatsWidth(t *testing.T) {
	box, center := Extract(cornerPoints(), 0, 0, Normalized, false)

	// The y-extent is 0.6, but the box height is the x-extent.
	if box.Width != box.Height {
		t.Errorf("Width %v != Height %v", box.Width, box.Height)
	}
	if !near(box.Width, 0.8) {
		t.Errorf("Width = %v, want 0.8", box.Width)
	}
	if !near(box.XMin, 0.1) || !near(box.YMin, 0.2) {
		t.Errorf("min = (%v, %v), want (0.1, 0.2)", box.XMin, box.YMin)
	}
	if !near(center.X, 0.5) || !near(center.Y, 0.6) {
		t.Errorf("center = %v, want (0.5, 0.6)", center)
	}
}

func TestExtract_CorrectHeight(t *testing.T) {
	box, center := Extract(cornerPoints(), 0, 0, Normalized, true)

	if !near(box.Height, 0.6) {
		t.Errorf("Height = %v, want 0.6", box.Height)
	}
	if !near(center.X, 0.5) || !near(center.Y, 0.5) {
		t.Errorf("center = %v, want (0.5, 0.5)", center)
	}
}

func TestExtract_PixelScaling(t *testing.T) {
	box, center := Extract(cornerPoints(), 200, 100, Pixel, false)

	if !near(box.XMin, 20) || !near(box.YMin, 20) {
		t.Errorf("min = (%v, %v), want (20, 20)", box.XMin, box.YMin)
	}
	if !near(box.Width, 160) || box.Height != box.Width {
		t.Errorf("size = %vx%v, want 160x160", box.Width, box.Height)
	}
	if !near(center.X, 100) || !near(center.Y, 100) {
		t.Errorf("center = %v, want (100, 100)", center)
	}

	corrected, _ := Extract(cornerPoints(), 200, 100, Pixel, true)
	if !near(corrected.Height, 60) {
		t.Errorf("corrected Height = %v, want 60", corrected.Height)
	}
}

func TestExtract_IgnoresZ(t *testing.T) {
	a, _ := Extract(cornerPoints(), 0, 0, RealWorld, true)

	pts := cornerPoints()
	for i := range pts {
		pts[i].Z *= 100
	}
	b, _ := Extract(pts, 0, 0, RealWorld, true)

	if a != b {
		t.Errorf("z changed the box: %v vs %v", a, b)
	}
}

func TestExtract_SinglePointAndEmpty(t *testing.T) {
	box, center := Extract([]detector.Point3D{{X: 0.4, Y: 0.3}}, 0, 0, Normalized, false)
	if box.Width != 0 || box.Height != 0 || !near(center.X, 0.4) || !near(center.Y, 0.3) {
		t.Errorf("single point box = %v, center = %v", box, center)
	}

	box, center = Extract(nil, 640, 480, Pixel, false)
	if box != (BoundingBox{}) || center.X != 0 || center.Y != 0 {
		t.Errorf("empty box = %v, center = %v", box, center)
	}
}
