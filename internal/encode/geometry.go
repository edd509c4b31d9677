package encode

import (
	"github.com/golang/geo/r2"

	"github.com/ayusman/posecast/internal/detector"
)

// BoundingBox is the x/y extent of a subject in the configured coordinate system.
type BoundingBox struct {
	XMin   float64
	YMin   float64
	Width  float64
	Height float64
}

// Extract computes the bounding box and center point of a subject from its
// native landmarks. Pixel mode scales x by w and y by h before the min/max
// reduction; z never contributes.
//
// Unless correctHeight is set, Height repeats Width: consumers of the existing
// stream decode the box that way.
func Extract(points []detector.Point3D, w, h int, system CoordinateSystem, correctHeight bool) (BoundingBox, r2.Point) {
	if len(points) == 0 {
		return BoundingBox{}, r2.Point{}
	}

	sx, sy := 1.0, 1.0
	if system == Pixel {
		sx, sy = float64(w), float64(h)
	}

	scaled := make([]r2.Point, len(points))
	for i, p := range points {
		scaled[i] = r2.Point{X: p.X * sx, Y: p.Y * sy}
	}
	extent := r2.RectFromPoints(scaled...)

	box := BoundingBox{
		XMin:  extent.X.Lo,
		YMin:  extent.Y.Lo,
		Width: extent.X.Length(),
	}
	box.Height = box.Width
	if correctHeight {
		box.Height = extent.Y.Length()
	}

	center := r2.Point{
		X: box.XMin + box.Width/2,
		Y: box.YMin + box.Height/2,
	}
	return box, center
}
