// Package display shows captured frames in a local preview window.
package display

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned by Show for a frame with no pixels.
var ErrEmptyFrame = errors.New("empty frame")

// Title is the preview window title.
const Title = "posecast"

// ScaledSize returns the preview size for a frame size and a divisor.
// Divisors below 1 are treated as 1.
func ScaledSize(frameWidth, frameHeight, divisor int) image.Point {
	if divisor < 1 {
		divisor = 1
	}
	return image.Pt(frameWidth/divisor, frameHeight/divisor)
}

// Window is a resizing preview window. It must be used from a single goroutine.
type Window struct {
	window *gocv.Window
	size   image.Point
	scaled gocv.Mat
}

// NewWindow opens a window that shows frames at frameWidth/divisor by
// frameHeight/divisor.
func NewWindow(frameWidth, frameHeight, divisor int) *Window {
	return &Window{
		window: gocv.NewWindow(Title),
		size:   ScaledSize(frameWidth, frameHeight, divisor),
		scaled: gocv.NewMat(),
	}
}

// Show renders frame and pumps the window's event loop once.
func (w *Window) Show(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return ErrEmptyFrame
	}
	gocv.Resize(*frame, &w.scaled, w.size, 0, 0, gocv.InterpolationLinear)
	w.window.IMShow(w.scaled)
	w.window.WaitKey(1)
	return nil
}

// Close destroys the window.
func (w *Window) Close() error {
	w.scaled.Close()
	return w.window.Close()
}
