package stream

import (
	"time"

	"github.com/benbjohnson/clock"
)

// FPSCounter reports the average frame rate since Start, truncated to an
// integer.
type FPSCounter struct {
	clock  clock.Clock
	start  time.Time
	frames int
}

// NewFPSCounter returns a counter reading time from clk.
func NewFPSCounter(clk clock.Clock) *FPSCounter {
	return &FPSCounter{clock: clk, start: clk.Now()}
}

// Start resets the frame count and the reference time.
func (c *FPSCounter) Start() {
	c.start = c.clock.Now()
	c.frames = 0
}

// Tick counts one frame and returns frames / elapsed seconds.
// It returns 0 until any time has elapsed.
func (c *FPSCounter) Tick() int {
	c.frames++
	elapsed := c.clock.Since(c.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return int(float64(c.frames) / elapsed)
}

// Frames returns the number of frames counted since Start.
func (c *FPSCounter) Frames() int {
	return c.frames
}
