// Package stream runs the per-frame loop: capture a frame, detect landmarks,
// assemble and encode a record, and send it to the sink.
package stream

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"github.com/ayusman/posecast/internal/capture"
	"github.com/ayusman/posecast/internal/detector"
	"github.com/ayusman/posecast/internal/encode"
)

// ErrCaptureFailed is returned by Run when the camera keeps failing to
// produce frames.
var ErrCaptureFailed = errors.New("capture failed")

// Defaults for the capture failure policy.
const (
	DefaultMaxReadFailures = 30
	DefaultReadBackoff     = 10 * time.Millisecond
)

// State is the streamer lifecycle state.
type State int32

const (
	// Running is the state from construction until Run returns.
	Running State = iota
	// Terminated is final.
	Terminated
)

func (s State) String() string {
	if s == Terminated {
		return "terminated"
	}
	return "running"
}

// Display shows frames in a local preview window.
type Display interface {
	Show(frame *gocv.Mat) error
}

// Option configures a Streamer.
type Option func(*Streamer)

// WithLogger sets the logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Streamer) { s.logger = logger }
}

// WithClock sets the clock used for fps and backoff.
func WithClock(clk clock.Clock) Option {
	return func(s *Streamer) { s.clock = clk }
}

// WithMaxReadFailures sets how many consecutive capture failures end the run.
// Zero retries forever.
func WithMaxReadFailures(n int) Option {
	return func(s *Streamer) { s.maxReadFailures = n }
}

// WithReadBackoff sets the pause after a capture failure.
func WithReadBackoff(d time.Duration) Option {
	return func(s *Streamer) { s.readBackoff = d }
}

// WithPrintData echoes every payload to w.
func WithPrintData(w io.Writer) Option {
	return func(s *Streamer) { s.print = w }
}

// WithDisplay shows every captured frame on d.
func WithDisplay(d Display) Option {
	return func(s *Streamer) { s.display = d }
}

// WithPipelined runs capture, detection and sending as concurrent stages.
func WithPipelined(pipelined bool) Option {
	return func(s *Streamer) { s.pipelined = pipelined }
}

// Streamer owns the frame loop. Its collaborators are borrowed: the caller
// opens and closes the camera, the detector and the sink.
type Streamer struct {
	camera    capture.Camera
	detector  detector.Detector
	assembler *encode.Assembler
	sink      Sink

	logger          *zap.SugaredLogger
	clock           clock.Clock
	maxReadFailures int
	readBackoff     time.Duration
	print           io.Writer
	display         Display
	pipelined       bool

	fps       *FPSCounter
	failures  int
	sometimes rate.Sometimes

	state atomic.Int32
	sent  atomic.Int64
}

// New returns a Streamer reading from camera and writing to sink.
func New(camera capture.Camera, det detector.Detector, asm *encode.Assembler, sink Sink, opts ...Option) *Streamer {
	s := &Streamer{
		camera:          camera,
		detector:        det,
		assembler:       asm,
		sink:            sink,
		logger:          zap.NewNop().Sugar(),
		clock:           clock.New(),
		maxReadFailures: DefaultMaxReadFailures,
		readBackoff:     DefaultReadBackoff,
		sometimes:       rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.fps = NewFPSCounter(s.clock)
	return s
}

// State returns the current lifecycle state.
func (s *Streamer) State() State {
	return State(s.state.Load())
}

// Sent returns the number of payloads handed to the sink.
func (s *Streamer) Sent() int64 {
	return s.sent.Load()
}

// Run loops until ctx is cancelled, which returns nil, or until a fatal
// error: persistent capture failure, a detector fault or a landmark index
// the detection does not have. Run may be called once.
func (s *Streamer) Run(ctx context.Context) error {
	defer s.state.Store(int32(Terminated))

	if s.State() == Terminated {
		return errors.New("streamer already terminated")
	}

	s.fps.Start()
	s.logger.Infow("streaming", "profile", s.assembler.Profile().Kind, "pipelined", s.pipelined)

	if s.pipelined {
		return s.runPipelined(ctx)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := s.read(ctx)
		if err != nil {
			return err
		}
		if frame == nil {
			continue
		}

		payload, err := s.process(frame)
		if err != nil {
			frame.Close()
			return err
		}
		s.send(payload)
		s.show(frame)
		frame.Close()
	}
}

// read returns the next frame, or nil after a recoverable failure.
func (s *Streamer) read(ctx context.Context) (*gocv.Mat, error) {
	frame, err := s.camera.ReadFrame()
	if err == nil {
		s.failures = 0
		return frame, nil
	}

	s.failures++
	failures := s.failures
	s.sometimes.Do(func() {
		s.logger.Warnw("frame capture failed", "error", err, "consecutive", failures)
	})
	if s.maxReadFailures > 0 && s.failures >= s.maxReadFailures {
		return nil, errors.Wrapf(ErrCaptureFailed, "%d consecutive failures, last: %v", s.failures, err)
	}

	if s.readBackoff > 0 {
		timer := s.clock.Timer(s.readBackoff)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
	return nil, nil
}

// process turns one frame into a payload. The frame stays owned by the caller.
func (s *Streamer) process(frame *gocv.Mat) ([]byte, error) {
	subjects, err := s.detector.Detect(frame)
	if err != nil {
		return nil, errors.Wrap(err, "detect landmarks")
	}

	info := encode.FrameInfo{
		Width:  frame.Cols(),
		Height: frame.Rows(),
		FPS:    s.fps.Tick(),
	}
	rec, err := s.assembler.Assemble(subjects, info)
	if err != nil {
		return nil, errors.Wrap(err, "assemble record")
	}
	return encode.Marshal(rec), nil
}

// show hands a frame that has already been sent to the preview.
func (s *Streamer) show(frame *gocv.Mat) {
	if s.display == nil {
		return
	}
	if err := s.display.Show(frame); err != nil {
		s.logger.Debugw("display failed", "error", err)
	}
}

func (s *Streamer) send(payload []byte) {
	if err := s.sink.Send(payload); err != nil {
		s.logger.Debugw("send failed", "error", err)
	}
	s.sent.Add(1)
	if s.print != nil {
		fmt.Fprintln(s.print, string(payload))
	}
}
