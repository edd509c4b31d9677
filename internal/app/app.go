// Package app wires a loaded configuration into a running landmark streamer.
package app

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/posecast/internal/capture"
	"github.com/ayusman/posecast/internal/config"
	"github.com/ayusman/posecast/internal/detector"
	"github.com/ayusman/posecast/internal/display"
	"github.com/ayusman/posecast/internal/encode"
	"github.com/ayusman/posecast/internal/server"
	"github.com/ayusman/posecast/internal/store"
	"github.com/ayusman/posecast/internal/stream"
)

// Option overrides a component New would otherwise build from the config.
type Option func(*App)

// WithCamera uses camera instead of opening the configured device.
func WithCamera(camera capture.Camera) Option {
	return func(a *App) {
		a.camera = camera
	}
}

// WithDetector uses det instead of starting the MediaPipe helper.
func WithDetector(det detector.Detector) Option {
	return func(a *App) {
		a.detector = det
	}
}

// WithSink replaces the UDP sink. Recording and mirroring still apply.
func WithSink(sink stream.Sink) Option {
	return func(a *App) {
		a.udp = sink
	}
}

// App owns every component of one streaming session.
type App struct {
	config *config.Config
	logger *zap.SugaredLogger

	camera   capture.Camera
	detector detector.Detector
	udp      stream.Sink
	store    *store.Store
	recorder *store.Recorder
	mirror   *server.Server
	window   *display.Window
	streamer *stream.Streamer

	closeOnce sync.Once
	closeErr  error
}

// New builds the components described by cfg. On error everything built
// so far is released.
func New(cfg *config.Config, logger *zap.SugaredLogger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	a := &App{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.build(); err != nil {
		return nil, multierr.Append(err, a.Close())
	}
	return a, nil
}

func (a *App) build() error {
	cfg, logger := a.config, a.logger

	profile := cfg.Profile()
	asm, err := encode.NewAssembler(profile, cfg.Encode())
	if err != nil {
		return errors.Wrap(err, "output config")
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(cfg.Capture())
	}
	if a.detector == nil {
		mp, err := detector.NewMediaPipeDetector(cfg.Detector())
		if err != nil {
			return errors.Wrap(err, "start detector")
		}
		a.detector = mp
	}

	if a.udp == nil {
		udp, err := stream.DialUDP(cfg.Tracker.Port)
		if err != nil {
			return err
		}
		a.udp = udp
	}
	sinks := stream.MultiSink{a.udp}

	if path := cfg.Tracker.RecordPath; path != "" {
		a.store, err = store.New(path)
		if err != nil {
			return errors.Wrap(err, "open recording store")
		}
		a.recorder, err = store.NewRecorder(a.store, profile.Kind.String(), cfg.Source)
		if err != nil {
			return err
		}
		sinks = append(sinks, a.recorder)
		logger.Infow("recording", "path", path, "session", a.recorder.SessionID())
	}

	if cfg.Tracker.MirrorAddr != "" {
		a.mirror = server.New(server.Config{
			StaticDir: cfg.Tracker.MirrorStaticDir,
			Store:     a.store,
			Logger:    logger.Named("mirror"),
			Sent:      a.Sent,
		})
		sinks = append(sinks, a.mirror)
	}

	streamOpts := []stream.Option{
		stream.WithLogger(logger.Named("stream")),
		stream.WithMaxReadFailures(cfg.Tracker.MaxReadFailures),
		stream.WithPipelined(cfg.Tracker.Pipelined),
	}
	if cfg.Output.PrintData {
		streamOpts = append(streamOpts, stream.WithPrintData(os.Stdout))
	}
	if cfg.Tracker.DisplayVideo {
		a.window = display.NewWindow(cfg.Tracker.FrameWidth, cfg.Tracker.FrameHeight, cfg.Tracker.DisplayVideoSize)
		streamOpts = append(streamOpts, stream.WithDisplay(a.window))
	}

	a.streamer = stream.New(a.camera, a.detector, asm, sinks, streamOpts...)
	return nil
}

// Sent returns the number of payloads streamed so far.
func (a *App) Sent() int64 {
	if a.streamer == nil {
		return 0
	}
	return a.streamer.Sent()
}

// RecordingSession returns the id of the session being recorded, if any.
func (a *App) RecordingSession() string {
	if a.recorder == nil {
		return ""
	}
	return a.recorder.SessionID()
}

// Run opens the camera and streams until ctx is cancelled or the streamer
// fails. The mirror, when configured, runs alongside and stops with it.
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		return errors.Wrap(err, "open camera")
	}

	g, gctx := errgroup.WithContext(ctx)
	streamCtx, stop := context.WithCancel(gctx)
	defer stop()

	if a.mirror != nil {
		g.Go(func() error {
			err := a.mirror.ListenAndServe(streamCtx, a.config.Tracker.MirrorAddr)
			return errors.Wrap(err, "mirror")
		})
	}

	g.Go(func() error {
		defer stop()
		return a.streamer.Run(streamCtx)
	})

	return g.Wait()
}

// Close releases every component. It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		var err error
		if a.camera != nil {
			err = multierr.Append(err, a.camera.Close())
		}
		if a.detector != nil {
			err = multierr.Append(err, a.detector.Close())
		}
		if a.window != nil {
			err = multierr.Append(err, a.window.Close())
		}
		if a.udp != nil {
			err = multierr.Append(err, a.udp.Close())
		}
		if a.mirror != nil {
			err = multierr.Append(err, a.mirror.Close())
		}
		if a.recorder != nil {
			err = multierr.Append(err, a.recorder.Close())
		}
		if a.store != nil {
			err = multierr.Append(err, a.store.Close())
		}
		a.closeErr = err
	})
	return a.closeErr
}
