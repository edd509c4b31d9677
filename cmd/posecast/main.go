// Package main is the posecast command: it streams hand or body landmarks
// from a camera to a local UDP port.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ayusman/posecast/internal/app"
	"github.com/ayusman/posecast/internal/config"
	"github.com/ayusman/posecast/internal/logging"
	"github.com/ayusman/posecast/internal/store"
	"github.com/ayusman/posecast/internal/stream"
)

const (
	defaultConfigPath = "config.yaml"

	flagLogLevel = "log-level"
	flagDB       = "db"
	flagPort     = "port"
	flagSpeed    = "speed"
	flagLimit    = "limit"
)

func main() {
	var logger *zap.SugaredLogger

	cliApp := &cli.App{
		Name:      "posecast",
		Usage:     "stream hand or body landmarks over UDP",
		ArgsUsage: "[config.yaml]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagLogLevel,
				Value:   "info",
				Usage:   "log `LEVEL` (debug, info, warn, error)",
				EnvVars: []string{"POSECAST_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			logger, err = logging.New("posecast", c.String(flagLogLevel))
			return err
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return runAction(c, logger)
		},
		Commands: []*cli.Command{
			{
				Name:  "sessions",
				Usage: "list recorded sessions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagDB,
						Usage:    "recording database `FILE`",
						Required: true,
					},
					&cli.IntFlag{
						Name:  flagLimit,
						Usage: "show at most `N` sessions (0 for all)",
					},
				},
				Action: sessionsAction,
			},
			{
				Name:      "replay",
				Usage:     "send a recorded session to a UDP port",
				ArgsUsage: "<session-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagDB,
						Usage:    "recording database `FILE`",
						Required: true,
					},
					&cli.IntFlag{
						Name:  flagPort,
						Value: 5052,
						Usage: "destination UDP `PORT` on 127.0.0.1",
					},
					&cli.Float64Flag{
						Name:  flagSpeed,
						Value: 1,
						Usage: "playback speed; 0 sends frames back to back",
					},
				},
				Action: func(c *cli.Context) error {
					return replayAction(c, logger)
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// configPath picks the positional argument, then $POSECAST_CONFIG, then the default.
func configPath(c *cli.Context) string {
	if p := c.Args().First(); p != "" {
		return p
	}
	if p := os.Getenv("POSECAST_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func runAction(c *cli.Context, logger *zap.SugaredLogger) error {
	if c.NArg() > 1 {
		return errors.Errorf("expected at most one config path, got %d arguments", c.NArg())
	}

	cfg, err := config.Load(configPath(c))
	if err != nil {
		return err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warnw("shutdown", "error", err)
		}
	}()

	ctx, stop := signalContext(c)
	defer stop()

	logger.Infow("starting",
		"tracker", cfg.Tracker.Tracker,
		"port", cfg.Tracker.Port,
		"coordinates", cfg.Output.Coordinates)

	if err := a.Run(ctx); err != nil {
		return err
	}
	logger.Infow("stopped", "sent", a.Sent())
	return nil
}

func sessionsAction(c *cli.Context) error {
	s, err := store.New(c.String(flagDB))
	if err != nil {
		return err
	}
	defer s.Close()

	sessions, err := s.Sessions().List()
	if err != nil {
		return errors.Wrap(err, "list sessions")
	}
	if limit := c.Int(flagLimit); limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTRACKER\tFRAMES\tSTARTED\tDURATION")
	for _, sess := range sessions {
		duration := "running"
		if sess.EndedAt != nil {
			duration = sess.EndedAt.Sub(sess.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			sess.ID, sess.Tracker, sess.Frames, sess.StartedAt.Format(time.RFC3339), duration)
	}
	return w.Flush()
}

func replayAction(c *cli.Context, logger *zap.SugaredLogger) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("replay needs a session id")
	}

	s, err := store.New(c.String(flagDB))
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.Sessions().GetByID(id); err != nil {
		return errors.Wrapf(err, "session %s", id)
	}
	frames, err := s.Frames().List(id)
	if err != nil {
		return errors.Wrap(err, "load frames")
	}

	sink, err := stream.DialUDP(c.Int(flagPort))
	if err != nil {
		return err
	}
	defer sink.Close()

	ctx, stop := signalContext(c)
	defer stop()

	logger.Infow("replaying", "session", id, "frames", len(frames), "to", sink.RemoteAddr().String())
	n, err := stream.Replay(ctx, clock.New(), frames, sink, c.Float64(flagSpeed))
	logger.Infow("replay finished", "sent", n)
	return err
}
