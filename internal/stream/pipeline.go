package stream

import (
	"context"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// encoded is a processed frame waiting to be sent and shown.
type encoded struct {
	frame   *gocv.Mat
	payload []byte
}

// runPipelined runs capture, detect+encode and send+display as three stages
// joined by single-slot channels. Frames stay in order and each stage holds
// at most one frame. A capture failure lets the frames already in flight drain.
func (s *Streamer) runPipelined(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	frames := make(chan *gocv.Mat, 1)
	payloads := make(chan encoded, 1)

	var captureErr error
	g.Go(func() error {
		defer close(frames)
		for gctx.Err() == nil {
			frame, err := s.read(gctx)
			if err != nil {
				captureErr = err
				return nil
			}
			if frame == nil {
				continue
			}
			select {
			case frames <- frame:
			case <-gctx.Done():
				frame.Close()
			}
		}
		return nil
	})

	g.Go(func() error {
		defer close(payloads)
		for frame := range frames {
			payload, err := s.process(frame)
			if err != nil {
				frame.Close()
				return err
			}
			select {
			case payloads <- encoded{frame: frame, payload: payload}:
			case <-gctx.Done():
				frame.Close()
				return nil
			}
		}
		return nil
	})

	g.Go(func() error {
		for e := range payloads {
			s.send(e.payload)
			s.show(e.frame)
			e.frame.Close()
		}
		return nil
	})

	err := g.Wait()
	for frame := range frames {
		frame.Close()
	}
	if err != nil {
		return err
	}
	return captureErr
}
