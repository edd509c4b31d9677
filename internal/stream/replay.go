package stream

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/ayusman/posecast/internal/store"
)

// Replay sends recorded frames to sink in order. With speed > 0 the gaps
// between the original send times are kept, divided by speed; with speed 0
// frames go out back to back. Cancelling ctx stops the replay without error.
// It returns the number of frames sent.
func Replay(ctx context.Context, clk clock.Clock, frames []store.Frame, sink Sink, speed float64) (int, error) {
	sent := 0
	for i, f := range frames {
		if i > 0 && speed > 0 {
			gap := time.Duration(float64(f.SentAt.Sub(frames[i-1].SentAt)) / speed)
			if gap > 0 {
				t := clk.Timer(gap)
				select {
				case <-ctx.Done():
					t.Stop()
					return sent, nil
				case <-t.C:
				}
			}
		}
		if ctx.Err() != nil {
			return sent, nil
		}

		if err := sink.Send([]byte(f.Payload)); err != nil {
			return sent, errors.Wrapf(err, "replay frame %d", f.Seq)
		}
		sent++
	}
	return sent, nil
}
