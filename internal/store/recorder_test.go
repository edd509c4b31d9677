package store

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
)

func TestRecorder(t *testing.T) {
	s := newTestStore(t)

	rec, err := NewRecorder(s, "hand", "output: {type: true}\n")
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	payloads := []string{"['NoHand']", "['Left', [[1, 2, 3]]]", "['NoHand']"}
	for _, p := range payloads {
		if err := rec.Send([]byte(p)); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	frames, err := s.Frames().List(rec.SessionID())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(frames) != len(payloads) {
		t.Fatalf("recorded %d frames, want %d", len(frames), len(payloads))
	}
	for i, f := range frames {
		if f.Seq != int64(i) || f.Payload != payloads[i] {
			t.Errorf("frame %d = seq %d %q, want seq %d %q", i, f.Seq, f.Payload, i, payloads[i])
		}
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := rec.Send([]byte("['NoHand']")); err == nil {
		t.Error("Send() after Close should fail")
	}

	sess, err := s.Sessions().GetByID(rec.SessionID())
	if err != nil {
		t.Fatal(err)
	}
	if sess.Frames != 3 || sess.EndedAt == nil {
		t.Errorf("session after close = %+v", sess)
	}
}

func TestFrameRepository_EachStops(t *testing.T) {
	s := newTestStore(t)
	rec, err := NewRecorder(s, "body", "")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := rec.Send([]byte(fmt.Sprintf("[%d]", i))); err != nil {
			t.Fatal(err)
		}
	}

	stop := errors.New("stop")
	var seen []string
	err = s.Frames().Each(rec.SessionID(), func(f Frame) error {
		seen = append(seen, f.Payload)
		if len(seen) == 2 {
			return stop
		}
		return nil
	})
	if err != stop {
		t.Errorf("Each() error = %v, want %v", err, stop)
	}
	if len(seen) != 2 || seen[1] != "[1]" {
		t.Errorf("seen = %v", seen)
	}

	if n, err := s.Frames().Count(rec.SessionID()); err != nil || n != 5 {
		t.Errorf("Count() = %d, %v; want 5", n, err)
	}
}
