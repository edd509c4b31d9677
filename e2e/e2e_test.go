package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posecast/internal/app"
	"github.com/ayusman/posecast/internal/capture"
	"github.com/ayusman/posecast/internal/config"
	"github.com/ayusman/posecast/internal/detector"
	"github.com/ayusman/posecast/internal/encode"
	"github.com/ayusman/posecast/internal/logging"
	"github.com/ayusman/posecast/internal/server"
	"github.com/ayusman/posecast/internal/store"
)

const configTemplate = `config:
  tracker: hand
  port: %d
  record_path: %s
output:
  type: true
  include_height: true
  include_width: true
  include_center: true
  coordinates: normalized
  round: 3
  lm_list: [0, 4]
`

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "sessions.db")

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	configPath := filepath.Join(tmpDir, "config.yaml")
	doc := fmt.Sprintf(configTemplate, port, dbPath)
	if err := os.WriteFile(configPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var cfg *config.Config
	t.Run("LoadConfig", func(t *testing.T) {
		cfg, err = config.Load(configPath)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Output.Coordinates != encode.Normalized || cfg.Tracker.Port != port {
			t.Fatalf("Load() = %+v", cfg)
		}
	})
	if cfg == nil {
		t.FailNow()
	}

	frame := gocv.NewMatWithSize(360, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	det := detector.NewMockDetector()
	det.SetSubjects([]detector.Subject{detector.ThumbsUpLandmarks()})

	application, err := app.New(cfg, logging.NewTestLogger(t),
		app.WithCamera(capture.NewMockCamera([]*gocv.Mat{&frame}, true)),
		app.WithDetector(det))
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	var datagrams []string
	t.Run("ReceiveDatagrams", func(t *testing.T) {
		buf := make([]byte, 64*1024)
		for len(datagrams) < 5 {
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				t.Fatalf("ReadFromUDP() error = %v", err)
			}
			datagrams = append(datagrams, string(buf[:n]))
		}

		rec, err := encode.Unmarshal([]byte(datagrams[0]))
		if err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", datagrams[0], err)
		}
		// label, height, width, center, landmarks
		if len(rec) != 5 {
			t.Fatalf("record has %d fields, want 5: %s", len(rec), datagrams[0])
		}
		if rec[0] != encode.String("Left") || rec[1] != encode.Int(360) || rec[2] != encode.Int(640) {
			t.Errorf("record header = %v", rec[:3])
		}
		if lms, ok := rec[4].(encode.List); !ok || len(lms) != 2 {
			t.Errorf("landmarks = %v, want two entries", rec[4])
		}
	})

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	session := application.RecordingSession()
	sent := application.Sent()
	if err := application.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	ts := httptest.NewServer(server.New(server.Config{Store: s}))
	defer ts.Close()
	client := ts.Client()

	t.Run("ListSessions", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions")
		if err != nil {
			t.Fatalf("list sessions error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Sessions []struct {
				ID      string `json:"id"`
				Tracker string `json:"tracker"`
				Frames  int64  `json:"frames"`
				EndedAt string `json:"ended_at"`
			} `json:"sessions"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode error = %v", err)
		}
		if len(body.Sessions) != 1 {
			t.Fatalf("got %d sessions, want 1", len(body.Sessions))
		}
		got := body.Sessions[0]
		if got.ID != session || got.Tracker != "hand" || got.Frames != sent || got.EndedAt == "" {
			t.Errorf("session = %+v, want id %s with %d frames", got, session, sent)
		}
	})

	t.Run("RecordedFramesMatchDatagrams", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions/" + session + "/frames")
		if err != nil {
			t.Fatalf("list frames error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var body struct {
			Frames []struct {
				Seq     int64  `json:"seq"`
				Payload string `json:"payload"`
			} `json:"frames"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode error = %v", err)
		}
		if int64(len(body.Frames)) != sent {
			t.Fatalf("recorded %d frames, sent %d", len(body.Frames), sent)
		}
		for i, d := range datagrams {
			if body.Frames[i].Seq != int64(i) || body.Frames[i].Payload != d {
				t.Errorf("frame %d = %+v, want payload %s", i, body.Frames[i], d)
			}
		}
	})
}

const exactTemplate = `config:
  tracker: hand
  port: %d
output:
  type: true
  include_height: true
  include_width: true
  include_box: true
  include_center: true
  correct_box_height: true
  dims_position: frame
  coordinates: pixel
  round: 2
`

// ladderHand returns 21 landmarks on exact binary fractions so pixel
// scaling and flooring are predictable.
func ladderHand() detector.Subject {
	pts := make([]detector.Point3D, detector.NumHandLandmarks)
	for i := range pts {
		pts[i] = detector.Point3D{
			X: 0.25 + float64(i)/64,
			Y: 0.75 - float64(i)/128,
			Z: float64(-i) / 256,
		}
	}
	return detector.Subject{Label: "Right", Score: 0.97, Points: pts}
}

func TestE2E_ExactDatagram(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(fmt.Sprintf(exactTemplate, port)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	det := detector.NewMockDetector()
	det.SetSubjects([]detector.Subject{ladderHand()})

	application, err := app.New(cfg, logging.NewTestLogger(t),
		app.WithCamera(capture.NewMockCamera([]*gocv.Mat{&frame}, true)),
		app.WithDetector(det))
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	// Frame dims lead, the right hand is mirrored, the box keeps its true
	// height and pixel landmarks are floored.
	want := "[480, 640, 'Left', (160.0, 285.0, 200.0, 75.0), (260.0, 322.5), " +
		"[[160, 360, 0], [170, 356, -3], [180, 352, -5], [190, 348, -8], [200, 345, -10], " +
		"[210, 341, -13], [220, 337, -15], [230, 333, -18], [240, 330, -20], [250, 326, -23], " +
		"[260, 322, -25], [270, 318, -28], [280, 315, -30], [290, 311, -33], [300, 307, -35], " +
		"[310, 303, -38], [320, 300, -40], [330, 296, -43], [340, 292, -45], [350, 288, -48], " +
		"[360, 285, -50]]]"

	buf := make([]byte, 64*1024)
	for i := 0; i < 3; i++ {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("ReadFromUDP() error = %v", err)
		}
		if got := string(buf[:n]); got != want {
			t.Fatalf("datagram %d =\n%s\nwant\n%s", i, got, want)
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestE2E_MissingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	_, err := config.Load(path)
	want := "config file " + path + " does not exist"
	if err == nil || err.Error() != want {
		t.Errorf("Load() error = %v, want %q", err, want)
	}
}
