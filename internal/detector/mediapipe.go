package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ScriptName is the landmark service the MediaPipe detector runs.
const ScriptName = "landmark_service.py"

// idleShutdown is how long the service may sit unused before it is stopped.
const idleShutdown = 30 * time.Second

// ErrScriptNotFound is returned when the landmark service script cannot be located.
var ErrScriptNotFound = errors.New(ScriptName + " not found")

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Each request is a 4-byte big-endian length followed by a JPEG frame on the
// service's stdin; each response is a single JSON line on its stdout:
//
//	{"subjects": [{"label": "Right", "score": 0.98,
//	               "landmarks": [{"x": .., "y": .., "z": .., "visibility": ..}, ...],
//	               "world_landmarks": [...]}]}
type MediaPipeDetector struct {
	config    Config
	script    string
	python    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := config.Script
	if script == "" {
		script = findMediaPipeScript()
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, errors.Wrapf(err, "landmark service %s", script)
	}

	python := config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	return &MediaPipeDetector{
		config: config,
		script: script,
		python: python,
	}, nil
}

// Detect analyzes a frame and returns detected subjects.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]Subject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	// Encode frame as JPEG
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, errors.Wrap(err, "encode frame")
	}
	defer buf.Close()

	data := buf.GetBytes()

	// Write length (4 bytes big-endian) + data
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return nil, errors.Wrap(err, "write length")
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, errors.Wrap(err, "write data")
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	subjects, err := parseResponse(line, d.config.WorldLandmarks)
	if err != nil {
		return nil, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return subjects, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// args builds the service command line from the model configuration.
func (d *MediaPipeDetector) args() []string {
	c := d.config
	return []string{
		d.script,
		"--mode", c.Kind.String(),
		"--static-mode=" + strconv.FormatBool(c.StaticMode),
		"--max-subjects", strconv.Itoa(c.MaxSubjects),
		"--model-complexity", strconv.Itoa(c.ModelComplexity),
		"--smooth-landmarks=" + strconv.FormatBool(c.SmoothLandmarks),
		"--enable-segmentation=" + strconv.FormatBool(c.EnableSegmentation),
		"--smooth-segmentation=" + strconv.FormatBool(c.SmoothSegmentation),
		"--min-detection-confidence", strconv.FormatFloat(c.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(c.MinTrackingConf, 'f', -1, 64),
		"--world-landmarks=" + strconv.FormatBool(c.WorldLandmarks),
	}
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	d.cmd = exec.Command(d.python, d.args()...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "create stdin pipe")
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "create stdout pipe")
	}

	// Capture stderr for debugging
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return errors.Wrap(err, "start landmark service")
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()

	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findMediaPipeScript() string {
	// Get executable directory
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", ScriptName),
		filepath.Join("..", "scripts", ScriptName),
		filepath.Join(execDir, "scripts", ScriptName),
		filepath.Join(os.Getenv("HOME"), ".posecast", "scripts", ScriptName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
// It checks for venv/bin/python relative to the project directory.
func findVenvPython() string {
	// Get executable directory to find project root
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".posecast/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonResponse represents the JSON structure from the Python service.
type jsonResponse struct {
	Subjects []jsonSubject `json:"subjects"`
}

type jsonSubject struct {
	Label          string      `json:"label"`
	Score          float64     `json:"score"`
	Landmarks      []jsonPoint `json:"landmarks"`
	WorldLandmarks []jsonPoint `json:"world_landmarks"`
}

type jsonPoint struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility"`
}

// parseResponse decodes one service response line. When world is set the
// world landmarks are used in place of the image landmarks.
func parseResponse(line []byte, world bool) ([]Subject, error) {
	var response jsonResponse
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, errors.Wrap(err, "parse response")
	}

	result := make([]Subject, 0, len(response.Subjects))
	for _, s := range response.Subjects {
		result = append(result, s.toSubject(world))
	}
	return result, nil
}

func (s jsonSubject) toSubject(world bool) Subject {
	src := s.Landmarks
	if world {
		src = s.WorldLandmarks
	}

	points := make([]Point3D, len(src))
	for i, p := range src {
		points[i] = Point3D{X: p.X, Y: p.Y, Z: p.Z, Visibility: p.Visibility}
	}

	return Subject{
		Label:  s.Label,
		Score:  s.Score,
		Points: points,
	}
}
