package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const serviceScript = "landmark_service.py"

// errBadResponse marks replies that leave the stream out of sync.
var errBadResponse = errors.New("parse response")

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess
// running the face landmarker (with blend shapes) and the pose landmarker.
type MediaPipeDetector struct {
	config    Config
	script    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer

	// command builds the service process; replaced in tests.
	command func() *exec.Cmd
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := findScript(serviceScript)
	if script == "" {
		return nil, fmt.Errorf("%s not found", serviceScript)
	}

	d := &MediaPipeDetector{
		config: config,
		script: script,
	}
	d.command = d.serviceCommand
	return d, nil
}

// Detect encodes the frame as JPEG, sends it to the service and decodes the
// landmarks it answers with.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (Result, error) {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return Result{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.roundTrip(buf.GetBytes())
}

// roundTrip sends one encoded frame. A broken pipe or an unreadable reply
// stops the service so the next frame starts a fresh one.
func (d *MediaPipeDetector) roundTrip(payload []byte) (Result, error) {
	if err := d.ensureStarted(); err != nil {
		return Result{}, err
	}

	line, err := exchange(d.stdin, d.stdout, payload)
	if err != nil {
		d.abort()
		return Result{}, err
	}

	result, err := decodeResponse(line)
	if err != nil {
		if errors.Is(err, errBadResponse) {
			d.abort()
		}
		return Result{}, err
	}

	d.resetIdleTimer()
	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// exchange writes one length-prefixed (4 bytes, big-endian) payload and reads
// one newline-terminated JSON reply.
func exchange(w io.Writer, r *bufio.Reader, payload []byte) ([]byte, error) {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(payload)))

	if _, err := w.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

func decodeResponse(line []byte) (Result, error) {
	var response struct {
		Result
		Error string `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return Result{}, fmt.Errorf("%w: %v", errBadResponse, err)
	}
	if response.Error != "" {
		return Result{}, fmt.Errorf("landmark service: %s", response.Error)
	}
	return response.Result, nil
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	d.cmd = d.command()

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start landmark service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	return nil
}

func (d *MediaPipeDetector) serviceCommand() *exec.Cmd {
	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	return exec.Command(pythonPath, d.script,
		"--min-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)
}

// abort kills a service that can no longer be talked to.
func (d *MediaPipeDetector) abort() {
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.shutdown()
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
	if d.config.IdleTimeout <= 0 {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findScript(name string) string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	return firstExisting(
		filepath.Join("scripts", name),
		filepath.Join("..", "scripts", name),
		filepath.Join(execDir, "scripts", name),
		filepath.Join(os.Getenv("HOME"), ".reactune", "scripts", name),
	)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	return firstExisting(
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".reactune/venv/bin/python"),
	)
}

func firstExisting(candidates ...string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
