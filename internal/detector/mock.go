package detector

import (
	"math"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	result Result
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetResult sets the result that will be returned by Detect.
func (m *MockDetector) SetResult(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = r
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured result or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return Result{}, m.err
	}
	return m.result, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Scene describes synthetic behavior for the ScriptedDetector.
type Scene struct {
	NodHz     float64 // head nodding frequency, 0 for a still head
	NodSwing  float64 // peak-to-trough face movement relative to face size
	Smiling   float64
	JawOpen   float64
	HandRaise bool
}

// ScriptedDetector ignores pixels and synthesizes landmarks for a Scene as a
// function of time. It stands in for MediaPipe in demos and tests.
type ScriptedDetector struct {
	mu    sync.Mutex
	scene Scene
	start time.Time
	now   func() time.Time
}

// NewScriptedDetector creates a scripted detector. A nil now uses time.Now.
func NewScriptedDetector(scene Scene, now func() time.Time) *ScriptedDetector {
	if now == nil {
		now = time.Now
	}
	return &ScriptedDetector{scene: scene, start: now(), now: now}
}

// SetScene switches to another scene.
func (s *ScriptedDetector) SetScene(scene Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene = scene
}

// Detect returns landmarks for the scene at the current time.
func (s *ScriptedDetector) Detect(frame *gocv.Mat) (Result, error) {
	s.mu.Lock()
	scene := s.scene
	elapsed := s.now().Sub(s.start).Seconds()
	s.mu.Unlock()

	return SceneAt(scene, elapsed), nil
}

// Close is a no-op.
func (s *ScriptedDetector) Close() error {
	return nil
}

// SceneAt returns the landmarks for scene at elapsed seconds.
func SceneAt(scene Scene, elapsed float64) Result {
	const size = 0.3

	y := 0.35
	if scene.NodHz > 0 {
		y += size * scene.NodSwing / 2 * math.Sin(2*math.Pi*scene.NodHz*elapsed)
	}

	pose := make([]Point3D, NumPoseLandmarks)
	for i := range pose {
		pose[i].Visibility = 1
	}
	pose[LeftShoulder] = Point3D{X: 0.6, Y: 0.7, Visibility: 1}
	pose[RightShoulder] = Point3D{X: 0.4, Y: 0.7, Visibility: 1}
	pose[LeftWrist] = Point3D{X: 0.65, Y: 0.9, Visibility: 1}
	pose[RightWrist] = Point3D{X: 0.35, Y: 0.9, Visibility: 1}
	if scene.HandRaise {
		pose[RightWrist].Y = 0.4
	}

	return Result{
		Face: &Box{X: 0.35, Y: y, Width: size, Height: size, Score: 0.95},
		Blendshapes: map[string]float64{
			BlendMouthSmileLeft:  scene.Smiling,
			BlendMouthSmileRight: scene.Smiling,
			BlendJawOpen:         scene.JawOpen,
		},
		Pose: pose,
	}
}
