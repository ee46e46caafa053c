package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera produces blank frames of a fixed size. It pairs with detectors
// that do not look at pixels.
type MockCamera struct {
	width, height int

	mu      sync.Mutex
	running bool
	reads   int
	err     error
}

// NewMockCamera creates a mock camera producing width x height frames.
func NewMockCamera(width, height int) *MockCamera {
	return &MockCamera{width: width, height: height}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	if c.err != nil {
		return nil, c.err
	}

	c.reads++
	mat := gocv.NewMatWithSize(c.height, c.width, gocv.MatTypeCV8UC3)
	return &mat, nil
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetError makes subsequent reads fail with err (nil clears it).
func (c *MockCamera) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Reads returns the number of frames handed out.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
