// Package detector provides the landmark detector boundary: the detector
// interface, its MediaPipe implementation and test doubles.
package detector

import (
	"github.com/ayusman/reactune/internal/pipeline"
)

// Pose landmark indices following the MediaPipe pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose             = 0
	LeftShoulder     = 11
	RightShoulder    = 12
	LeftElbow        = 13
	RightElbow       = 14
	LeftWrist        = 15
	RightWrist       = 16
	NumPoseLandmarks = 33
)

// Blend-shape names read from the face landmarker.
const (
	BlendMouthSmileLeft  = "mouthSmileLeft"
	BlendMouthSmileRight = "mouthSmileRight"
	BlendJawOpen         = "jawOpen"
)

// Point3D is a landmark in normalized image coordinates (y grows downwards).
type Point3D struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Box is a face bounding box in normalized image coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Score  float64 `json:"score"`
}

// Result is what a detector found in one frame.
type Result struct {
	Face        *Box               `json:"face,omitempty"`
	Blendshapes map[string]float64 `json:"blendshapes,omitempty"`
	Pose        []Point3D          `json:"pose,omitempty"`
}

// Frame converts r into a pipeline observation stamped with ts (ms).
// Landmarks below minVisibility count as missing.
func (r Result) Frame(ts int64, minVisibility float64) pipeline.Frame {
	f := pipeline.Frame{Timestamp: ts}

	if r.Face != nil && r.Face.Width > 0 && r.Face.Height > 0 {
		f.Face = &pipeline.FaceBox{
			X:      r.Face.X,
			Y:      r.Face.Y,
			Width:  r.Face.Width,
			Height: r.Face.Height,
		}
	}

	f.Expression = r.expression()
	f.Arm = r.arm(minVisibility)
	return f
}

func (r Result) expression() *pipeline.Expression {
	left, hasLeft := r.Blendshapes[BlendMouthSmileLeft]
	right, hasRight := r.Blendshapes[BlendMouthSmileRight]
	jaw, hasJaw := r.Blendshapes[BlendJawOpen]
	if !hasLeft && !hasRight && !hasJaw {
		return nil
	}

	var smiling float64
	switch {
	case hasLeft && hasRight:
		smiling = (left + right) / 2
	case hasLeft:
		smiling = left
	case hasRight:
		smiling = right
	}

	return &pipeline.Expression{Smiling: smiling, JawOpen: jaw}
}

// arm uses the higher of the visible wrists against the mean shoulder line.
func (r Result) arm(minVisibility float64) *pipeline.ArmPosition {
	if len(r.Pose) <= RightWrist {
		return nil
	}

	visible := func(i int) bool { return r.Pose[i].Visibility >= minVisibility }

	var shoulders []float64
	for _, i := range []int{LeftShoulder, RightShoulder} {
		if visible(i) {
			shoulders = append(shoulders, r.Pose[i].Y)
		}
	}
	if len(shoulders) == 0 {
		return nil
	}

	wristY, found := 0.0, false
	for _, i := range []int{LeftWrist, RightWrist} {
		if !visible(i) {
			continue
		}
		if !found || r.Pose[i].Y < wristY {
			wristY, found = r.Pose[i].Y, true
		}
	}
	if !found {
		return nil
	}

	var shoulderY float64
	for _, y := range shoulders {
		shoulderY += y
	}
	shoulderY /= float64(len(shoulders))

	return &pipeline.ArmPosition{WristY: wristY, ShoulderY: shoulderY}
}
