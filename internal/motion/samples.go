package motion

// FaceSample is the face bounding box observed at Timestamp (ms).
type FaceSample struct {
	Timestamp int64   `json:"timestamp"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// ArmSample is the vertical wrist and shoulder position observed at
// Timestamp (ms).
type ArmSample struct {
	Timestamp int64   `json:"timestamp"`
	WristY    float64 `json:"wristY"`
	ShoulderY float64 `json:"shoulderY"`
}

// SampleTime implements the pipeline buffer's timestamp accessor.
func (s FaceSample) SampleTime() int64 { return s.Timestamp }

// SampleTime implements the pipeline buffer's timestamp accessor.
func (s ArmSample) SampleTime() int64 { return s.Timestamp }

// EstimateNodding runs the nodding analysis over a buffer snapshot.
func EstimateNodding(cfg Config, samples []FaceSample) Estimate {
	ts := make([]int64, len(samples))
	x := make([]float64, len(samples))
	y := make([]float64, len(samples))
	w := make([]float64, len(samples))
	h := make([]float64, len(samples))
	for i, s := range samples {
		ts[i] = s.Timestamp
		x[i], y[i], w[i], h[i] = s.X, s.Y, s.Width, s.Height
	}
	return Analyze(cfg, ts, [][]float64{x, y, w, h}, false)
}

// EstimateHandRaise runs the hand-raise analysis over a buffer snapshot.
// prevRaised is the IsRaised value returned by the previous call.
func EstimateHandRaise(cfg Config, samples []ArmSample, prevRaised bool) Estimate {
	ts := make([]int64, len(samples))
	wrist := make([]float64, len(samples))
	shoulder := make([]float64, len(samples))
	for i, s := range samples {
		ts[i] = s.Timestamp
		wrist[i], shoulder[i] = s.WristY, s.ShoulderY
	}
	return Analyze(cfg, ts, [][]float64{wrist, shoulder}, prevRaised)
}

// DefaultSmoothingAlpha weights the newest nodding amplitude.
const DefaultSmoothingAlpha = 0.4

// Smoother is an exponential moving average whose state is owned by the
// caller.
type Smoother struct {
	Alpha float64
}

// Update blends raw into prev and returns the new smoothed value.
func (s Smoother) Update(prev, raw float64) float64 {
	return prev*(1-s.Alpha) + raw*s.Alpha
}
