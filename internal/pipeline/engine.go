package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ayusman/reactune/internal/motion"
	"github.com/ayusman/reactune/internal/reaction"
	"github.com/ayusman/reactune/internal/recommend"
)

// FaceBox is the face bounding box in normalized image coordinates.
type FaceBox struct {
	X, Y, Width, Height float64
}

// ArmPosition is the vertical position of the raised-side wrist and the
// shoulder line in normalized image coordinates.
type ArmPosition struct {
	WristY, ShoulderY float64
}

// Expression holds blend-shape intensities in [0,1].
type Expression struct {
	Smiling, JawOpen float64
}

// Frame is one detector observation. Any part may be nil when the detector
// did not see it.
type Frame struct {
	Timestamp  int64
	Face       *FaceBox
	Arm        *ArmPosition
	Expression *Expression
}

// Config holds the engine parameters.
type Config struct {
	MotionWindowMs     int64
	ExpressionWindowMs int64
	MaxSamples         int
	SmoothingAlpha     float64

	Nodding    motion.Config
	HandRaise  motion.Config
	Classifier reaction.Config
	Generator  recommend.GeneratorConfig
}

// DefaultConfig returns the standard engine parameters.
func DefaultConfig() Config {
	return Config{
		MotionWindowMs:     3000,
		ExpressionWindowMs: 1000,
		MaxSamples:         100,
		SmoothingAlpha:     motion.DefaultSmoothingAlpha,
		Nodding:            motion.NoddingConfig(),
		HandRaise:          motion.HandRaiseConfig(),
		Classifier:         reaction.DefaultConfig(),
		Generator:          recommend.DefaultGeneratorConfig(),
	}
}

// SampleCounts reports buffer occupancy.
type SampleCounts struct {
	Face       int `json:"face"`
	Arm        int `json:"arm"`
	Expression int `json:"expression"`
}

// Status is the observable state after the latest tick.
type Status struct {
	Nodding              motion.Estimate           `json:"nodding"`
	SmoothedNodAmplitude float64                   `json:"smoothedNodAmplitude"`
	HandRaise            motion.Estimate           `json:"handRaise"`
	Emotion              reaction.Emotion          `json:"emotion"`
	ReactionState        reaction.State            `json:"reactionState"`
	Recommendation       *recommend.Recommendation `json:"recommendation,omitempty"`
	Samples              SampleCounts              `json:"samples"`
	UpdatedAt            int64                     `json:"updatedAt"`
}

// Hooks are optional callbacks. OnRecommendation and OnHandRaise run after
// the tick, outside the engine lock. OnDiagnostic runs during the table
// lookup and must not call back into the engine.
type Hooks struct {
	OnRecommendation func(recommend.Recommendation)
	OnHandRaise      func(raised bool, timestamp int64)
	OnDiagnostic     recommend.Diagnostic
}

// Engine owns the rolling buffers and the per-session analysis state. Ingest
// and Tick may be called from different goroutines.
type Engine struct {
	cfg   Config
	hooks Hooks
	log   zerolog.Logger

	faces       *Buffer[motion.FaceSample]
	arms        *Buffer[motion.ArmSample]
	expressions *Buffer[reaction.ExpressionSample]
	latest      atomic.Int64 // newest frame timestamp ingested

	tablesMu sync.RWMutex
	tables   recommend.Tables

	mu        sync.Mutex
	smoother  motion.Smoother
	smoothed  float64
	raised    bool
	emotion   reaction.Emotion
	generator *recommend.Generator
	status    Status
}

// NewEngine creates an engine using tables for recommendations.
func NewEngine(cfg Config, tables recommend.Tables, hooks Hooks, logger zerolog.Logger) *Engine {
	e := &Engine{
		cfg:         cfg,
		hooks:       hooks,
		log:         logger,
		faces:       NewBuffer[motion.FaceSample](cfg.MotionWindowMs, cfg.MaxSamples),
		arms:        NewBuffer[motion.ArmSample](cfg.MotionWindowMs, cfg.MaxSamples),
		expressions: NewBuffer[reaction.ExpressionSample](cfg.ExpressionWindowMs, cfg.MaxSamples),
		tables:      tables,
		smoother:    motion.Smoother{Alpha: cfg.SmoothingAlpha},
		emotion:     reaction.Neutral,
	}
	e.generator = recommend.NewGenerator(cfg.Generator, nil, e.diagnose)
	return e
}

func (e *Engine) diagnose(table, key string, err error) {
	e.log.Warn().Str("table", table).Str("state", key).Err(err).Msg("mapping entry ignored")
	if e.hooks.OnDiagnostic != nil {
		e.hooks.OnDiagnostic(table, key, err)
	}
}

// Ingest appends the parts of f that are present to the rolling buffers.
func (e *Engine) Ingest(f Frame) {
	e.observe(f.Timestamp)

	if f.Face != nil {
		e.faces.Append(motion.FaceSample{
			Timestamp: f.Timestamp,
			X:         f.Face.X,
			Y:         f.Face.Y,
			Width:     f.Face.Width,
			Height:    f.Face.Height,
		})
	}
	if f.Arm != nil {
		e.arms.Append(motion.ArmSample{
			Timestamp: f.Timestamp,
			WristY:    f.Arm.WristY,
			ShoulderY: f.Arm.ShoulderY,
		})
	}
	if f.Expression != nil {
		e.expressions.Append(reaction.ExpressionSample{
			Timestamp: f.Timestamp,
			Smiling:   f.Expression.Smiling,
			JawOpen:   f.Expression.JawOpen,
		})
	}
}

func (e *Engine) observe(ts int64) {
	for {
		cur := e.latest.Load()
		if ts <= cur || e.latest.CompareAndSwap(cur, ts) {
			return
		}
	}
}

// SetTables replaces the mapping tables used from the next tick on.
func (e *Engine) SetTables(t recommend.Tables) {
	e.tablesMu.Lock()
	defer e.tablesMu.Unlock()
	e.tables = t
}

// Tables returns the active mapping tables.
func (e *Engine) Tables() recommend.Tables {
	e.tablesMu.RLock()
	defer e.tablesMu.RUnlock()
	return e.tables
}

// Tick runs one analysis pass over buffer snapshots. now (ms) stamps the
// recommendation.
func (e *Engine) Tick(now int64) Status {
	latest := e.latest.Load()
	e.faces.Prune(latest)
	e.arms.Prune(latest)
	e.expressions.Prune(latest)

	faces := e.faces.Snapshot()
	arms := e.arms.Snapshot()
	expressions := e.expressions.Snapshot()
	tables := e.Tables()

	e.mu.Lock()

	nod := motion.EstimateNodding(e.cfg.Nodding, faces)
	e.smoothed = e.smoother.Update(e.smoothed, nod.Amplitude)

	hand := motion.EstimateHandRaise(e.cfg.HandRaise, arms, e.raised)
	raiseChanged := hand.IsRaised != e.raised
	e.raised = hand.IsRaised

	class, ok := reaction.Classify(e.cfg.Classifier, expressions, e.emotion)
	var state reaction.State
	if ok {
		e.emotion = class.Emotion
		state = reaction.Compose(e.emotion, e.smoothed, e.cfg.Classifier.NoddingThreshold)
	}

	rec, emitted := e.generator.Update(recommend.Input{
		State:            state,
		NoddingAmplitude: e.smoothed,
		Timestamp:        now,
		SampleCount:      class.SampleCount,
	}, tables)

	e.status = Status{
		Nodding:              nod,
		SmoothedNodAmplitude: e.smoothed,
		HandRaise:            hand,
		Emotion:              e.emotion,
		ReactionState:        state,
		Samples: SampleCounts{
			Face:       len(faces),
			Arm:        len(arms),
			Expression: len(expressions),
		},
		UpdatedAt: now,
	}
	if last, has := e.generator.Last(); has {
		e.status.Recommendation = &last
	}
	status := e.status

	e.mu.Unlock()

	e.log.Debug().
		Float64("nodFreq", nod.Frequency).
		Float64("nodAmp", status.SmoothedNodAmplitude).
		Bool("raised", hand.IsRaised).
		Str("state", string(state)).
		Msg("tick")

	if raiseChanged {
		e.log.Info().Bool("raised", hand.IsRaised).Msg("hand raise changed")
		if e.hooks.OnHandRaise != nil {
			e.hooks.OnHandRaise(hand.IsRaised, now)
		}
	}
	if emitted {
		e.log.Info().
			Str("state", string(rec.ReactionState)).
			Str("eq", rec.EQPreset).
			Float64("volume", rec.VolumeMultiplier).
			Msg("recommendation")
		if e.hooks.OnRecommendation != nil {
			e.hooks.OnRecommendation(rec)
		}
	}

	return status
}

// Status returns the state after the latest tick.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Reset clears every buffer and all hysteresis and smoothing state so a new
// detection session starts fresh.
func (e *Engine) Reset() {
	e.faces.Clear()
	e.arms.Clear()
	e.expressions.Clear()
	e.latest.Store(0)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.smoothed = 0
	e.raised = false
	e.emotion = reaction.Neutral
	e.generator.Reset()
	e.status = Status{}
}
