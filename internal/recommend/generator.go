package recommend

import (
	"math"

	"github.com/ayusman/reactune/internal/reaction"
)

// Recommendation is the bundle of audio parameters for the current reaction.
type Recommendation struct {
	ReactionState       reaction.State   `json:"reactionState"`
	DominantEmotion     reaction.Emotion `json:"dominantEmotion"`
	IsNodding           bool             `json:"isNodding"`
	NoddingAmplitude    float64          `json:"noddingAmplitude"`
	EQ                  EQ               `json:"eqVector"`
	EQPreset            string           `json:"eqPreset"`
	VolumeMultiplier    float64          `json:"volumeMultiplier"`
	RhythmicEnhancement float64          `json:"rhythmicEnhancement"`
	ReverbAmount        float64          `json:"reverbAmount"`
	DelayAmount         float64          `json:"delayAmount"`
	Timestamp           int64            `json:"timestamp"`
	SampleCount         int              `json:"sampleCount"`
}

// Input is what the generator sees on one analysis tick.
type Input struct {
	State            reaction.State // empty when the classifier deferred
	NoddingAmplitude float64
	Timestamp        int64
	SampleCount      int
}

// GeneratorConfig sets the change tolerances.
type GeneratorConfig struct {
	ValueTolerance     float64 // volume and effect amounts
	AmplitudeTolerance float64 // nodding amplitude
}

// DefaultGeneratorConfig returns the standard tolerances.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		ValueTolerance:     0.01,
		AmplitudeTolerance: 0.005,
	}
}

// Generator emits a Recommendation only when it differs meaningfully from the
// previous emission. It is not safe for concurrent use.
type Generator struct {
	cfg  GeneratorConfig
	emit func(Recommendation)
	diag Diagnostic

	last     Recommendation
	hasLast  bool
	deferred bool
}

// NewGenerator creates a generator. emit and diag may be nil.
func NewGenerator(cfg GeneratorConfig, emit func(Recommendation), diag Diagnostic) *Generator {
	return &Generator{cfg: cfg, emit: emit, diag: diag}
}

// Update maps in through tables and emits when the result changed. It
// returns the recommendation and whether it was emitted. A deferred tick
// (empty State) never emits, but the next classified tick always does.
func (g *Generator) Update(in Input, tables Tables) (Recommendation, bool) {
	if in.State == "" {
		g.deferred = true
		return g.last, false
	}

	v := tables.Lookup(in.State, g.diag)
	rec := Recommendation{
		ReactionState:       in.State,
		DominantEmotion:     in.State.Emotion(),
		IsNodding:           in.State.IsNodding(),
		NoddingAmplitude:    in.NoddingAmplitude,
		EQ:                  v.EQ,
		EQPreset:            v.EQPreset,
		VolumeMultiplier:    v.Volume,
		RhythmicEnhancement: v.Rhythm,
		ReverbAmount:        v.Reverb,
		DelayAmount:         v.Delay,
		Timestamp:           in.Timestamp,
		SampleCount:         in.SampleCount,
	}

	if g.hasLast && !g.deferred && !g.changed(rec) {
		return rec, false
	}

	g.last, g.hasLast, g.deferred = rec, true, false
	if g.emit != nil {
		g.emit(rec)
	}
	return rec, true
}

func (g *Generator) changed(rec Recommendation) bool {
	prev := g.last
	if rec.ReactionState != prev.ReactionState || rec.EQPreset != prev.EQPreset {
		return true
	}

	pairs := [][2]float64{
		{rec.VolumeMultiplier, prev.VolumeMultiplier},
		{rec.RhythmicEnhancement, prev.RhythmicEnhancement},
		{rec.ReverbAmount, prev.ReverbAmount},
		{rec.DelayAmount, prev.DelayAmount},
	}
	for _, p := range pairs {
		if math.Abs(p[0]-p[1]) > g.cfg.ValueTolerance {
			return true
		}
	}

	return math.Abs(rec.NoddingAmplitude-prev.NoddingAmplitude) > g.cfg.AmplitudeTolerance
}

// Last returns the most recent emission.
func (g *Generator) Last() (Recommendation, bool) {
	return g.last, g.hasLast
}

// Reset forgets the last emission.
func (g *Generator) Reset() {
	g.last, g.hasLast, g.deferred = Recommendation{}, false, false
}
