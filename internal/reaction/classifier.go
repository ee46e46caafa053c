package reaction

// ExpressionSample holds blend-shape intensities in [0,1] observed at
// Timestamp (ms).
type ExpressionSample struct {
	Timestamp int64   `json:"timestamp"`
	Smiling   float64 `json:"smiling"`
	JawOpen   float64 `json:"jawOpen"`
}

// SampleTime implements the pipeline buffer's timestamp accessor.
func (s ExpressionSample) SampleTime() int64 { return s.Timestamp }

// Config holds classifier thresholds.
type Config struct {
	WindowMs            int64   // window length measured back from the newest sample
	MinSamples          int     // fewer samples in the window means no classification
	ActivateThreshold   float64 // mean intensity above which an emotion activates
	DeactivateThreshold float64 // mean intensity below which an active emotion releases
	NoddingThreshold    float64 // nodding amplitude above which the nodding modifier applies
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		WindowMs:            1000,
		MinSamples:          3,
		ActivateThreshold:   0.1,
		DeactivateThreshold: 0.05,
		NoddingThreshold:    0.005,
	}
}

// Classification is the outcome of one Classify call.
type Classification struct {
	Emotion     Emotion `json:"emotion"`
	SampleCount int     `json:"sampleCount"`
	MeanSmiling float64 `json:"meanSmiling"`
	MeanJawOpen float64 `json:"meanJawOpen"`
}

// Classify picks the dominant emotion over the samples in the window. prev is
// the emotion returned by the previous successful call (Neutral initially).
//
// An active emotion is sticky until its mean drops below the deactivate
// threshold. When nothing is active, happy is checked before surprised. ok is
// false when the window holds fewer than MinSamples samples; the caller keeps
// its previous state in that case.
func Classify(cfg Config, samples []ExpressionSample, prev Emotion) (Classification, bool) {
	if len(samples) == 0 {
		return Classification{}, false
	}

	newest := samples[0].Timestamp
	for _, s := range samples[1:] {
		newest = max(newest, s.Timestamp)
	}
	cutoff := newest - cfg.WindowMs

	var c Classification
	var smiling, jaw float64
	for _, s := range samples {
		if s.Timestamp < cutoff {
			continue
		}
		smiling += s.Smiling
		jaw += s.JawOpen
		c.SampleCount++
	}
	if c.SampleCount < cfg.MinSamples {
		return Classification{SampleCount: c.SampleCount}, false
	}

	c.MeanSmiling = smiling / float64(c.SampleCount)
	c.MeanJawOpen = jaw / float64(c.SampleCount)

	switch prev {
	case Happy:
		if c.MeanSmiling >= cfg.DeactivateThreshold {
			c.Emotion = Happy
			return c, true
		}
	case Surprised:
		if c.MeanJawOpen >= cfg.DeactivateThreshold {
			c.Emotion = Surprised
			return c, true
		}
	}

	switch {
	case c.MeanSmiling > cfg.ActivateThreshold:
		c.Emotion = Happy
	case c.MeanJawOpen > cfg.ActivateThreshold:
		c.Emotion = Surprised
	default:
		c.Emotion = Neutral
	}
	return c, true
}
