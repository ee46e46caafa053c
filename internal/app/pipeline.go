package app

import (
	"time"
)

// runSampling reads a frame every SampleInterval, runs landmark detection
// and feeds the result to the engine.
func (a *App) runSampling(stop <-chan struct{}) {
	defer a.loops.Done()

	ticker := time.NewTicker(a.config.SampleInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := a.sample(); err != nil {
				failures++
				// Log the first failure and then every 50th to keep a dead
				// camera from flooding the log.
				if failures == 1 || failures%50 == 0 {
					a.log.Warn().Err(err).Int("failures", failures).Msg("sample failed")
				}
				continue
			}
			if failures > 0 {
				a.log.Info().Int("failures", failures).Msg("sampling recovered")
				failures = 0
			}
		}
	}
}

// sample captures and ingests one frame.
func (a *App) sample() error {
	a.mu.Lock()
	cam, det := a.camera, a.detector
	a.mu.Unlock()

	frame, err := cam.ReadFrame()
	if err != nil {
		return err
	}
	ts := a.config.Now().UnixMilli()
	result, err := det.Detect(frame)
	frame.Close()
	if err != nil {
		return err
	}

	a.engine.Ingest(result.Frame(ts, a.config.Detector.MinVisibility))
	return nil
}

// runAnalysis ticks the engine every AnalysisInterval.
func (a *App) runAnalysis(stop <-chan struct{}) {
	defer a.loops.Done()

	ticker := time.NewTicker(a.config.AnalysisInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.analyze()
		}
	}
}

func (a *App) analyze() {
	a.engine.Tick(a.config.Now().UnixMilli())
}
