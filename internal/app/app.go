// Package app wires the camera, the landmark detector and the reaction
// engine together and delivers recommendations to their consumers.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/reactune/internal/capture"
	"github.com/ayusman/reactune/internal/detector"
	"github.com/ayusman/reactune/internal/pipeline"
	"github.com/ayusman/reactune/internal/plugin"
	"github.com/ayusman/reactune/internal/recommend"
	"github.com/ayusman/reactune/internal/store"
)

// ErrNoDetector is returned by Start when no detector is configured.
var ErrNoDetector = errors.New("no landmark detector configured")

// Config holds configuration options for the application.
type Config struct {
	Store     *store.Store // optional session history
	PluginDir string       // optional sink plugins

	Camera   capture.Config
	Detector detector.Config
	Pipeline pipeline.Config
	Tables   recommend.Tables

	SampleInterval   time.Duration
	AnalysisInterval time.Duration
	PluginTimeout    time.Duration

	// Mock selects the scripted detector instead of MediaPipe.
	Mock  bool
	Scene detector.Scene

	// Now is the frame clock. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns a configuration using the default camera and
// mapping tables.
func DefaultConfig() Config {
	return Config{
		Camera:           capture.DefaultConfig(),
		Detector:         detector.DefaultConfig(),
		Pipeline:         pipeline.DefaultConfig(),
		Tables:           recommend.DefaultTables(),
		SampleInterval:   200 * time.Millisecond,
		AnalysisInterval: time.Second,
		PluginTimeout:    5 * time.Second,
	}
}

// App runs the sampling and analysis loops while enabled.
type App struct {
	config       Config
	log          zerolog.Logger
	camera       capture.Camera
	detector     detector.Detector
	detectorName string
	engine       *pipeline.Engine
	pluginMgr    *plugin.Manager
	dispatcher   *plugin.Dispatcher

	subMu       sync.RWMutex
	subscribers []func(recommend.Recommendation)
	raiseSubs   []func(raised bool, timestamp int64)

	mu       sync.Mutex
	stopCh   chan struct{}
	pluginCh chan recommend.Recommendation
	loops    sync.WaitGroup
	session  *store.Session
}

// New creates an App. MediaPipe is used when its landmark service can be
// found; otherwise the scripted detector stands in.
func New(config Config, logger zerolog.Logger) *App {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.SampleInterval <= 0 {
		config.SampleInterval = 200 * time.Millisecond
	}
	if config.AnalysisInterval <= 0 {
		config.AnalysisInterval = time.Second
	}
	if config.Tables.Volume == nil {
		config.Tables = recommend.DefaultTables()
	}

	a := &App{
		config:    config,
		log:       logger,
		camera:    capture.NewCamera(config.Camera),
		pluginMgr: plugin.NewManager(config.PluginDir),
	}
	a.dispatcher = plugin.NewDispatcher(a.pluginMgr, plugin.NewExecutor(config.PluginTimeout), logger)
	a.engine = pipeline.NewEngine(config.Pipeline, config.Tables, pipeline.Hooks{
		OnRecommendation: a.deliver,
		OnHandRaise:      a.handRaised,
		OnDiagnostic: func(table, key string, err error) {
			a.log.Warn().Str("table", table).Str("state", key).Err(err).Msg("mapping entry ignored")
		},
	}, logger)

	if config.Mock {
		a.SetDetector(detector.NewScriptedDetector(config.Scene, config.Now), "scripted")
	} else if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.SetDetector(mp, "mediapipe")
	} else {
		a.log.Warn().Err(err).Msg("MediaPipe not available, using scripted detector")
		a.SetDetector(detector.NewScriptedDetector(config.Scene, config.Now), "scripted")
	}

	return a
}

// SetDetector replaces the landmark detector. It takes effect on the next
// sample.
func (a *App) SetDetector(d detector.Detector, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
	a.detectorName = name
}

// SetCamera replaces the frame source. Call it before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// DiscoverPlugins scans the plugin directory for sink plugins.
func (a *App) DiscoverPlugins() error {
	if a.config.PluginDir == "" {
		return nil
	}
	if err := a.pluginMgr.Discover(); err != nil {
		return fmt.Errorf("discover plugins: %w", err)
	}
	a.log.Info().Int("sinks", len(a.pluginMgr.Sinks())).Str("dir", a.config.PluginDir).Msg("plugins discovered")
	return nil
}

// OnRecommendation registers fn to receive every emitted recommendation. fn
// runs on the analysis goroutine and should not block.
func (a *App) OnRecommendation(fn func(recommend.Recommendation)) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// OnHandRaise registers fn to receive hand raise transitions.
func (a *App) OnHandRaise(fn func(raised bool, timestamp int64)) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	a.raiseSubs = append(a.raiseSubs, fn)
}

// Start opens the camera, begins a session and starts sampling.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if a.detector == nil {
		return ErrNoDetector
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("start detection: %w", err)
	}

	if a.config.Store != nil {
		sess, err := a.config.Store.Sessions().Start(a.config.Camera.DeviceID, a.detectorName)
		if err != nil {
			a.log.Error().Err(err).Msg("failed to record session")
		} else {
			a.session = sess
		}
	}

	a.stopCh = make(chan struct{})
	a.pluginCh = make(chan recommend.Recommendation, 16)
	a.loops.Add(3)
	go a.runSampling(a.stopCh)
	go a.runAnalysis(a.stopCh)
	go a.runPlugins(a.stopCh, a.pluginCh)

	ev := a.log.Info().Str("detector", a.detectorName)
	if a.session != nil {
		ev = ev.Str("session", a.session.ID)
	}
	ev.Msg("detection started")
	return nil
}

// Stop halts sampling, ends the session and clears all per-session analysis
// state.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	a.stopCh = nil
	a.mu.Unlock()

	a.loops.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.camera.Close(); err != nil {
		a.log.Warn().Err(err).Msg("error closing camera")
	}
	if err := a.detector.Close(); err != nil {
		a.log.Warn().Err(err).Msg("error closing detector")
	}
	if a.session != nil {
		if err := a.config.Store.Sessions().End(a.session.ID); err != nil {
			a.log.Warn().Err(err).Str("session", a.session.ID).Msg("failed to end session")
		}
		a.session = nil
	}
	a.pluginCh = nil

	a.engine.Reset()
	a.log.Info().Msg("detection stopped")
}

// SetEnabled starts or stops detection.
func (a *App) SetEnabled(enabled bool) error {
	if enabled {
		return a.Start()
	}
	a.Stop()
	return nil
}

// Enabled reports whether detection is running.
func (a *App) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopCh != nil
}

// Status returns the engine state after the latest analysis tick.
func (a *App) Status() pipeline.Status {
	return a.engine.Status()
}

// Tables returns the active mapping tables.
func (a *App) Tables() recommend.Tables {
	return a.engine.Tables()
}

// SetTables replaces the mapping tables.
func (a *App) SetTables(t recommend.Tables) {
	a.engine.SetTables(t)
}

// Session returns the current session, or nil when stopped or without a
// store.
func (a *App) Session() *store.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Engine returns the reaction engine.
func (a *App) Engine() *pipeline.Engine {
	return a.engine
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// deliver fans a recommendation out to history, plugins and subscribers.
func (a *App) deliver(rec recommend.Recommendation) {
	a.mu.Lock()
	sess := a.session
	pluginCh := a.pluginCh
	a.mu.Unlock()

	if sess != nil {
		if _, err := a.config.Store.Recommendations().Add(sess.ID, rec); err != nil {
			a.log.Error().Err(err).Msg("failed to store recommendation")
		}
	}

	if pluginCh != nil {
		select {
		case pluginCh <- rec:
		default:
			a.log.Warn().Str("state", string(rec.ReactionState)).Msg("plugin queue full, recommendation dropped")
		}
	}

	a.subMu.RLock()
	subs := a.subscribers
	a.subMu.RUnlock()
	for _, fn := range subs {
		fn(rec)
	}
}

func (a *App) handRaised(raised bool, ts int64) {
	a.subMu.RLock()
	subs := a.raiseSubs
	a.subMu.RUnlock()
	for _, fn := range subs {
		fn(raised, ts)
	}
}

func (a *App) runPlugins(stop <-chan struct{}, recs <-chan recommend.Recommendation) {
	defer a.loops.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	for {
		select {
		case <-stop:
			return
		case rec := <-recs:
			a.dispatcher.Apply(ctx, rec)
		}
	}
}
