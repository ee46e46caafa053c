package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/reactune/internal/app"
	"github.com/ayusman/reactune/internal/capture"
	"github.com/ayusman/reactune/internal/config"
	"github.com/ayusman/reactune/internal/log"
	"github.com/ayusman/reactune/internal/recommend"
	"github.com/ayusman/reactune/internal/server"
	"github.com/ayusman/reactune/internal/store"
	"github.com/ayusman/reactune/internal/stream"
	"github.com/ayusman/reactune/internal/tray"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "reactune: %v\n", err)
		os.Exit(2)
	}

	log.Init(cfg.LogLevel, nil)
	if err := run(cfg); err != nil {
		log.L().Fatal().Err(err).Msg("reactune failed")
	}
}

func run(cfg config.Config) error {
	logger := log.With("main")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	tables, err := config.LoadMappings(cfg.MappingsPath, func(table, key string, err error) {
		logger.Warn().Str("table", table).Str("state", key).Err(err).Msg("mapping entry ignored")
	})
	if err != nil {
		return err
	}

	appCfg := app.DefaultConfig()
	appCfg.Store = st
	appCfg.PluginDir = cfg.PluginDir
	appCfg.Camera = capture.DefaultConfig()
	appCfg.Camera.DeviceID = cfg.CameraID
	appCfg.Tables = tables
	appCfg.SampleInterval = cfg.SampleInterval
	appCfg.AnalysisInterval = cfg.AnalysisInterval
	appCfg.Mock = cfg.Mock

	application := app.New(appCfg, log.With("app"))
	if cfg.Mock {
		application.SetCamera(capture.NewMockCamera(640, 480))
	}
	if err := application.DiscoverPlugins(); err != nil {
		logger.Warn().Err(err).Msg("plugin discovery failed")
	}

	hub := server.NewHub(log.With("ws"))
	application.OnRecommendation(hub.Broadcast)

	if cfg.NATSURL != "" {
		pub, err := stream.NewPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logger.Warn().Err(err).Msg("NATS unavailable, recommendations will not be published")
		} else {
			defer pub.Close()
			natsLog := log.With("nats")
			application.OnRecommendation(func(rec recommend.Recommendation) {
				if err := pub.Publish(rec); err != nil {
					natsLog.Warn().Err(err).Msg("publish failed")
				}
			})
			logger.Info().Str("subject", pub.Subject()).Msg("publishing recommendations to NATS")
		}
	}

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: server.New(server.Config{
			StaticDir:  staticDir,
			Store:      st,
			Controller: application,
			Mappings:   application,
			Hub:        hub,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if err := application.Start(); err != nil {
		logger.Error().Err(err).Msg("detection did not start")
	}

	if cfg.Tray {
		// The tray loop must own the main goroutine.
		t := newTray(application, cfg.Addr, stop)
		go func() {
			select {
			case <-ctx.Done():
			case err := <-serverErr:
				if err != nil {
					logger.Error().Err(err).Msg("server failed")
				}
			}
			t.Quit()
		}()
		t.Run()
	} else {
		select {
		case <-ctx.Done():
		case err := <-serverErr:
			if err != nil {
				application.Stop()
				return fmt.Errorf("server failed: %w", err)
			}
		}
	}

	logger.Info().Msg("shutting down")
	application.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newTray(application *app.App, addr string, quit func()) *tray.Tray {
	trayLog := log.With("tray")
	t := tray.New(application.Enabled())
	t.OnToggle(func(enabled bool) {
		if err := application.SetEnabled(enabled); err != nil {
			trayLog.Error().Err(err).Msg("toggle detection failed")
			t.SetEnabled(application.Enabled())
		}
	})
	t.OnDashboard(func() {
		openBrowser(dashboardURL(addr))
	})
	t.OnQuit(quit)

	application.OnRecommendation(t.SetRecommendation)
	application.OnHandRaise(func(raised bool, _ int64) {
		t.SetHandRaised(raised)
	})
	return t
}

func dashboardURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		l := log.With("tray")
		l.Warn().Err(err).Str("url", url).Msg("open browser failed")
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
