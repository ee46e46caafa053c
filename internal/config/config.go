// Package config loads application settings from environment variables and
// command-line flags, and the audio mapping tables from an optional file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ayusman/reactune/internal/recommend"
)

// Config holds application settings.
type Config struct {
	Addr             string
	DataDir          string
	StaticDir        string
	CameraID         int
	MappingsPath     string
	PluginDir        string
	NATSURL          string
	NATSSubject      string
	LogLevel         string
	SampleInterval   time.Duration
	AnalysisInterval time.Duration
	Tray             bool
	Mock             bool
}

// DefaultConfig returns the settings used when nothing is overridden. Paths
// live under ~/.reactune.
func DefaultConfig() Config {
	dataDir := ".reactune"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".reactune")
	}

	return Config{
		Addr:             ":8080",
		DataDir:          dataDir,
		PluginDir:        filepath.Join(dataDir, "plugins"),
		NATSSubject:      "reactune.recommendations",
		LogLevel:         "info",
		SampleInterval:   200 * time.Millisecond,
		AnalysisInterval: time.Second,
	}
}

// DBPath returns the SQLite database location.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "reactune.db")
}

// Load builds the configuration. Environment variables (REACTUNE_*) override
// the defaults and flags override both. getenv is usually os.Getenv.
func Load(args []string, getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("reactune", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the database")
	fs.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "directory served at / (optional)")
	fs.IntVar(&cfg.CameraID, "camera", cfg.CameraID, "camera device ID")
	fs.StringVar(&cfg.MappingsPath, "mappings", cfg.MappingsPath, "JSON file overriding the audio mapping tables")
	fs.StringVar(&cfg.PluginDir, "plugin-dir", cfg.PluginDir, "directory of sink plugins")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server for recommendations (empty disables)")
	fs.StringVar(&cfg.NATSSubject, "nats-subject", cfg.NATSSubject, "NATS subject for recommendations")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.DurationVar(&cfg.SampleInterval, "sample-interval", cfg.SampleInterval, "landmark sampling period")
	fs.DurationVar(&cfg.AnalysisInterval, "analysis-interval", cfg.AnalysisInterval, "analysis tick period")
	fs.BoolVar(&cfg.Tray, "tray", cfg.Tray, "show the system tray icon")
	fs.BoolVar(&cfg.Mock, "mock", cfg.Mock, "use a scripted detector instead of the camera")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.SampleInterval <= 0 {
		return errors.New("sample interval must be positive")
	}
	if c.AnalysisInterval < c.SampleInterval {
		return fmt.Errorf("analysis interval %s is shorter than sample interval %s", c.AnalysisInterval, c.SampleInterval)
	}
	if c.CameraID < 0 {
		return fmt.Errorf("invalid camera id %d", c.CameraID)
	}
	if c.DataDir == "" {
		return errors.New("data dir must be set")
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	str("REACTUNE_ADDR", &cfg.Addr)
	if v := getenv("REACTUNE_DATA_DIR"); v != "" {
		cfg.DataDir = v
		cfg.PluginDir = filepath.Join(v, "plugins")
	}
	str("REACTUNE_STATIC_DIR", &cfg.StaticDir)
	str("REACTUNE_MAPPINGS", &cfg.MappingsPath)
	str("REACTUNE_PLUGIN_DIR", &cfg.PluginDir)
	str("REACTUNE_NATS_URL", &cfg.NATSURL)
	str("REACTUNE_NATS_SUBJECT", &cfg.NATSSubject)
	str("REACTUNE_LOG_LEVEL", &cfg.LogLevel)

	if v := getenv("REACTUNE_CAMERA"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REACTUNE_CAMERA: %w", err)
		}
		cfg.CameraID = n
	}
	for key, dst := range map[string]*time.Duration{
		"REACTUNE_SAMPLE_INTERVAL":   &cfg.SampleInterval,
		"REACTUNE_ANALYSIS_INTERVAL": &cfg.AnalysisInterval,
	} {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	for key, dst := range map[string]*bool{
		"REACTUNE_TRAY": &cfg.Tray,
		"REACTUNE_MOCK": &cfg.Mock,
	} {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	return nil
}

// LoadMappings returns the default tables overlaid with the entries in path.
// An empty path yields the defaults. Entries that cannot be used are passed
// to diag and skipped.
func LoadMappings(path string, diag recommend.Diagnostic) (recommend.Tables, error) {
	tables := recommend.DefaultTables()
	if path == "" {
		return tables, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return recommend.Tables{}, fmt.Errorf("read mappings: %w", err)
	}

	overrides, err := recommend.DecodeTables(data, diag)
	if err != nil {
		return recommend.Tables{}, fmt.Errorf("parse mappings %s: %w", path, err)
	}
	return tables.Overlay(overrides), nil
}
