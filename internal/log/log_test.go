package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInit_ProductionJSON(t *testing.T) {
	t.Setenv("REACTUNE_ENV", "production")

	var buf bytes.Buffer
	Init("warn", &buf)

	l := With("engine")
	l.Info().Msg("hidden")
	l.Warn().Str("table", "eq").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line at warn level, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["component"] != "engine" || entry["table"] != "eq" || entry["message"] != "shown" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestInit_UnknownLevelMeansInfo(t *testing.T) {
	t.Setenv("REACTUNE_ENV", "production")

	var buf bytes.Buffer
	Init("chatty", &buf)

	L().Debug().Msg("hidden")
	L().Info().Msg("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message logged at default level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("info message missing")
	}
}

func TestInit_ConsoleFormat(t *testing.T) {
	t.Setenv("REACTUNE_ENV", "")

	var buf bytes.Buffer
	Init("info", &buf)
	l := With("app")
	l.Info().Msg("started")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("expected console output, got %q", out)
	}
	if !strings.Contains(out, "started") {
		t.Errorf("message missing from %q", out)
	}
}
