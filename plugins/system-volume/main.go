// Package main provides a sink plugin for macOS that scales the system output
// volume by the recommended volume multiplier.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	State  string          `json:"state"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// config is the plugin section of plugin.json.
type config struct {
	// BaseVolume is the output volume (0-100) a multiplier of 1 maps to.
	BaseVolume float64 `json:"baseVolume"`
}

type recommendation struct {
	ReactionState    string  `json:"reactionState"`
	VolumeMultiplier float64 `json:"volumeMultiplier"`
}

type actionHandler func(cfg config, params json.RawMessage) (any, error)

var actionHandlers = map[string]actionHandler{
	"apply": apply,
	"reset": reset,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	cfg := config{BaseVolume: 50}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	data, err := handler(cfg, req.Params)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}
	writeSuccessResponse(data)
}

func apply(cfg config, params json.RawMessage) (any, error) {
	var rec recommendation
	if err := json.Unmarshal(params, &rec); err != nil {
		return nil, fmt.Errorf("invalid recommendation: %w", err)
	}
	if rec.VolumeMultiplier <= 0 || math.IsNaN(rec.VolumeMultiplier) {
		return nil, fmt.Errorf("invalid volume multiplier %v", rec.VolumeMultiplier)
	}

	level := targetVolume(cfg.BaseVolume, rec.VolumeMultiplier)
	if err := setVolume(level); err != nil {
		return nil, err
	}
	return map[string]any{"volume": level, "state": rec.ReactionState}, nil
}

func reset(cfg config, _ json.RawMessage) (any, error) {
	level := targetVolume(cfg.BaseVolume, 1)
	if err := setVolume(level); err != nil {
		return nil, err
	}
	return map[string]any{"volume": level}, nil
}

// targetVolume scales base and clamps to the 0-100 range osascript accepts.
func targetVolume(base, multiplier float64) int {
	v := math.Round(base * multiplier)
	return int(math.Max(0, math.Min(100, v)))
}

func setVolume(level int) error {
	return runAppleScript(fmt.Sprintf("set volume output volume %d", level))
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse(data any) {
	resp := Response{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err == nil {
			resp.Data = raw
		}
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
