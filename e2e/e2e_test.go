package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/reactune/internal/app"
	"github.com/ayusman/reactune/internal/capture"
	"github.com/ayusman/reactune/internal/detector"
	"github.com/ayusman/reactune/internal/reaction"
	"github.com/ayusman/reactune/internal/recommend"
	"github.com/ayusman/reactune/internal/server"
	"github.com/ayusman/reactune/internal/store"
)

func TestE2E_DetectionWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	cfg := app.DefaultConfig()
	cfg.Store = s
	cfg.PluginDir = filepath.Join(tmpDir, "plugins")
	cfg.Mock = true
	cfg.Scene = detector.Scene{Smiling: 0.7}
	cfg.SampleInterval = 50 * time.Millisecond
	cfg.AnalysisInterval = 200 * time.Millisecond

	application := app.New(cfg, zerolog.Nop())
	application.SetCamera(capture.NewMockCamera(64, 48))
	if err := application.DiscoverPlugins(); err != nil {
		t.Fatalf("DiscoverPlugins() error = %v", err)
	}
	defer application.Stop()

	hub := server.NewHub(zerolog.Nop())
	application.OnRecommendation(hub.Broadcast)

	ts := httptest.NewServer(server.New(server.Config{
		Store:      s,
		Controller: application,
		Mappings:   application,
		Hub:        hub,
	}))
	defer ts.Close()
	client := ts.Client()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/reactions", nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	put := func(body string) {
		t.Helper()
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/detection", strings.NewReader(body))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/detection error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("PUT /api/detection status = %d", resp.StatusCode)
		}
	}

	put(`{"enabled":true}`)

	t.Run("ReceiveRecommendation", func(t *testing.T) {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var rec recommend.Recommendation
		if err := conn.ReadJSON(&rec); err != nil {
			t.Fatalf("read error = %v", err)
		}
		if rec.ReactionState != reaction.StateHappy {
			t.Errorf("reactionState = %s, want happy", rec.ReactionState)
		}
		if rec.VolumeMultiplier != 1.0 {
			t.Errorf("volumeMultiplier = %v, want 1.0", rec.VolumeMultiplier)
		}
	})

	t.Run("Status", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/status")
		if err != nil {
			t.Fatalf("GET /api/status error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Enabled bool `json:"enabled"`
			Status  struct {
				Emotion string `json:"emotion"`
			} `json:"status"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if !body.Enabled || body.Status.Emotion != "happy" {
			t.Errorf("unexpected status %+v", body)
		}
	})

	put(`{"enabled":false}`)

	t.Run("SessionHistory", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions")
		if err != nil {
			t.Fatalf("GET /api/sessions error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Sessions []store.Session `json:"sessions"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if len(body.Sessions) != 1 {
			t.Fatalf("sessions = %d, want 1", len(body.Sessions))
		}
		sess := body.Sessions[0]
		if sess.EndedAt == nil {
			t.Error("session should be ended after disabling detection")
		}
		if sess.Recommendations < 1 {
			t.Errorf("recommendations = %d, want at least 1", sess.Recommendations)
		}
	})
}
