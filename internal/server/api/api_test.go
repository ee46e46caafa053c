package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/reactune/internal/pipeline"
	"github.com/ayusman/reactune/internal/reaction"
	"github.com/ayusman/reactune/internal/recommend"
	"github.com/ayusman/reactune/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)

	t.Run("empty list is an empty array", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != `{"sessions":[]}` {
			t.Errorf("unexpected body %s", got)
		}
	})

	for i := 0; i < 3; i++ {
		if _, err := s.Sessions().Start(i, "mock"); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
	}

	t.Run("limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions?limit=2", nil))

		var resp listSessionsResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Sessions) != 2 {
			t.Errorf("expected 2 sessions, got %d", len(resp.Sessions))
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions?limit=x", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("collection only allows GET", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestSessionHandler_Item(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)

	sess, _ := s.Sessions().Start(0, "mock")
	s.Recommendations().Add(sess.ID, recommend.Recommendation{
		ReactionState:    reaction.StateNoddingNeutral,
		VolumeMultiplier: 1.15,
		Timestamp:        5,
	})

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID, nil))

		var got store.Session
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.ID != sess.ID || got.Recommendations != 1 {
			t.Errorf("unexpected session %+v", got)
		}
	})

	t.Run("recommendations", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/recommendations", nil))

		var resp listRecommendationsResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Recommendations) != 1 || resp.Recommendations[0].VolumeMultiplier != 1.15 {
			t.Errorf("unexpected recommendations %+v", resp.Recommendations)
		}
	})

	t.Run("unknown subresource", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/frames", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sess.ID, nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
		}

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/recommendations", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d after delete, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

type stubController struct {
	enabled bool
	err     error
}

func (s *stubController) Status() pipeline.Status {
	return pipeline.Status{Emotion: reaction.Surprised, ReactionState: reaction.StateSurprised}
}
func (s *stubController) Enabled() bool { return s.enabled }
func (s *stubController) SetEnabled(enabled bool) error {
	if s.err != nil {
		return s.err
	}
	s.enabled = enabled
	return nil
}

func TestStatusHandler(t *testing.T) {
	ctrl := &stubController{}
	h := NewStatusHandler(ctrl)

	rec := httptest.NewRecorder()
	h.ServeStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var resp statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Enabled || resp.Status.ReactionState != reaction.StateSurprised {
		t.Errorf("unexpected status %+v", resp)
	}

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"enable", http.MethodPut, `{"enabled":true}`, http.StatusOK},
		{"missing field", http.MethodPut, `{}`, http.StatusBadRequest},
		{"garbage", http.MethodPut, `{`, http.StatusBadRequest},
		{"wrong method", http.MethodPost, `{"enabled":false}`, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeDetection(rec, httptest.NewRequest(tt.method, "/api/detection", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}

	if !ctrl.enabled {
		t.Error("expected controller to be enabled")
	}
}

type tablesFunc func() recommend.Tables

func (f tablesFunc) Tables() recommend.Tables { return f() }

func TestMappingsHandler(t *testing.T) {
	h := NewMappingsHandler(tablesFunc(recommend.DefaultTables))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/mappings", nil))

	var resp struct {
		Tables  recommend.Tables `json:"tables"`
		Presets []string         `json:"presets"`
		Bands   []string         `json:"bands"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Tables.Volume[reaction.StateNoddingHappy] != 1.3 {
		t.Errorf("expected nodding+happy volume 1.3, got %v", resp.Tables.Volume[reaction.StateNoddingHappy])
	}
	if len(resp.Bands) != 6 {
		t.Errorf("expected 6 bands, got %d", len(resp.Bands))
	}
	if len(resp.Presets) == 0 || resp.Presets[0] != "bass_boost" {
		t.Errorf("expected sorted presets, got %v", resp.Presets)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/mappings", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
