package stream

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ayusman/reactune/internal/reaction"
	"github.com/ayusman/reactune/internal/recommend"
)

type fakeConn struct {
	subjects []string
	messages [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "")

	if p.Subject() != DefaultSubject {
		t.Errorf("expected default subject, got %q", p.Subject())
	}

	rec := recommend.Recommendation{
		ReactionState:    reaction.StateNoddingHappy,
		VolumeMultiplier: 1.3,
		Timestamp:        42,
	}
	if err := p.Publish(rec); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(fc.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fc.messages))
	}
	var got map[string]any
	if err := json.Unmarshal(fc.messages[0], &got); err != nil {
		t.Fatalf("message is not JSON: %v", err)
	}
	if got["reactionState"] != "nodding+happy" {
		t.Errorf("expected reactionState nodding+happy, got %v", got["reactionState"])
	}
	if got["volumeMultiplier"] != 1.3 {
		t.Errorf("expected volumeMultiplier 1.3, got %v", got["volumeMultiplier"])
	}
}

func TestPublisher_Error(t *testing.T) {
	boom := errors.New("boom")
	p := newPublisher(&fakeConn{err: boom}, "custom")

	if err := p.Publish(recommend.Recommendation{}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestPublisher_Close(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "x")

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !fc.drained {
		t.Error("expected connection to be drained")
	}
	if err := p.Publish(recommend.Recommendation{}); err != nil {
		t.Errorf("publish after close should be a no-op, got %v", err)
	}
	if len(fc.messages) != 0 {
		t.Errorf("expected no messages after close, got %d", len(fc.messages))
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close should succeed, got %v", err)
	}
}

func TestPublisher_Server(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping NATS test in short mode")
	}
	url := os.Getenv("REACTUNE_TEST_NATS_URL")
	if url == "" {
		t.Skip("REACTUNE_TEST_NATS_URL not set")
	}

	sub, err := Connect(url)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	if _, err := sub.ChanSubscribe("reactune.test", msgs); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	sub.Flush()

	p, err := NewPublisher(url, "reactune.test")
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	defer p.Close()

	if err := p.Publish(recommend.Recommendation{ReactionState: reaction.StateHappy}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-msgs:
		var rec recommend.Recommendation
		if err := json.Unmarshal(msg.Data, &rec); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if rec.ReactionState != reaction.StateHappy {
			t.Errorf("expected happy, got %s", rec.ReactionState)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
