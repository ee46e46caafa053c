// Package stream publishes recommendations to NATS so an external audio
// engine can apply them.
package stream

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ayusman/reactune/internal/recommend"
)

// DefaultSubject is the subject recommendations are published on.
const DefaultSubject = "reactune.recommendations"

// Connect dials a NATS server with reconnects enabled indefinitely.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("reactune"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher sends each recommendation as one JSON message.
type Publisher struct {
	subject string

	mu   sync.Mutex
	conn conn
}

// NewPublisher connects to url and publishes on subject (DefaultSubject when
// empty).
func NewPublisher(url, subject string) (*Publisher, error) {
	nc, err := Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return newPublisher(nc, subject), nil
}

func newPublisher(c conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{subject: subject, conn: c}
}

// Subject returns the subject messages go to.
func (p *Publisher) Subject() string {
	return p.subject
}

// Publish encodes rec and hands it to the connection. Publishing after Close
// is a no-op.
func (p *Publisher) Publish(rec recommend.Recommendation) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode recommendation: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	return nil
}

// Close drains pending messages and releases the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}
	err := p.conn.Drain()
	p.conn = nil
	return err
}
