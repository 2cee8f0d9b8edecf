// Package events publishes build lifecycle events to NATS JetStream when the
// events section of the configuration is enabled.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/blogforge/internal/config"
)

// Event types published on the build subject.
const (
	TypeBuildStarted   = "started"
	TypeBuildCompleted = "completed"
	TypeBuildFailed    = "failed"
)

// BuildEvent is the JSON payload published for every build transition.
type BuildEvent struct {
	BuildID   string    `json:"build_id"`
	Type      string    `json:"type"`
	Mode      string    `json:"mode"`
	Documents int       `json:"documents,omitempty"`
	Duration  int64     `json:"duration_ms,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher manages the NATS connection and JetStream stream for build events.
type Publisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewPublisher connects to NATS and ensures the build-event stream exists.
func NewPublisher(ctx context.Context, cfg config.EventsConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("event publishing is disabled")
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("blogforge"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.Subject + ".>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.Stream, err)
	}

	slog.Info("Event publisher initialized", "url", cfg.URL, "subject", cfg.Subject, "stream", cfg.Stream)

	return &Publisher{conn: conn, js: js, subject: cfg.Subject}, nil
}

// Publish sends one build event. The subject is suffixed with the event type
// so consumers can subscribe to a subset (e.g. blogforge.build.failed).
func (p *Publisher) Publish(ctx context.Context, event BuildEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal build event: %w", err)
	}

	subject := p.subject + "." + event.Type
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			slog.Warn("Error draining NATS connection", "error", err)
		}
	}
}
