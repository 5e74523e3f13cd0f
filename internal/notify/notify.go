// Package notify announces published documentation commits.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

// PublishedEvent is sent after a non-empty publish commit.
type PublishedEvent struct {
	RunID     string    `json:"run_id"`
	Branch    string    `json:"branch"`
	Commit    string    `json:"commit"`
	Pushed    bool      `json:"pushed"`
	Versions  []string  `json:"versions"`
	Failed    []string  `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers PublishedEvents.
type Notifier interface {
	Notify(ctx context.Context, ev PublishedEvent) error
	Close()
}

// NoopNotifier drops every event.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, PublishedEvent) error { return nil }
func (NoopNotifier) Close()                                       {}

// conn is the subset of *nats.Conn the notifier uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSNotifier publishes events as JSON on a core NATS subject.
type NATSNotifier struct {
	conn    conn
	subject string
}

// NewNATSNotifier connects to url. The connection is owned by the notifier.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("docpublish"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS notifier connected", slog.String("url", nc.ConnectedUrlRedacted()), slog.String("subject", subject))
	return &NATSNotifier{conn: nc, subject: subject}, nil
}

// Notify publishes ev and waits for the server to acknowledge the flush.
func (n *NATSNotifier) Notify(ctx context.Context, ev PublishedEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	slog.Debug("Published notification", logfields.RunID(ev.RunID), logfields.Commit(ev.Commit), slog.String("subject", n.subject))
	return nil
}

// Close closes the connection.
func (n *NATSNotifier) Close() {
	if n != nil && n.conn != nil {
		n.conn.Close()
	}
}
