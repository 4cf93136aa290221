// Package events publishes pipeline notifications over NATS. Messaging is
// best-effort: a missing or unreachable broker never blocks the request
// path.
package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectTasksGenerated announces a completed generation run.
	SubjectTasksGenerated = "fitagent.tasks.generated"
)

// TasksGenerated is the payload published after a plan is persisted.
type TasksGenerated struct {
	UserID    string    `json:"user_id"`
	GoalID    string    `json:"goal_id"`
	GoalType  string    `json:"goal_type"`
	TaskCount int       `json:"task_count"`
	At        time.Time `json:"at"`
}

// Publisher emits events to NATS. The zero value and a nil *Publisher are
// both safe no-ops, so callers never branch on whether messaging is
// configured.
type Publisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// Connect dials the broker. An empty URL returns a no-op publisher.
func Connect(url string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("fitagent"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc, logger: logger}, nil
}

// Publish serializes the payload and emits it on the subject. Failures are
// logged, not returned.
func (p *Publisher) Publish(subject string, payload any) {
	if p == nil || p.nc == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("event payload marshal failed", "subject", subject, "error", err)
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn("event publish failed", "subject", subject, "error", err)
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("draining event connection failed", "error", err)
	}
}
