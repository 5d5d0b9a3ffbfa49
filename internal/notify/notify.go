// Package notify publishes one event per completed run to an optional
// webhook or Redis channel, supplementing spec.md's distillation with a
// feature the teacher's adapter layer exists to provide. This is
// genuinely ambient: it sits off the dedup→dispatch→classify→rules
// path, and a nil-configured Notifier is a no-op, matching
// quarry/metrics's nil-receiver-safe Collector discipline.
package notify

import (
	"context"
	"time"
)

// Event is published once a run's control loop drains.
type Event struct {
	RunID            string    `json:"run_id"`
	ProfileName      string    `json:"profile_name"`
	Outcome          string    `json:"outcome"` // "success" or "partial_failure"
	TasksSucceeded   int       `json:"tasks_succeeded"`
	TasksFailed      int       `json:"tasks_failed"`
	DurationSeconds  float64   `json:"duration_seconds"`
	Timestamp        time.Time `json:"timestamp"`
}

// Adapter publishes a run completion Event to a downstream system.
type Adapter interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Notifier publishes through zero or one configured Adapter. A nil
// Notifier, or one built with no adapter, is a silent no-op -- callers
// never need to check "is notification configured" before using it.
type Notifier struct {
	adapter Adapter
}

// New wraps adapter (which may be nil) in a Notifier.
func New(adapter Adapter) *Notifier {
	return &Notifier{adapter: adapter}
}

// Publish sends event through the configured adapter, if any. A nil
// Notifier or a Notifier with no adapter returns nil without doing
// anything.
func (n *Notifier) Publish(ctx context.Context, event Event) error {
	if n == nil || n.adapter == nil {
		return nil
	}
	return n.adapter.Publish(ctx, event)
}

// Close releases the configured adapter's resources, if any.
func (n *Notifier) Close() error {
	if n == nil || n.adapter == nil {
		return nil
	}
	return n.adapter.Close()
}
