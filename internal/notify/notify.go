// Package notify keeps the list of transient user-facing messages. Each
// message removes itself after its duration unless the duration is zero.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/elearn/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

const (
	// DefaultDuration applies when no duration option is given.
	DefaultDuration = 2 * time.Second

	// DefaultPosition applies when no position option is given.
	DefaultPosition = "top-right"
)

// Notification is one message in the list.
type Notification struct {
	ID        string
	Message   string
	Severity  Severity
	Duration  time.Duration // 0 keeps it until removed
	Position  string
	CreatedAt time.Time
}

// Option adjusts a notification before it is added.
type Option func(*Notification)

// WithDuration sets how long the notification stays. Zero means until removed.
func WithDuration(d time.Duration) Option {
	return func(n *Notification) {
		if d < 0 {
			d = 0
		}
		n.Duration = d
	}
}

// WithPosition sets where a renderer should place the notification.
func WithPosition(position string) Option {
	return func(n *Notification) {
		if position != "" {
			n.Position = position
		}
	}
}

// Sink renders notifications as they come and go.
type Sink interface {
	Show(n Notification)
	Dismiss(id string)
}

// Dispatcher owns the notification list.
type Dispatcher struct {
	sink Sink

	mu     sync.Mutex
	items  []Notification
	timers map[string]*time.Timer
}

// New creates a dispatcher. sink may be nil.
func New(sink Sink) *Dispatcher {
	return &Dispatcher{
		sink:   sink,
		timers: make(map[string]*time.Timer),
	}
}

// Add appends a notification and returns its id so the caller can dismiss
// it early.
func (d *Dispatcher) Add(message string, severity Severity, opts ...Option) string {
	n := Notification{
		ID:        newID(),
		Message:   message,
		Severity:  severity,
		Duration:  DefaultDuration,
		Position:  DefaultPosition,
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&n)
	}

	d.mu.Lock()
	d.items = append(d.items, n)
	if n.Duration > 0 {
		id := n.ID
		d.timers[id] = time.AfterFunc(n.Duration, func() {
			d.Remove(id)
		})
	}
	d.mu.Unlock()

	telemetry.GetMetrics().NotificationsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("severity", string(severity))))

	if d.sink != nil {
		d.sink.Show(n)
	}

	return n.ID
}

// Remove deletes the notification with id. Removing an id that is already
// gone does nothing, so an expiry timer racing a manual dismissal is harmless.
func (d *Dispatcher) Remove(id string) {
	d.mu.Lock()

	if t, ok := d.timers[id]; ok {
		t.Stop()
		delete(d.timers, id)
	}

	found := false
	for i, n := range d.items {
		if n.ID == id {
			d.items = append(d.items[:i], d.items[i+1:]...)
			found = true
			break
		}
	}

	d.mu.Unlock()

	if found && d.sink != nil {
		d.sink.Dismiss(id)
	}
}

// ClearAll empties the list and stops pending expiry timers. A timer that
// already fired finds nothing left to remove.
func (d *Dispatcher) ClearAll() {
	d.mu.Lock()

	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}

	removed := d.items
	d.items = nil

	d.mu.Unlock()

	if d.sink != nil {
		for _, n := range removed {
			d.sink.Dismiss(n.ID)
		}
	}
}

// List returns a copy of the current notifications, oldest first.
func (d *Dispatcher) List() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]Notification(nil), d.items...)
}

// Len returns the number of current notifications.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.items)
}

// Success adds a success notification.
func (d *Dispatcher) Success(message string, opts ...Option) string {
	return d.Add(message, SeveritySuccess, opts...)
}

// Error adds an error notification.
func (d *Dispatcher) Error(message string, opts ...Option) string {
	return d.Add(message, SeverityError, opts...)
}

// Warning adds a warning notification.
func (d *Dispatcher) Warning(message string, opts ...Option) string {
	return d.Add(message, SeverityWarning, opts...)
}

// Info adds an info notification.
func (d *Dispatcher) Info(message string, opts ...Option) string {
	return d.Add(message, SeverityInfo, opts...)
}

// newID returns a time-ordered random id.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
