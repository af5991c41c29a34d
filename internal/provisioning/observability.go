package provisioning

import (
	"fmt"
	"sync"
	"time"
)

// Logger is the minimal logging surface of a step.
type Logger interface {
	Printf(format string, v ...any)
}

// Observer defines the interface for structured observability during provisioning.
type Observer interface {
	Logger

	// Event emits a structured event
	Event(event Event)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType         // Type of event
	Step      string            // Step name (e.g., "packages", "proxy")
	Message   string            // Human-readable message
	Resource  string            // Resource name if applicable
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of provisioning event.
type EventType string

const (
	// EventPipelineStarted is emitted once before the first step.
	EventPipelineStarted EventType = "pipeline.started"
	// EventPipelineCompleted is emitted once after the last step.
	EventPipelineCompleted EventType = "pipeline.completed"

	// EventStepStarted indicates a step has started.
	EventStepStarted EventType = "step.started"
	// EventStepCompleted indicates a step completed successfully.
	EventStepCompleted EventType = "step.completed"
	// EventStepFailed indicates a step failed and the pipeline stops.
	EventStepFailed EventType = "step.failed"
	// EventStepWarning indicates a soft failure; the pipeline continues.
	EventStepWarning EventType = "step.warning"

	// EventResourceCreated indicates a resource was created.
	EventResourceCreated EventType = "resource.created"
	// EventResourceExists indicates a resource already exists and was reused.
	EventResourceExists EventType = "resource.exists"
	// EventResourceUpdated indicates an existing resource was updated in place.
	EventResourceUpdated EventType = "resource.updated"
	// EventResourceSkipped indicates a resource was deliberately left alone.
	EventResourceSkipped EventType = "resource.skipped"

	// EventDiff carries a unified diff of a rewritten file in Message.
	EventDiff EventType = "file.diff"
)

// NopObserver discards everything.
type NopObserver struct{}

// Printf implements Logger.
func (NopObserver) Printf(string, ...any) {}

// Event implements Observer.
func (NopObserver) Event(Event) {}

// WithFields implements Observer.
func (n NopObserver) WithFields(map[string]string) Observer { return n }

// RecordingObserver keeps every event and message in memory.
type RecordingObserver struct {
	mu       sync.Mutex
	events   []Event
	messages []string
	fields   map[string]string
	parent   *RecordingObserver
}

// NewRecordingObserver returns an empty recorder.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{fields: map[string]string{}}
}

func (r *RecordingObserver) root() *RecordingObserver {
	if r.parent != nil {
		return r.parent.root()
	}
	return r
}

// Printf implements Logger.
func (r *RecordingObserver) Printf(format string, v ...any) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.messages = append(root.messages, fmt.Sprintf(format, v...))
}

// Event implements Observer.
func (r *RecordingObserver) Event(e Event) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	for k, v := range r.fields {
		if _, ok := e.Fields[k]; !ok {
			e.Fields[k] = v
		}
	}
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.events = append(root.events, e)
}

// WithFields implements Observer. Children record into the same log.
func (r *RecordingObserver) WithFields(fields map[string]string) Observer {
	merged := make(map[string]string, len(r.fields)+len(fields))
	for k, v := range r.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &RecordingObserver{fields: merged, parent: r}
}

// Events returns recorded events.
func (r *RecordingObserver) Events() []Event {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	return append([]Event(nil), root.events...)
}

// Messages returns recorded Printf output.
func (r *RecordingObserver) Messages() []string {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	return append([]string(nil), root.messages...)
}

// OfType returns recorded events of type t.
func (r *RecordingObserver) OfType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Helper functions for common events

// LogStepStart logs a step start event.
func LogStepStart(observer Observer, step string, index, total int) {
	observer.Event(Event{
		Type:    EventStepStarted,
		Step:    step,
		Message: fmt.Sprintf("step %d/%d", index, total),
		Fields: map[string]string{
			"index": fmt.Sprint(index),
			"total": fmt.Sprint(total),
		},
	})
}

// LogStepComplete logs a step completion event.
func LogStepComplete(observer Observer, step string, outcome Outcome, duration time.Duration) {
	observer.Event(Event{
		Type:    EventStepCompleted,
		Step:    step,
		Message: fmt.Sprintf("%s in %v", outcome, duration.Round(time.Millisecond)),
		Fields: map[string]string{
			"outcome": outcome.String(),
		},
	})
}

// LogStepFailed logs a step failure event.
func LogStepFailed(observer Observer, step string, err error, remedy string) {
	observer.Event(Event{
		Type:    EventStepFailed,
		Step:    step,
		Message: err.Error(),
		Fields: map[string]string{
			"remedy": remedy,
		},
	})
}

// LogStepWarning logs a soft failure.
func LogStepWarning(observer Observer, step, message, remedy string) {
	observer.Event(Event{
		Type:    EventStepWarning,
		Step:    step,
		Message: message,
		Fields: map[string]string{
			"remedy": remedy,
		},
	})
}

// LogResourceCreated logs a successful resource creation event.
func LogResourceCreated(observer Observer, step, resourceType, resourceName string) {
	observer.Event(Event{
		Type:     EventResourceCreated,
		Step:     step,
		Resource: resourceName,
		Message:  fmt.Sprintf("%s created", resourceType),
		Fields: map[string]string{
			"type": resourceType,
		},
	})
}

// LogResourceExists logs when a resource already exists.
func LogResourceExists(observer Observer, step, resourceType, resourceName string) {
	observer.Event(Event{
		Type:     EventResourceExists,
		Step:     step,
		Resource: resourceName,
		Message:  fmt.Sprintf("%s already exists", resourceType),
		Fields: map[string]string{
			"type": resourceType,
		},
	})
}

// LogResourceUpdated logs an in-place update.
func LogResourceUpdated(observer Observer, step, resourceType, resourceName, detail string) {
	msg := fmt.Sprintf("%s updated", resourceType)
	if detail != "" {
		msg += " (" + detail + ")"
	}
	observer.Event(Event{
		Type:     EventResourceUpdated,
		Step:     step,
		Resource: resourceName,
		Message:  msg,
		Fields: map[string]string{
			"type": resourceType,
		},
	})
}

// LogResourceSkipped logs a resource left untouched on purpose.
func LogResourceSkipped(observer Observer, step, resourceType, resourceName, reason string) {
	observer.Event(Event{
		Type:     EventResourceSkipped,
		Step:     step,
		Resource: resourceName,
		Message:  fmt.Sprintf("%s skipped: %s", resourceType, reason),
		Fields: map[string]string{
			"type":   resourceType,
			"reason": reason,
		},
	})
}

// LogDiff logs a unified diff of a rewritten file.
func LogDiff(observer Observer, step, path, diff string) {
	if diff == "" {
		return
	}
	observer.Event(Event{
		Type:     EventDiff,
		Step:     step,
		Resource: path,
		Message:  diff,
	})
}
