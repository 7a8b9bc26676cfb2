// Package events provides types and interfaces for tracking the progress of a
// dataset inspection run.
//
// A run emits one event when it starts, one per split loaded, one per class
// distribution computed and a final completed or failed event. Listeners
// receive the events over a channel as they happen.
package events

import (
	"time"
)

// ExecutionEventType represents the type of event that occurred during a run.
type ExecutionEventType string

const (
	// EventPipelineStarted is emitted when a run begins.
	EventPipelineStarted ExecutionEventType = "pipeline_started"

	// EventPipelineCompleted is emitted when every stage finished successfully.
	EventPipelineCompleted ExecutionEventType = "pipeline_completed"

	// EventPipelineFailed is emitted when a stage fails and the run stops.
	EventPipelineFailed ExecutionEventType = "pipeline_failed"

	// EventSplitLoading is emitted before a split is read.
	EventSplitLoading ExecutionEventType = "split_loading"

	// EventSplitLoaded is emitted once a split has been read into memory.
	EventSplitLoaded ExecutionEventType = "split_loaded"

	// EventDistributionComputed is emitted after the class counts of a split
	// are available.
	EventDistributionComputed ExecutionEventType = "distribution_computed"

	// EventSummaryWritten is emitted when the summary file has been written.
	EventSummaryWritten ExecutionEventType = "summary_written"
)

// ExecutionEvent represents a single event that occurred during a run.
type ExecutionEvent struct {
	// Type specifies the kind of event.
	Type ExecutionEventType `json:"type"`
	// Timestamp indicates when the event occurred.
	Timestamp time.Time `json:"timestamp"`
	// RunID is the unique identifier of the run.
	RunID string `json:"run_id"`
	// Split names the dataset split the event refers to (optional).
	Split string `json:"split,omitempty"`
	// Rows and Columns carry the shape of a loaded split.
	Rows    int `json:"rows,omitempty"`
	Columns int `json:"columns,omitempty"`
	// Duration represents how long the stage took (for completion events).
	Duration time.Duration `json:"duration,omitempty"`
	// Error contains the error message if the event represents a failure.
	Error string `json:"error,omitempty"`
	// Text provides additional descriptive information about the event.
	Text string `json:"text,omitempty"`
	// Metadata contains additional structured data specific to the event type.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Listener defines the interface for tracking run progress.
type Listener interface {
	// StartListening consumes events until progressChan is closed.
	StartListening(progressChan <-chan ExecutionEvent)

	// StopListening signals that progress listening should end.
	StopListening()
}

// NoopListener is a Listener implementation that performs no operations.
type NoopListener struct{}

// StartListening drains nothing and returns immediately.
func (n *NoopListener) StartListening(progressChan <-chan ExecutionEvent) {}

// StopListening is a no-op.
func (n *NoopListener) StopListening() {}

// ListenerFunc adapts a per-event callback to the Listener interface.
type ListenerFunc func(ExecutionEvent)

// StartListening calls f for every event received.
func (f ListenerFunc) StartListening(progressChan <-chan ExecutionEvent) {
	for event := range progressChan {
		f(event)
	}
}

// StopListening is a no-op.
func (f ListenerFunc) StopListening() {}
