// Package eventbus provides a typed publish/subscribe event bus for
// cross-component communication. Bus events are in-process signals;
// the persisted project timeline is separate and remains the source of
// truth for clients.
package eventbus

import (
	"github.com/Mtzions/Agentbackend/internal/core/run"
	"github.com/Mtzions/Agentbackend/internal/core/task"
)

// Event identifies a bus event type.
type Event string

// All bus events. Keep list sorted A-Z.
const (
	EventProjectCreated Event = "project.created"
	EventRunFinished    Event = "run.finished"
	EventRunStarted     Event = "run.started"
	EventSnapshotMerged Event = "snapshot.merged"
	EventTaskCreated    Event = "task.created"
	EventWriteFailed    Event = "write.failed"
)

// ProjectCreatedPayload is emitted when a project is lazily created.
type ProjectCreatedPayload struct {
	ProjectID string
}

// TaskCreatedPayload is emitted when a task is added to a project.
type TaskCreatedPayload struct {
	ProjectID string
	Task      *task.Task
}

// RunStartedPayload is emitted when a run is created against a task.
type RunStartedPayload struct {
	ProjectID string
	Run       *run.TaskRun
}

// RunFinishedPayload is emitted when a run enters a terminal status.
type RunFinishedPayload struct {
	ProjectID string
	Run       *run.TaskRun
}

// SnapshotMergedPayload is emitted when repo inspection data is merged.
type SnapshotMergedPayload struct {
	ProjectID string
	Keys      []string
}

// WriteFailedPayload is emitted when a write-through to disk fails.
// In-memory state stays authoritative; this is the operator signal.
type WriteFailedPayload struct {
	ProjectID string
	Err       error
}
