// Package run defines the task run domain types and the status state machine.
package run

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrNotFound is returned when a run does not exist in a project.
var ErrNotFound = errors.New("run not found")

// Status represents the lifecycle state of a run.
type Status string

const (
	StatusPending        Status = "pending"
	StatusWaitingForUser Status = "waiting_for_user"
	StatusRunning        Status = "running"
	StatusSuccess        Status = "success"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
)

// Statuses lists all valid run statuses.
func Statuses() []Status {
	return []Status{StatusPending, StatusWaitingForUser, StatusRunning, StatusSuccess, StatusFailed, StatusCancelled}
}

// Valid reports whether s is a known run status.
func (s Status) Valid() bool {
	return slices.Contains(Statuses(), s)
}

// Terminal reports whether s is an absorbing state. Once a run enters a
// terminal state it never leaves it.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// transitions is the allowed status transition table.
var transitions = map[Status][]Status{
	StatusPending:        {StatusRunning, StatusWaitingForUser, StatusCancelled},
	StatusWaitingForUser: {StatusSuccess, StatusFailed, StatusCancelled},
	StatusRunning:        {StatusSuccess, StatusFailed, StatusCancelled},
}

// CanTransition reports whether a run may move from one status to another.
// Same-status patches are always allowed so metadata can accumulate.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return slices.Contains(transitions[from], to)
}

// ErrIllegalTransition is returned when a patch requests a status change
// the state machine forbids.
var ErrIllegalTransition = errors.New("illegal status transition")

// Mode selects how a run executes.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeDryRun Mode = "dry_run"
	ModeDebug  Mode = "debug"
)

// Valid reports whether m is a known run mode.
func (m Mode) Valid() bool {
	return m == ModeNormal || m == ModeDryRun || m == ModeDebug
}

// LogType categorizes a log entry.
type LogType string

const (
	LogInfo     LogType = "info"
	LogSummary  LogType = "summary"
	LogFile     LogType = "file"
	LogCommand  LogType = "command"
	LogCriteria LogType = "criteria"
	LogNotes    LogType = "notes"
	LogError    LogType = "error"
)

// LogEntry is immutable once appended to a run.
type LogEntry struct {
	ID      string         `json:"id"`
	TS      time.Time      `json:"ts"`
	Type    LogType        `json:"type"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// TaskRun is one execution attempt of a task.
//
// TaskID is a weak reference: tasks are never deleted in this system, so
// no cascade semantics exist.
type TaskRun struct {
	ID         string         `json:"id"`
	TaskID     string         `json:"task_id"`
	Agent      string         `json:"agent"`
	Status     Status         `json:"status"`
	Mode       Mode           `json:"mode"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Logs       []LogEntry     `json:"logs"`
	Metadata   map[string]any `json:"metadata"`
}

// Spec is the validated input for creating a run.
type Spec struct {
	ID     string `json:"id,omitempty"` // optional, generated when empty
	TaskID string `json:"task_id"`
	Agent  string `json:"agent,omitempty"`
	Mode   Mode   `json:"mode,omitempty"`
}

// Validation errors.
var (
	ErrTaskIDRequired = errors.New("task_id is required")
	ErrInvalidMode    = errors.New("invalid run mode")
	ErrInvalidStatus  = errors.New("invalid run status")
)

// Validate checks that the spec can produce a well-formed run.
func (s Spec) Validate() error {
	if s.TaskID == "" {
		return ErrTaskIDRequired
	}
	if s.Mode != "" && !s.Mode.Valid() {
		return ErrInvalidMode
	}
	return nil
}

// New builds a TaskRun from a spec, applying defaults. The caller supplies
// the generated ID (used only when the spec carries none) and the default
// agent name, which comes from configuration.
func New(spec Spec, id, defaultAgent string, now time.Time) TaskRun {
	r := TaskRun{
		ID:        spec.ID,
		TaskID:    spec.TaskID,
		Agent:     spec.Agent,
		Status:    StatusPending,
		Mode:      spec.Mode,
		StartedAt: now,
		Logs:      []LogEntry{},
		Metadata:  map[string]any{},
	}
	if r.ID == "" {
		r.ID = id
	}
	if r.Agent == "" {
		r.Agent = defaultAgent
	}
	if r.Mode == "" {
		r.Mode = ModeNormal
	}
	return r
}

// Patch holds the updatable fields of a run. Top-level fields are
// shallow-merged; Metadata is deep-merged key by key so execution results
// can accumulate across multiple patches.
type Patch struct {
	Agent    *string        `json:"agent,omitempty"`
	Status   *Status        `json:"status,omitempty"`
	Mode     *Mode          `json:"mode,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks enum fields of the patch.
func (p Patch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if p.Mode != nil && !p.Mode.Valid() {
		return ErrInvalidMode
	}
	return nil
}

// Apply merges the patch into r. Status changes are validated against the
// transition table; an illegal change returns ErrIllegalTransition and
// leaves r untouched. When the run enters a terminal status, FinishedAt is
// set once to now and never altered afterwards.
func (p Patch) Apply(r *TaskRun, now time.Time) error {
	if p.Status != nil && !CanTransition(r.Status, *p.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.Status, *p.Status)
	}

	if p.Agent != nil {
		r.Agent = *p.Agent
	}
	if p.Mode != nil {
		r.Mode = *p.Mode
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if len(p.Metadata) > 0 {
		if r.Metadata == nil {
			r.Metadata = make(map[string]any, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			r.Metadata[k] = v
		}
	}

	if r.Status.Terminal() && r.FinishedAt == nil {
		finished := now
		r.FinishedAt = &finished
	}
	return nil
}

// AppendLog adds an entry to the run's log sequence. Existing entries are
// never reordered or mutated.
func (r *TaskRun) AppendLog(entry LogEntry) {
	r.Logs = append(r.Logs, entry)
}
