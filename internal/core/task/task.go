// Package task defines the task domain types.
package task

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// ErrNotFound is returned when a task does not exist in a project.
var ErrNotFound = errors.New("task not found")

// DefaultPriority is the middle of the 1 (most urgent) to 5 scale.
const DefaultPriority = 3

// Type categorizes the kind of work a task represents.
type Type string

const (
	TypeAnalysis Type = "analysis"
	TypeFrontend Type = "frontend"
	TypeBackend  Type = "backend"
	TypeInfra    Type = "infra"
	TypeResearch Type = "research"
	TypeTesting  Type = "testing"
)

// Types lists all valid task types.
func Types() []Type {
	return []Type{TypeAnalysis, TypeFrontend, TypeBackend, TypeInfra, TypeResearch, TypeTesting}
}

// Valid reports whether t is a known task type.
func (t Type) Valid() bool {
	return slices.Contains(Types(), t)
}

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
	StatusFailed     Status = "failed"
)

// Statuses lists all valid task statuses.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone, StatusBlocked, StatusFailed}
}

// Valid reports whether s is a known task status.
func (s Status) Valid() bool {
	return slices.Contains(Statuses(), s)
}

// Source records where a task definition came from.
type Source string

const (
	SourceManual  Source = "manual"
	SourcePlanner Source = "planner"
)

// Task is a unit of work owned by a project.
//
// DependsOn holds task IDs and may reference tasks that do not exist yet;
// no referential integrity is enforced.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        Type      `json:"type"`
	Priority    int       `json:"priority"`
	Status      Status    `json:"status"`
	DependsOn   []string  `json:"depends_on,omitempty"`
	AgentHint   string    `json:"agent_hint,omitempty"`
	Source      Source    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Spec is the validated input for creating a task.
type Spec struct {
	ID          string   `json:"id,omitempty"` // optional, generated when empty
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Type        Type     `json:"type,omitempty"`
	Priority    *int     `json:"priority,omitempty"`
	Status      Status   `json:"status,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty"`
	AgentHint   string   `json:"agent_hint,omitempty"`
	Source      Source   `json:"source,omitempty"`
}

// Validation errors for Spec.
var (
	ErrTitleRequired = errors.New("title is required")
	ErrInvalidType   = errors.New("invalid task type")
	ErrInvalidStatus = errors.New("invalid task status")
)

// Validate checks that the spec can produce a well-formed task.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return ErrTitleRequired
	}
	if s.Type != "" && !s.Type.Valid() {
		return ErrInvalidType
	}
	if s.Status != "" && !s.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// New builds a Task from a spec, applying field defaults. The caller
// supplies the generated ID (used only when the spec carries none).
func New(spec Spec, id string, now time.Time) Task {
	t := Task{
		ID:          spec.ID,
		Title:       spec.Title,
		Description: spec.Description,
		Type:        spec.Type,
		Priority:    DefaultPriority,
		Status:      spec.Status,
		DependsOn:   spec.DependsOn,
		AgentHint:   spec.AgentHint,
		Source:      spec.Source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.ID == "" {
		t.ID = id
	}
	if t.Type == "" {
		t.Type = TypeAnalysis
	}
	if spec.Priority != nil {
		t.Priority = *spec.Priority
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Source == "" {
		t.Source = SourceManual
	}
	return t
}

// Patch holds the updatable fields of a task. Nil fields are left
// untouched; ID and CreatedAt are not patchable by construction.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Type        *Type     `json:"type,omitempty"`
	Priority    *int      `json:"priority,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	DependsOn   *[]string `json:"depends_on,omitempty"`
	AgentHint   *string   `json:"agent_hint,omitempty"`
}

// Validate checks enum fields of the patch.
func (p Patch) Validate() error {
	if p.Type != nil && !p.Type.Valid() {
		return ErrInvalidType
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Apply shallow-merges the patch over t and refreshes UpdatedAt.
func (p Patch) Apply(t *Task, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DependsOn != nil {
		t.DependsOn = *p.DependsOn
	}
	if p.AgentHint != nil {
		t.AgentHint = *p.AgentHint
	}
	t.UpdatedAt = now
}

// SortForDisplay orders tasks by ascending priority, ties broken by
// creation time. The sort is stable so equal tasks keep insertion order.
func SortForDisplay(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
