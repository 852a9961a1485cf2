// Package project defines the project aggregate and its store interface.
package project

import (
	"context"
	"errors"
	"time"

	"github.com/Mtzions/Agentbackend/internal/core/event"
	"github.com/Mtzions/Agentbackend/internal/core/run"
	"github.com/Mtzions/Agentbackend/internal/core/task"
)

// ErrNotFound is returned when a project document does not exist.
var ErrNotFound = errors.New("project not found")

// DefaultID is the sentinel project used when callers supply no ID.
const DefaultID = "default"

// Project is the root aggregate. It owns all tasks, runs, messages and
// events for one workspace, and is persisted as a single JSON document.
type Project struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Tasks     []task.Task   `json:"tasks"`
	Runs      []run.TaskRun `json:"task_runs"`
	Messages  []Message     `json:"messages"`
	Events    []event.Event `json:"events"`
	Repo      *RepoSnapshot `json:"repo_snapshot,omitempty"`
}

// New creates an empty project with both timestamps set to now.
func New(id string, now time.Time) *Project {
	if id == "" {
		id = DefaultID
	}
	return &Project{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Tasks:     []task.Task{},
		Runs:      []run.TaskRun{},
		Messages:  []Message{},
		Events:    []event.Event{},
	}
}

// Touch bumps UpdatedAt, keeping it monotonically non-decreasing.
func (p *Project) Touch(now time.Time) {
	if now.After(p.UpdatedAt) {
		p.UpdatedAt = now
	}
}

// FindTask returns a pointer into the task sequence, or nil.
func (p *Project) FindTask(id string) *task.Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}

// FindRun returns a pointer into the run sequence, or nil.
func (p *Project) FindRun(id string) *run.TaskRun {
	for i := range p.Runs {
		if p.Runs[i].ID == id {
			return &p.Runs[i]
		}
	}
	return nil
}

// RecentRuns returns the newest n runs in insertion order.
func (p *Project) RecentRuns(n int) []run.TaskRun {
	return tail(p.Runs, n)
}

// RecentMessages returns the newest n messages in insertion order.
func (p *Project) RecentMessages(n int) []Message {
	return tail(p.Messages, n)
}

// RecentEvents returns the newest n events in insertion order. The
// backing sequence is unbounded; this is the replay window clients see.
func (p *Project) RecentEvents(n int) []event.Event {
	return tail(p.Events, n)
}

func tail[T any](s []T, n int) []T {
	if n <= 0 || len(s) <= n {
		out := make([]T, len(s))
		copy(out, s)
		return out
	}
	out := make([]T, n)
	copy(out, s[len(s)-n:])
	return out
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageSource records which surface produced a message.
type MessageSource string

const (
	SourceUI      MessageSource = "ui"
	SourcePlanner MessageSource = "planner"
	SourceCoder   MessageSource = "coder"
)

// Message is a conversation record, optionally linked to a task or run.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Source    MessageSource  `json:"source"`
	Content   string         `json:"content"`
	TaskID    string         `json:"task_id,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// RepoSnapshot is the latest known repository-inspection result. Fields
// are whatever the inspection collaborator reported last.
type RepoSnapshot struct {
	Fields    map[string]any `json:"fields"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Merge shallow-merges partial over the snapshot: new fields overwrite
// same-named old fields, unspecified fields persist.
func (s *RepoSnapshot) Merge(partial map[string]any, now time.Time) {
	if s.Fields == nil {
		s.Fields = make(map[string]any, len(partial))
	}
	for k, v := range partial {
		s.Fields[k] = v
	}
	s.UpdatedAt = now
}

// Store persists one document per project.
type Store interface {
	// Load returns the stored project. Returns ErrNotFound if no document
	// exists for the ID.
	Load(ctx context.Context, id string) (*Project, error)

	// Save writes the full aggregate durably.
	Save(ctx context.Context, p *Project) error

	// List returns the IDs of all stored projects.
	List(ctx context.Context) ([]string, error)
}
