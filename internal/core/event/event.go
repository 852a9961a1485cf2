// Package event defines the persisted project timeline entry.
package event

import "time"

// Well-known event type tags. The field is free-form; these are the tags
// the services emit.
const (
	TypeProjectCreated  = "project_created"
	TypeTaskCreated     = "task_created"
	TypeTaskUpdated     = "task_updated"
	TypeTaskRunStarted  = "task_run_started"
	TypeTaskRunFinished = "task_run_finished"
	TypeAgentResult     = "agent_result_recorded"
	TypeSnapshotUpdated = "repo_snapshot_updated"
)

// Event is an append-only timeline entry. Entries are never mutated or
// removed; read APIs expose only a bounded replay window.
type Event struct {
	ID   string         `json:"id"`
	TS   time.Time      `json:"ts"`
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}
