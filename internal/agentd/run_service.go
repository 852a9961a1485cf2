package agentd

import (
	"context"
	"fmt"

	"github.com/Mtzions/Agentbackend/internal/core/event"
	"github.com/Mtzions/Agentbackend/internal/core/eventbus"
	"github.com/Mtzions/Agentbackend/internal/core/logging"
	"github.com/Mtzions/Agentbackend/internal/core/project"
	"github.com/Mtzions/Agentbackend/internal/core/run"
	"github.com/Mtzions/Agentbackend/internal/core/task"
	"github.com/Mtzions/Agentbackend/internal/core/validate"
	"github.com/rs/zerolog"
)

// RunService manages execution attempts against tasks.
type RunService struct {
	projects *ProjectService
	bus      *eventbus.EventBus
	log      zerolog.Logger
}

// NewRunService creates a RunService.
func NewRunService(projects *ProjectService, bus *eventbus.EventBus, log zerolog.Logger) *RunService {
	return &RunService{projects: projects, bus: bus, log: log}
}

func (s *RunService) defaultAgent() string {
	return s.projects.cfg.DefaultAgent
}

// Create appends a new run in pending status. The task reference is not
// checked here; Start is the operation that requires an existing task.
func (s *RunService) Create(ctx context.Context, projectID string, spec run.Spec) (run.TaskRun, error) {
	if err := spec.Validate(); err != nil {
		return run.TaskRun{}, err
	}

	var created run.TaskRun
	err := s.projects.Update(ctx, projectID, func(p *project.Project) error {
		created = run.New(spec, newID("run"), s.defaultAgent(), s.projects.now())
		p.Runs = append(p.Runs, created)
		return nil
	})
	if err != nil {
		return run.TaskRun{}, err
	}
	return created, nil
}

// Handoff is the structured payload handed to the execution agent when a
// run starts. Prompt text construction happens outside this system.
type Handoff struct {
	ProjectID string      `json:"project_id"`
	Task      task.Task   `json:"task"`
	Run       run.TaskRun `json:"run"`
}

// StartResult is returned by Start.
type StartResult struct {
	Task    task.Task   `json:"task"`
	Run     run.TaskRun `json:"run"`
	Handoff Handoff     `json:"handoff"`
}

// Start creates a run against an existing task, marks the task
// in_progress, and records a task_run_started timeline event. Returns
// task.ErrNotFound when the task does not exist.
func (s *RunService) Start(ctx context.Context, projectID, taskID string, mode run.Mode) (StartResult, error) {
	if mode != "" && !mode.Valid() {
		return StartResult{}, run.ErrInvalidMode
	}

	var result StartResult
	err := s.projects.Update(ctx, projectID, func(p *project.Project) error {
		t := p.FindTask(taskID)
		if t == nil {
			return task.ErrNotFound
		}

		now := s.projects.now()
		r := run.New(run.Spec{TaskID: taskID, Mode: mode}, newID("run"), s.defaultAgent(), now)
		// starting hands off to the agent, so the run is running, not pending
		r.Status = run.StatusRunning
		p.Runs = append(p.Runs, r)

		t.Status = task.StatusInProgress
		t.UpdatedAt = now

		appendEvent(p, event.TypeTaskRunStarted, map[string]any{"task_id": taskID, "run_id": r.ID}, now)

		result = StartResult{
			Task:    *t,
			Run:     r,
			Handoff: Handoff{ProjectID: p.ID, Task: *t, Run: r},
		}
		return nil
	})
	if err != nil {
		return StartResult{}, err
	}

	s.log.Info().Str("project_id", normalizeID(projectID)).Str("task_id", taskID).Str("run_id", result.Run.ID).Msg("run started")
	s.bus.PublishRunStarted(eventbus.RunStartedPayload{ProjectID: normalizeID(projectID), Run: &result.Run})
	return result, nil
}

// Patch merges the patch into the run. Status changes are validated
// against the transition table; entering a terminal state sets
// FinishedAt exactly once and records a task_run_finished event.
// Returns run.ErrNotFound when the run does not exist.
func (s *RunService) Patch(ctx context.Context, projectID, runID string, patch run.Patch) (run.TaskRun, error) {
	if err := patch.Validate(); err != nil {
		return run.TaskRun{}, err
	}

	var (
		updated  run.TaskRun
		finished bool
	)
	ctx = logging.WithRunID(ctx, runID)
	err := s.projects.Update(ctx, projectID, func(p *project.Project) error {
		r := p.FindRun(runID)
		if r == nil {
			return run.ErrNotFound
		}

		now := s.projects.now()
		wasTerminal := r.Status.Terminal()
		if err := patch.Apply(r, now); err != nil {
			return err
		}

		finished = !wasTerminal && r.Status.Terminal()
		if finished {
			appendEvent(p, event.TypeTaskRunFinished, map[string]any{
				"task_id": r.TaskID,
				"run_id":  r.ID,
				"status":  string(r.Status),
			}, now)
		}

		updated = *r
		return nil
	})
	if err != nil {
		return run.TaskRun{}, err
	}

	if finished {
		s.bus.PublishRunFinished(eventbus.RunFinishedPayload{ProjectID: normalizeID(projectID), Run: &updated})
	}
	return updated, nil
}

// AppendLog assigns an ID and timestamp if absent and appends the entry.
// Entries are never reordered or mutated. Returns the run so callers can
// observe the grown log sequence, or run.ErrNotFound.
func (s *RunService) AppendLog(ctx context.Context, projectID, runID string, entry run.LogEntry) (run.TaskRun, error) {
	var updated run.TaskRun
	err := s.projects.Update(ctx, projectID, func(p *project.Project) error {
		r := p.FindRun(runID)
		if r == nil {
			return run.ErrNotFound
		}

		if entry.ID == "" {
			entry.ID = newID("log")
		}
		if entry.TS.IsZero() {
			entry.TS = s.projects.now()
		}
		if entry.Type == "" {
			entry.Type = run.LogInfo
		}
		r.AppendLog(entry)
		updated = *r
		return nil
	})
	if err != nil {
		return run.TaskRun{}, err
	}
	return updated, nil
}

// Logs returns the run's log entries, or run.ErrNotFound.
func (s *RunService) Logs(ctx context.Context, projectID, runID string) ([]run.LogEntry, error) {
	var (
		logs []run.LogEntry
		err  = run.ErrNotFound
	)
	s.projects.Read(ctx, projectID, func(p *project.Project) {
		if r := p.FindRun(runID); r != nil {
			logs = make([]run.LogEntry, len(r.Logs))
			copy(logs, r.Logs)
			err = nil
		}
	})
	return logs, err
}

// ListFilter narrows List results. Zero-valued fields are ignored; both
// set means logical AND.
type ListFilter struct {
	TaskID string
	Status run.Status
}

// List returns runs matching the filter in insertion order.
func (s *RunService) List(ctx context.Context, projectID string, filter ListFilter) []run.TaskRun {
	var runs []run.TaskRun
	s.projects.Read(ctx, projectID, func(p *project.Project) {
		for _, r := range p.Runs {
			if filter.TaskID != "" && r.TaskID != filter.TaskID {
				continue
			}
			if filter.Status != "" && r.Status != filter.Status {
				continue
			}
			runs = append(runs, r)
		}
	})
	return runs
}

// AgentResult is the callback payload from the execution agent.
type AgentResult struct {
	Status   string         `json:"status"`
	Summary  string         `json:"summary,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Repo     map[string]any `json:"repo,omitempty"`
}

// ResultOutcome is returned by RecordResult.
type ResultOutcome struct {
	Run             run.TaskRun           `json:"run"`
	UpdatedSnapshot *project.RepoSnapshot `json:"updated_snapshot,omitempty"`
}

// RecordResult applies an execution agent's result callback: the run is
// patched with the reported status and metadata, an agent_result event is
// recorded, the task status mirrors terminal outcomes, and repo data from
// the result is merged into the snapshot. Validation happens before any
// mutation. taskID is optional; when empty the run's own reference is used.
func (s *RunService) RecordResult(ctx context.Context, projectID, runID, taskID string, result AgentResult) (ResultOutcome, error) {
	if err := validate.ResultStatusField("status", result.Status); err != nil {
		return ResultOutcome{}, err
	}

	status := run.Status(result.Status)
	ctx = logging.WithRunID(ctx, runID)
	var outcome ResultOutcome
	err := s.projects.Update(ctx, projectID, func(p *project.Project) error {
		r := p.FindRun(runID)
		if r == nil {
			return run.ErrNotFound
		}

		now := s.projects.now()
		metadata := deepCopyMetadata(result.Metadata)
		if result.Summary != "" {
			if metadata == nil {
				metadata = map[string]any{}
			}
			metadata["summary"] = result.Summary
		}

		wasTerminal := r.Status.Terminal()
		if !run.CanTransition(r.Status, status) {
			if wasTerminal || !status.Terminal() {
				return fmt.Errorf("%w: %s -> %s", run.ErrIllegalTransition, r.Status, status)
			}
			// a result arriving for a pending run means it did execute;
			// bridge through running rather than rejecting the callback
			r.Status = run.StatusRunning
		}
		if err := (run.Patch{Status: &status, Metadata: metadata}).Apply(r, now); err != nil {
			return err
		}

		appendEvent(p, event.TypeAgentResult, map[string]any{
			"run_id": r.ID,
			"status": string(status),
		}, now)
		if !wasTerminal && r.Status.Terminal() {
			appendEvent(p, event.TypeTaskRunFinished, map[string]any{
				"task_id": r.TaskID,
				"run_id":  r.ID,
				"status":  string(r.Status),
			}, now)
		}

		// mirror terminal outcomes onto the task
		ref := taskID
		if ref == "" {
			ref = r.TaskID
		}
		if t := p.FindTask(ref); t != nil {
			switch status {
			case run.StatusSuccess:
				t.Status = task.StatusDone
				t.UpdatedAt = now
			case run.StatusFailed:
				t.Status = task.StatusFailed
				t.UpdatedAt = now
			}
		}

		if len(result.Repo) > 0 {
			mergeSnapshot(p, result.Repo, now)
		}

		outcome = ResultOutcome{Run: *r, UpdatedSnapshot: copySnapshot(p.Repo)}
		return nil
	})
	if err != nil {
		return ResultOutcome{}, err
	}

	s.log.Info().Str("project_id", normalizeID(projectID)).Str("run_id", runID).Str("status", result.Status).Msg("agent result recorded")
	if outcome.Run.Status.Terminal() {
		s.bus.PublishRunFinished(eventbus.RunFinishedPayload{ProjectID: normalizeID(projectID), Run: &outcome.Run})
	}
	return outcome, nil
}
