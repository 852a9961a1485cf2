package agentd

import (
	"context"
	"fmt"
	"time"

	"github.com/Mtzions/Agentbackend/internal/core/event"
	"github.com/Mtzions/Agentbackend/internal/core/eventbus"
	"github.com/Mtzions/Agentbackend/internal/core/project"
	"github.com/Mtzions/Agentbackend/internal/core/task"
	"github.com/Mtzions/Agentbackend/internal/core/validate"
	"github.com/rs/zerolog"
)

// TaskPlanner proposes task lists from natural-language goals.
// Implemented by planner.Client.
type TaskPlanner interface {
	ProposeTasks(ctx context.Context, goal string) ([]task.Spec, error)
}

// TaskService manages task definitions within a project.
type TaskService struct {
	projects *ProjectService
	planner  TaskPlanner
	bus      *eventbus.EventBus
	log      zerolog.Logger
}

// NewTaskService creates a TaskService. planner may be nil when no
// planning service is configured.
func NewTaskService(projects *ProjectService, planner TaskPlanner, bus *eventbus.EventBus, log zerolog.Logger) *TaskService {
	return &TaskService{projects: projects, planner: planner, bus: bus, log: log}
}

// Add validates the spec, applies defaults, and appends the task to the
// project. DependsOn targets are not checked for existence.
func (s *TaskService) Add(ctx context.Context, projectID string, spec task.Spec) (task.Task, error) {
	if err := validate.TaskTitleField("title", spec.Title); err != nil {
		return task.Task{}, err
	}
	if err := spec.Validate(); err != nil {
		return task.Task{}, err
	}

	var created task.Task
	err := s.projects.Update(ctx, projectID, func(p *project.Project) error {
		created = addTask(p, spec, s.projects.now())
		return nil
	})
	if err != nil {
		return task.Task{}, err
	}

	s.log.Info().Str("project_id", normalizeID(projectID)).Str("task_id", created.ID).Str("title", created.Title).Msg("task created")
	s.bus.PublishTaskCreated(eventbus.TaskCreatedPayload{ProjectID: normalizeID(projectID), Task: &created})
	return created, nil
}

// AddBatch applies Add sequentially. It is not atomic: a validation
// failure partway leaves earlier tasks persisted, and the error reports
// which spec failed. Tasks created before the failure are returned.
func (s *TaskService) AddBatch(ctx context.Context, projectID string, specs []task.Spec) ([]task.Task, error) {
	created := make([]task.Task, 0, len(specs))
	for i, spec := range specs {
		t, err := s.Add(ctx, projectID, spec)
		if err != nil {
			return created, fmt.Errorf("spec %d: %w", i, err)
		}
		created = append(created, t)
	}
	return created, nil
}

// List returns all tasks sorted for presentation: ascending priority,
// ties broken by creation time.
func (s *TaskService) List(ctx context.Context, projectID string) []task.Task {
	var tasks []task.Task
	s.projects.Read(ctx, projectID, func(p *project.Project) {
		tasks = make([]task.Task, len(p.Tasks))
		copy(tasks, p.Tasks)
	})
	task.SortForDisplay(tasks)
	return tasks
}

// Get returns a single task. Returns task.ErrNotFound if absent.
func (s *TaskService) Get(ctx context.Context, projectID, taskID string) (task.Task, error) {
	var (
		found task.Task
		err   = task.ErrNotFound
	)
	s.projects.Read(ctx, projectID, func(p *project.Project) {
		if t := p.FindTask(taskID); t != nil {
			found = *t
			err = nil
		}
	})
	return found, err
}

// Patch shallow-merges the patch over the task. ID and CreatedAt cannot
// be overwritten by construction. Returns task.ErrNotFound if absent.
func (s *TaskService) Patch(ctx context.Context, projectID, taskID string, patch task.Patch) (task.Task, error) {
	if err := patch.Validate(); err != nil {
		return task.Task{}, err
	}

	var updated task.Task
	err := s.projects.Update(ctx, projectID, func(p *project.Project) error {
		t := p.FindTask(taskID)
		if t == nil {
			return task.ErrNotFound
		}
		now := s.projects.now()
		patch.Apply(t, now)
		appendEvent(p, event.TypeTaskUpdated, map[string]any{"task_id": t.ID}, now)
		updated = *t
		return nil
	})
	if err != nil {
		return task.Task{}, err
	}
	return updated, nil
}

// Plan asks the planning service to propose tasks for a goal and appends
// them with Source set to planner. Planner unavailability is propagated
// so callers can report it; project state is untouched in that case.
func (s *TaskService) Plan(ctx context.Context, projectID, goal string) ([]task.Task, error) {
	if s.planner == nil {
		return nil, fmt.Errorf("no planning service configured")
	}

	specs, err := s.planner.ProposeTasks(ctx, goal)
	if err != nil {
		s.log.Warn().Err(err).Str("project_id", normalizeID(projectID)).Msg("planning service unavailable")
		return nil, err
	}

	for i := range specs {
		specs[i].Source = task.SourcePlanner
	}
	return s.AddBatch(ctx, projectID, specs)
}

// addTask builds the task and appends it plus its timeline entry. The
// caller holds the project lock via Update.
func addTask(p *project.Project, spec task.Spec, now time.Time) task.Task {
	t := task.New(spec, newID("task"), now)
	p.Tasks = append(p.Tasks, t)
	appendEvent(p, event.TypeTaskCreated, map[string]any{"task_id": t.ID, "title": t.Title}, now)
	return t
}
