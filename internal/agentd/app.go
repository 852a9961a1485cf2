package agentd

import (
	"github.com/Mtzions/Agentbackend/internal/core/config"
	"github.com/Mtzions/Agentbackend/internal/core/eventbus"
	"github.com/Mtzions/Agentbackend/internal/core/logging"
	"github.com/Mtzions/Agentbackend/internal/core/project"
	"github.com/Mtzions/Agentbackend/internal/store/jsonfile"
	"github.com/rs/zerolog"
)

// App is the central entry point for all workspace operations.
// Commands consume App instead of cherry-picking raw dependencies.
type App struct {
	Projects  *ProjectService
	Tasks     *TaskService
	Runs      *RunService
	Events    *EventService
	Messages  *MessageService
	Snapshots *SnapshotService

	Config *config.Config
	Bus    *eventbus.EventBus
}

// PlannerClient is the combined planning/inspection collaborator.
type PlannerClient interface {
	TaskPlanner
	RepoInspector
}

// NewApp constructs an App from explicit dependencies. planner may be
// nil when no planning service is configured.
func NewApp(store project.Store, cfg *config.Config, bus *eventbus.EventBus, planner PlannerClient, log zerolog.Logger) *App {
	projects := NewProjectService(store, cfg, bus, log.With().Str("component", "projects").Logger())

	var (
		taskPlanner TaskPlanner
		inspector   RepoInspector
	)
	if planner != nil {
		taskPlanner = planner
		inspector = planner
	}

	return &App{
		Projects:  projects,
		Tasks:     NewTaskService(projects, taskPlanner, bus, log.With().Str("component", "tasks").Logger()),
		Runs:      NewRunService(projects, bus, log.With().Str("component", "runs").Logger()),
		Events:    NewEventService(projects, log.With().Str("component", "events").Logger()),
		Messages:  NewMessageService(projects, log.With().Str("component", "messages").Logger()),
		Snapshots: NewSnapshotService(projects, inspector, bus, log.With().Str("component", "snapshots").Logger()),
		Config:    cfg,
		Bus:       bus,
	}
}

// AttachWatcher evicts cached projects whose documents change on disk,
// so out-of-band edits become visible on the next read.
func (a *App) AttachWatcher(w *jsonfile.Watcher) {
	log := logging.Component("watcher")
	w.OnChange(func(name string) {
		for _, id := range a.Projects.CachedIDs() {
			if jsonfile.SanitizeID(id) == name {
				log.Debug().Str("project_id", id).Msg("document changed on disk, dropping cache entry")
				a.Projects.Evict(id)
			}
		}
	})
}
