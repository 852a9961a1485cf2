package agentd

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/Mtzions/Agentbackend/internal/core/config"
	"github.com/Mtzions/Agentbackend/internal/core/event"
	"github.com/Mtzions/Agentbackend/internal/core/eventbus"
	"github.com/Mtzions/Agentbackend/internal/core/logging"
	"github.com/Mtzions/Agentbackend/internal/core/project"
	"github.com/Mtzions/Agentbackend/internal/core/run"
	"github.com/Mtzions/Agentbackend/internal/core/task"
	"github.com/Mtzions/Agentbackend/pkg/kv"
	"github.com/Mtzions/Agentbackend/pkg/randid"
	"github.com/rs/zerolog"
)

const idLength = 8

// newID produces a human-legible prefixed identifier, e.g. "task-4k2j9x1p".
func newID(prefix string) string {
	return prefix + "-" + randid.Generate(idLength)
}

// ProjectService owns the in-memory cache and the write-through to the
// persistent store. Every mutation of a project funnels through Update,
// which serializes work per project: nothing is dropped or deferred, and
// writes land in submission order.
type ProjectService struct {
	store project.Store
	cache *kv.Store[string, *project.Project]
	locks *kv.Store[string, *sync.Mutex]
	cfg   *config.Config
	bus   *eventbus.EventBus
	log   zerolog.Logger
	now   func() time.Time
}

// NewProjectService creates a ProjectService backed by the given store.
func NewProjectService(store project.Store, cfg *config.Config, bus *eventbus.EventBus, log zerolog.Logger) *ProjectService {
	return &ProjectService{
		store: store,
		cache: kv.New[string, *project.Project](),
		locks: kv.New[string, *sync.Mutex](),
		cfg:   cfg,
		bus:   bus,
		log:   log,
		now:   time.Now,
	}
}

func (s *ProjectService) lock(id string) *sync.Mutex {
	return s.locks.GetOrSet(id, func() *sync.Mutex { return &sync.Mutex{} })
}

func normalizeID(id string) string {
	if id == "" {
		return project.DefaultID
	}
	return id
}

// loadLocked returns the cached project, loading or lazily creating it.
// The caller must hold the project lock.
func (s *ProjectService) loadLocked(ctx context.Context, id string) *project.Project {
	if p, ok := s.cache.Get(id); ok {
		return p
	}

	p, err := s.store.Load(ctx, id)
	switch {
	case err == nil:
		s.cache.Set(id, p)
		return p
	case !errors.Is(err, project.ErrNotFound):
		// unreadable document; treat as absent but make noise, the
		// in-memory state is authoritative from here on
		s.log.Error().Err(err).Str("project_id", id).Msg("load project document")
	}

	now := s.now()
	p = project.New(id, now)
	appendEvent(p, event.TypeProjectCreated, nil, now)
	s.cache.Set(id, p)
	s.persist(ctx, p)
	s.bus.PublishProjectCreated(eventbus.ProjectCreatedPayload{ProjectID: id})
	return p
}

// persist writes through to disk. Failures are logged and published for
// operator visibility but never surfaced to the caller; the in-memory
// state stays authoritative for the rest of the process lifetime.
func (s *ProjectService) persist(ctx context.Context, p *project.Project) {
	if err := s.store.Save(ctx, p); err != nil {
		s.log.Error().Ctx(ctx).Err(err).Msg("write-through failed, in-memory state is authoritative")
		s.bus.PublishWriteFailed(eventbus.WriteFailedPayload{ProjectID: p.ID, Err: err})
	}
}

// Update applies fn to the project under its lock, bumps UpdatedAt, and
// writes through. fn must not mutate the project before deciding to fail:
// an error aborts the write but not the in-memory changes already made.
func (s *ProjectService) Update(ctx context.Context, id string, fn func(p *project.Project) error) error {
	id = normalizeID(id)
	ctx = logging.WithProjectID(ctx, id)
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	p := s.loadLocked(ctx, id)
	if err := fn(p); err != nil {
		return err
	}

	p.Touch(s.now())
	s.persist(ctx, p)
	return nil
}

// Read applies fn to the project under its lock without persisting.
// Lazily creates the project like GetOrCreate.
func (s *ProjectService) Read(ctx context.Context, id string, fn func(p *project.Project)) {
	id = normalizeID(id)
	ctx = logging.WithProjectID(ctx, id)
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	fn(s.loadLocked(ctx, id))
}

// ProjectSummary is the read model returned to callers: the full task
// list plus bounded replay windows of runs, messages, and events.
type ProjectSummary struct {
	ID             string                `json:"id"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Tasks          []task.Task           `json:"tasks"`
	RecentTaskRuns []run.TaskRun         `json:"recent_task_runs"`
	RecentMessages []project.Message     `json:"recent_messages"`
	RepoSnapshot   *project.RepoSnapshot `json:"repo_snapshot,omitempty"`
	RecentEvents   []event.Event         `json:"recent_events"`
}

// GetOrCreate returns the project summary, creating the project on first
// reference. Absent IDs default to the sentinel project. Idempotent:
// calling it twice without intervening mutation returns equal state.
func (s *ProjectService) GetOrCreate(ctx context.Context, id string) ProjectSummary {
	var summary ProjectSummary
	s.Read(ctx, id, func(p *project.Project) {
		tasks := make([]task.Task, len(p.Tasks))
		copy(tasks, p.Tasks)
		task.SortForDisplay(tasks)

		summary = ProjectSummary{
			ID:             p.ID,
			CreatedAt:      p.CreatedAt,
			UpdatedAt:      p.UpdatedAt,
			Tasks:          tasks,
			RecentTaskRuns: p.RecentRuns(s.cfg.Limits.RecentRuns),
			RecentMessages: p.RecentMessages(s.cfg.Limits.RecentMessages),
			RepoSnapshot:   copySnapshot(p.Repo),
			RecentEvents:   p.RecentEvents(s.cfg.Limits.RecentEvents),
		}
	})
	return summary
}

// List returns the document names of all persisted projects.
func (s *ProjectService) List(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// Evict drops a project from the cache so the next access reloads it
// from disk. Used when a document is edited out-of-band.
func (s *ProjectService) Evict(id string) {
	id = normalizeID(id)
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()
	s.cache.Delete(id)
}

// CachedIDs returns the project IDs currently held in the cache.
func (s *ProjectService) CachedIDs() []string {
	return s.cache.Keys()
}

// appendEvent adds a timeline entry to the project. The backing sequence
// is unbounded; read APIs bound the replay window.
func appendEvent(p *project.Project, evtType string, data map[string]any, now time.Time) event.Event {
	evt := event.Event{
		ID:   newID("evt"),
		TS:   now,
		Type: evtType,
		Data: data,
	}
	p.Events = append(p.Events, evt)
	return evt
}

// copySnapshot returns a detached copy so callers cannot mutate the
// aggregate through the read model.
func copySnapshot(s *project.RepoSnapshot) *project.RepoSnapshot {
	if s == nil {
		return nil
	}
	fields := make(map[string]any, len(s.Fields))
	for k, v := range s.Fields {
		fields[k] = v
	}
	return &project.RepoSnapshot{Fields: fields, UpdatedAt: s.UpdatedAt}
}

// deepCopyMetadata detaches a metadata map via JSON round-trip, matching
// how the values travel on the wire.
func deepCopyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
