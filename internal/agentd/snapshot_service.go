package agentd

import (
	"context"
	"time"

	"github.com/Mtzions/Agentbackend/internal/core/event"
	"github.com/Mtzions/Agentbackend/internal/core/eventbus"
	"github.com/Mtzions/Agentbackend/internal/core/project"
	"github.com/rs/zerolog"
)

// RepoInspector fetches repository-inspection data from the external
// inspection service. Implemented by planner.Client.
type RepoInspector interface {
	InspectRepo(ctx context.Context) (map[string]any, error)
}

// SnapshotService maintains the best-effort repo snapshot on a project.
type SnapshotService struct {
	projects  *ProjectService
	inspector RepoInspector
	bus       *eventbus.EventBus
	log       zerolog.Logger
}

// NewSnapshotService creates a SnapshotService. inspector may be nil
// when no inspection service is configured.
func NewSnapshotService(projects *ProjectService, inspector RepoInspector, bus *eventbus.EventBus, log zerolog.Logger) *SnapshotService {
	return &SnapshotService{projects: projects, inspector: inspector, bus: bus, log: log}
}

// Merge shallow-merges partial over the existing snapshot and stamps
// UpdatedAt. Returns the resulting snapshot.
func (s *SnapshotService) Merge(ctx context.Context, projectID string, partial map[string]any) (*project.RepoSnapshot, error) {
	var merged *project.RepoSnapshot
	err := s.projects.Update(ctx, projectID, func(p *project.Project) error {
		mergeSnapshot(p, partial, s.projects.now())
		merged = copySnapshot(p.Repo)
		return nil
	})
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	s.bus.PublishSnapshotMerged(eventbus.SnapshotMergedPayload{ProjectID: normalizeID(projectID), Keys: keys})
	return merged, nil
}

// Refresh asks the inspection service for current repo data and merges
// it. When the service is unavailable the existing snapshot is returned
// untouched and updated reports false; this is a logged, recoverable
// condition, never fatal.
func (s *SnapshotService) Refresh(ctx context.Context, projectID string) (snapshot *project.RepoSnapshot, updated bool, err error) {
	if s.inspector == nil {
		s.log.Debug().Msg("no inspection service configured")
		return s.current(ctx, projectID), false, nil
	}

	fields, inspectErr := s.inspector.InspectRepo(ctx)
	if inspectErr != nil {
		s.log.Warn().Err(inspectErr).Str("project_id", normalizeID(projectID)).Msg("repo inspection unavailable, snapshot left untouched")
		return s.current(ctx, projectID), false, nil
	}

	merged, err := s.Merge(ctx, projectID, fields)
	if err != nil {
		return nil, false, err
	}
	return merged, true, nil
}

func (s *SnapshotService) current(ctx context.Context, projectID string) *project.RepoSnapshot {
	var snap *project.RepoSnapshot
	s.projects.Read(ctx, projectID, func(p *project.Project) {
		snap = copySnapshot(p.Repo)
	})
	return snap
}

// mergeSnapshot merges fields into the project's snapshot, creating it
// on first use, and records the timeline entry. The caller holds the
// project lock via Update.
func mergeSnapshot(p *project.Project, fields map[string]any, now time.Time) {
	if p.Repo == nil {
		p.Repo = &project.RepoSnapshot{}
	}
	p.Repo.Merge(fields, now)
	appendEvent(p, event.TypeSnapshotUpdated, nil, now)
}
