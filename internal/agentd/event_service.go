package agentd

import (
	"context"

	"github.com/Mtzions/Agentbackend/internal/core/event"
	"github.com/Mtzions/Agentbackend/internal/core/project"
	"github.com/rs/zerolog"
)

// EventService exposes the project timeline. The backing sequence is
// append-only and unbounded; reads return a bounded replay window.
type EventService struct {
	projects *ProjectService
	log      zerolog.Logger
}

// NewEventService creates an EventService.
func NewEventService(projects *ProjectService, log zerolog.Logger) *EventService {
	return &EventService{projects: projects, log: log}
}

// Append records a timeline entry with a generated ID and timestamp.
func (s *EventService) Append(ctx context.Context, projectID, evtType string, data map[string]any) (event.Event, error) {
	var evt event.Event
	err := s.projects.Update(ctx, projectID, func(p *project.Project) error {
		evt = appendEvent(p, evtType, data, s.projects.now())
		return nil
	})
	if err != nil {
		return event.Event{}, err
	}
	return evt, nil
}

// Recent returns the newest events up to the configured replay window.
func (s *EventService) Recent(ctx context.Context, projectID string) []event.Event {
	var events []event.Event
	s.projects.Read(ctx, projectID, func(p *project.Project) {
		events = p.RecentEvents(s.projects.cfg.Limits.RecentEvents)
	})
	return events
}
