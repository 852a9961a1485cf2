package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts project_id and run_id from context and adds them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if projectID := GetProjectID(ctx); projectID != "" {
		e.Str("project_id", projectID)
	}

	if runID := GetRunID(ctx); runID != "" {
		e.Str("run_id", runID)
	}
}
