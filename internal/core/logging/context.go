package logging

import "context"

type contextKey string

const (
	projectIDKey contextKey = "project_id"
	runIDKey     contextKey = "run_id"
)

// WithProjectID adds a project ID to the context.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectIDKey, projectID)
}

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetProjectID retrieves the project ID from the context.
// Returns empty string if not present.
func GetProjectID(ctx context.Context) string {
	if id, ok := ctx.Value(projectIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRunID retrieves the run ID from the context.
// Returns empty string if not present.
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}
