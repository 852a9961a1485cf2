package agentd

import (
	"context"
	"testing"

	"github.com/Mtzions/Agentbackend/internal/core/config"
	"github.com/Mtzions/Agentbackend/internal/core/event"
	"github.com/Mtzions/Agentbackend/internal/core/eventbus"
	"github.com/Mtzions/Agentbackend/internal/core/task"
	"github.com/Mtzions/Agentbackend/internal/planner"
	"github.com/Mtzions/Agentbackend/internal/store/jsonfile"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_AppliesDefaults(t *testing.T) {
	app := newTestApp(t)

	created, err := app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "ship it"})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, task.TypeAnalysis, created.Type)
	assert.Equal(t, task.StatusTodo, created.Status)
	assert.Equal(t, task.SourceManual, created.Source)
	assert.Equal(t, task.DefaultPriority, created.Priority)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
}

func TestAdd_Rejections(t *testing.T) {
	app := newTestApp(t)

	_, err := app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "   "})
	require.Error(t, err, "blank titles are rejected")

	tests := []struct {
		name string
		spec task.Spec
		want error
	}{
		{"bogus type", task.Spec{Title: "t", Type: task.Type("espionage")}, task.ErrInvalidType},
		{"bogus status", task.Spec{Title: "t", Status: task.Status("paused")}, task.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.Tasks.Add(ctxb(), "p1", tt.spec)
			require.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, app.Tasks.List(ctxb(), "p1"), "rejected specs create nothing")
}

func TestAddBatch_PartialFailureKeepsEarlierTasks(t *testing.T) {
	app := newTestApp(t)

	created, err := app.Tasks.AddBatch(ctxb(), "p1", []task.Spec{
		{Title: "first"},
		{Title: "second"},
		{}, // invalid
		{Title: "never reached"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spec 2")

	require.Len(t, created, 2, "tasks before the failure are returned")
	assert.Len(t, app.Tasks.List(ctxb(), "p1"), 2, "and they stay persisted")
}

func TestPatch_MergesAndStampsUpdatedAt(t *testing.T) {
	app := newTestApp(t)

	created, err := app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "draft", Description: "keep me"})
	require.NoError(t, err)

	status := task.StatusInProgress
	prio := 1
	updated, err := app.Tasks.Patch(ctxb(), "p1", created.ID, task.Patch{Status: &status, Priority: &prio})
	require.NoError(t, err)

	assert.Equal(t, task.StatusInProgress, updated.Status)
	assert.Equal(t, 1, updated.Priority)
	assert.Equal(t, "keep me", updated.Description, "absent fields are untouched")
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	types := eventTypes(app.Events.Recent(ctxb(), "p1"))
	assert.Contains(t, types, event.TypeTaskUpdated)
}

func TestPatch_UnknownTaskChangesNothing(t *testing.T) {
	app := newTestApp(t)

	app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "only one"})
	before := app.Tasks.List(ctxb(), "p1")

	title := "ghost"
	_, err := app.Tasks.Patch(ctxb(), "p1", "task-missing", task.Patch{Title: &title})
	require.ErrorIs(t, err, task.ErrNotFound)
	assert.Equal(t, before, app.Tasks.List(ctxb(), "p1"))
}

func TestGet(t *testing.T) {
	app := newTestApp(t)

	created, err := app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "find me"})
	require.NoError(t, err)

	got, err := app.Tasks.Get(ctxb(), "p1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = app.Tasks.Get(ctxb(), "p1", "task-missing")
	require.ErrorIs(t, err, task.ErrNotFound)
}

func TestList_SortsByPriorityThenAge(t *testing.T) {
	app := newTestApp(t)

	low := 5
	high := 1
	app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "B", Priority: &low})
	app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "A", Priority: &high})
	app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "C", Priority: &low})

	var titles []string
	for _, tk := range app.Tasks.List(ctxb(), "p1") {
		titles = append(titles, tk.Title)
	}
	assert.Equal(t, []string{"A", "B", "C"}, titles)
}

// stubPlanner satisfies PlannerClient with canned responses.
type stubPlanner struct {
	specs  []task.Spec
	fields map[string]any
	err    error
}

func (s *stubPlanner) ProposeTasks(context.Context, string) ([]task.Spec, error) {
	return s.specs, s.err
}

func (s *stubPlanner) InspectRepo(context.Context) (map[string]any, error) {
	return s.fields, s.err
}

func newTestAppWithPlanner(t *testing.T, p PlannerClient) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	return NewApp(jsonfile.NewProjectStore(dir), &cfg, eventbus.New(), p, zerolog.Nop())
}

func TestPlan_TagsTasksAsPlannerSourced(t *testing.T) {
	app := newTestAppWithPlanner(t, &stubPlanner{specs: []task.Spec{
		{Title: "write parser"},
		{Title: "write printer"},
	}})

	created, err := app.Tasks.Plan(ctxb(), "p1", "build a formatter")
	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, tk := range created {
		assert.Equal(t, task.SourcePlanner, tk.Source)
	}
}

func TestPlan_UnavailableLeavesProjectUntouched(t *testing.T) {
	app := newTestAppWithPlanner(t, &stubPlanner{err: planner.ErrUnavailable})

	_, err := app.Tasks.Plan(ctxb(), "p1", "anything")
	require.ErrorIs(t, err, planner.ErrUnavailable)
	assert.Empty(t, app.Tasks.List(ctxb(), "p1"))
}

func TestPlan_NoPlannerConfigured(t *testing.T) {
	app := newTestApp(t)

	_, err := app.Tasks.Plan(ctxb(), "p1", "anything")
	require.Error(t, err)
}
