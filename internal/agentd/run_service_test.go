package agentd

import (
	"testing"

	"github.com/Mtzions/Agentbackend/internal/core/event"
	"github.com/Mtzions/Agentbackend/internal/core/run"
	"github.com/Mtzions/Agentbackend/internal/core/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLifecycle_DryRunToSuccess(t *testing.T) {
	app := newTestApp(t)

	created, err := app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "refactor config loader"})
	require.NoError(t, err)

	started, err := app.Runs.Start(ctxb(), "p1", created.ID, run.ModeDryRun)
	require.NoError(t, err)
	assert.Equal(t, run.StatusRunning, started.Run.Status)
	assert.Equal(t, run.ModeDryRun, started.Run.Mode)
	assert.Equal(t, task.StatusInProgress, started.Task.Status)
	assert.Equal(t, created.ID, started.Handoff.Task.ID)
	assert.Nil(t, started.Run.FinishedAt)

	status := run.StatusSuccess
	updated, err := app.Runs.Patch(ctxb(), "p1", started.Run.ID, run.Patch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, run.StatusSuccess, updated.Status)
	require.NotNil(t, updated.FinishedAt, "entering a terminal status stamps FinishedAt")

	// the timeline holds the full story in order
	types := eventTypes(app.Events.Recent(ctxb(), "p1"))
	assert.Equal(t, []string{
		event.TypeProjectCreated,
		event.TypeTaskCreated,
		event.TypeTaskRunStarted,
		event.TypeTaskRunFinished,
	}, types)
}

func TestStart_UnknownTask(t *testing.T) {
	app := newTestApp(t)

	_, err := app.Runs.Start(ctxb(), "p1", "task-missing", "")
	require.ErrorIs(t, err, task.ErrNotFound)
	assert.Empty(t, app.Runs.List(ctxb(), "p1", ListFilter{}), "no run is created for a missing task")
}

func TestStart_InvalidMode(t *testing.T) {
	app := newTestApp(t)

	created, err := app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "t"})
	require.NoError(t, err)

	_, err = app.Runs.Start(ctxb(), "p1", created.ID, run.Mode("turbo"))
	require.ErrorIs(t, err, run.ErrInvalidMode)
}

func TestCreate_PendingWithoutTaskCheck(t *testing.T) {
	app := newTestApp(t)

	r, err := app.Runs.Create(ctxb(), "p1", run.Spec{TaskID: "task-later"})
	require.NoError(t, err)
	assert.Equal(t, run.StatusPending, r.Status)
	assert.Equal(t, run.ModeNormal, r.Mode)
	assert.Equal(t, "claude", r.Agent, "default agent comes from configuration")
	assert.NotEmpty(t, r.ID)

	_, err = app.Runs.Create(ctxb(), "p1", run.Spec{})
	require.ErrorIs(t, err, run.ErrTaskIDRequired)
}

func TestPatch_IllegalTransitionLeavesRunUntouched(t *testing.T) {
	app := newTestApp(t)

	r, err := app.Runs.Create(ctxb(), "p1", run.Spec{TaskID: "task-x"})
	require.NoError(t, err)

	status := run.StatusSuccess
	_, err = app.Runs.Patch(ctxb(), "p1", r.ID, run.Patch{
		Status:   &status,
		Metadata: map[string]any{"attempt": 1},
	})
	require.ErrorIs(t, err, run.ErrIllegalTransition)

	after := app.Runs.List(ctxb(), "p1", ListFilter{})
	require.Len(t, after, 1)
	assert.Equal(t, run.StatusPending, after[0].Status)
	assert.Empty(t, after[0].Metadata, "a rejected patch applies nothing")
}

func TestPatch_RejectsLeavingTerminal(t *testing.T) {
	app := newTestApp(t)

	created, err := app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "t"})
	require.NoError(t, err)
	started, err := app.Runs.Start(ctxb(), "p1", created.ID, "")
	require.NoError(t, err)

	failed := run.StatusFailed
	done, err := app.Runs.Patch(ctxb(), "p1", started.Run.ID, run.Patch{Status: &failed})
	require.NoError(t, err)
	finishedAt := *done.FinishedAt

	running := run.StatusRunning
	_, err = app.Runs.Patch(ctxb(), "p1", started.Run.ID, run.Patch{Status: &running})
	require.ErrorIs(t, err, run.ErrIllegalTransition)

	// same-status patches still land, and FinishedAt never moves
	after, err := app.Runs.Patch(ctxb(), "p1", started.Run.ID, run.Patch{Status: &failed, Metadata: map[string]any{"note": "retry refused"}})
	require.NoError(t, err)
	assert.Equal(t, finishedAt, *after.FinishedAt)
	assert.Equal(t, "retry refused", after.Metadata["note"])
}

func TestPatch_MetadataAccumulates(t *testing.T) {
	app := newTestApp(t)

	r, err := app.Runs.Create(ctxb(), "p1", run.Spec{TaskID: "task-x"})
	require.NoError(t, err)

	_, err = app.Runs.Patch(ctxb(), "p1", r.ID, run.Patch{Metadata: map[string]any{"a": 1}})
	require.NoError(t, err)
	after, err := app.Runs.Patch(ctxb(), "p1", r.ID, run.Patch{Metadata: map[string]any{"b": 2}})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"a": 1, "b": 2}, after.Metadata)
}

func TestPatch_UnknownRun(t *testing.T) {
	app := newTestApp(t)

	_, err := app.Runs.Patch(ctxb(), "p1", "run-missing", run.Patch{})
	require.ErrorIs(t, err, run.ErrNotFound)
}

func TestAppendLog_GrowsInOrder(t *testing.T) {
	app := newTestApp(t)

	r, err := app.Runs.Create(ctxb(), "p1", run.Spec{TaskID: "task-x"})
	require.NoError(t, err)

	first, err := app.Runs.AppendLog(ctxb(), "p1", r.ID, run.LogEntry{Message: "cloning repo"})
	require.NoError(t, err)
	require.Len(t, first.Logs, 1)
	assert.NotEmpty(t, first.Logs[0].ID)
	assert.False(t, first.Logs[0].TS.IsZero())
	assert.Equal(t, run.LogInfo, first.Logs[0].Type, "type defaults to info")

	second, err := app.Runs.AppendLog(ctxb(), "p1", r.ID, run.LogEntry{Type: run.LogCommand, Message: "go test ./..."})
	require.NoError(t, err)
	require.Len(t, second.Logs, 2)
	assert.Equal(t, "cloning repo", second.Logs[0].Message, "earlier entries are untouched")
	assert.Equal(t, run.LogCommand, second.Logs[1].Type)

	logs, err := app.Runs.Logs(ctxb(), "p1", r.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	_, err = app.Runs.AppendLog(ctxb(), "p1", "run-missing", run.LogEntry{Message: "x"})
	require.ErrorIs(t, err, run.ErrNotFound)
}

func TestList_Filters(t *testing.T) {
	app := newTestApp(t)

	a, err := app.Runs.Create(ctxb(), "p1", run.Spec{TaskID: "task-a"})
	require.NoError(t, err)
	_, err = app.Runs.Create(ctxb(), "p1", run.Spec{TaskID: "task-b"})
	require.NoError(t, err)

	cancelled := run.StatusCancelled
	_, err = app.Runs.Patch(ctxb(), "p1", a.ID, run.Patch{Status: &cancelled})
	require.NoError(t, err)

	assert.Len(t, app.Runs.List(ctxb(), "p1", ListFilter{}), 2)
	assert.Len(t, app.Runs.List(ctxb(), "p1", ListFilter{TaskID: "task-a"}), 1)
	assert.Len(t, app.Runs.List(ctxb(), "p1", ListFilter{Status: run.StatusPending}), 1)
	assert.Empty(t, app.Runs.List(ctxb(), "p1", ListFilter{TaskID: "task-b", Status: run.StatusCancelled}), "both filters are ANDed")
}

func TestRecordResult_MirrorsTaskAndMergesRepo(t *testing.T) {
	app := newTestApp(t)

	created, err := app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "t"})
	require.NoError(t, err)
	started, err := app.Runs.Start(ctxb(), "p1", created.ID, "")
	require.NoError(t, err)

	outcome, err := app.Runs.RecordResult(ctxb(), "p1", started.Run.ID, "", AgentResult{
		Status:   "success",
		Summary:  "all tests green",
		Metadata: map[string]any{"files_changed": 3},
		Repo:     map[string]any{"branch": "main"},
	})
	require.NoError(t, err)

	assert.Equal(t, run.StatusSuccess, outcome.Run.Status)
	require.NotNil(t, outcome.Run.FinishedAt)
	assert.Equal(t, "all tests green", outcome.Run.Metadata["summary"])
	assert.EqualValues(t, 3, outcome.Run.Metadata["files_changed"])
	require.NotNil(t, outcome.UpdatedSnapshot)
	assert.Equal(t, "main", outcome.UpdatedSnapshot.Fields["branch"])

	got, err := app.Tasks.Get(ctxb(), "p1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, got.Status, "a successful result closes the task")

	types := eventTypes(app.Events.Recent(ctxb(), "p1"))
	assert.Contains(t, types, event.TypeAgentResult)
	assert.Contains(t, types, event.TypeTaskRunFinished)
	assert.Contains(t, types, event.TypeSnapshotUpdated)
}

func TestRecordResult_FailedMirrorsTask(t *testing.T) {
	app := newTestApp(t)

	created, err := app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "t"})
	require.NoError(t, err)
	started, err := app.Runs.Start(ctxb(), "p1", created.ID, "")
	require.NoError(t, err)

	outcome, err := app.Runs.RecordResult(ctxb(), "p1", started.Run.ID, "", AgentResult{Status: "failed"})
	require.NoError(t, err)
	assert.Equal(t, run.StatusFailed, outcome.Run.Status)

	got, err := app.Tasks.Get(ctxb(), "p1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, got.Status)
}

func TestRecordResult_BridgesPendingRun(t *testing.T) {
	app := newTestApp(t)

	r, err := app.Runs.Create(ctxb(), "p1", run.Spec{TaskID: "task-x"})
	require.NoError(t, err)

	outcome, err := app.Runs.RecordResult(ctxb(), "p1", r.ID, "", AgentResult{Status: "success"})
	require.NoError(t, err)
	assert.Equal(t, run.StatusSuccess, outcome.Run.Status, "a result for a pending run means it did execute")
	require.NotNil(t, outcome.Run.FinishedAt)
}

func TestRecordResult_ValidatesBeforeMutating(t *testing.T) {
	app := newTestApp(t)

	created, err := app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "t"})
	require.NoError(t, err)
	started, err := app.Runs.Start(ctxb(), "p1", created.ID, "")
	require.NoError(t, err)
	before := len(app.Events.Recent(ctxb(), "p1"))

	_, err = app.Runs.RecordResult(ctxb(), "p1", started.Run.ID, "", AgentResult{Summary: "forgot the status"})
	require.Error(t, err)

	_, err = app.Runs.RecordResult(ctxb(), "p1", started.Run.ID, "", AgentResult{Status: "sideways"})
	require.Error(t, err)

	runs := app.Runs.List(ctxb(), "p1", ListFilter{})
	require.Len(t, runs, 1)
	assert.Equal(t, run.StatusRunning, runs[0].Status, "rejected results touch nothing")
	assert.Len(t, app.Events.Recent(ctxb(), "p1"), before, "no timeline entry for a rejected result")
}

func TestRecordResult_RejectsSecondTerminalResult(t *testing.T) {
	app := newTestApp(t)

	created, err := app.Tasks.Add(ctxb(), "p1", task.Spec{Title: "t"})
	require.NoError(t, err)
	started, err := app.Runs.Start(ctxb(), "p1", created.ID, "")
	require.NoError(t, err)

	_, err = app.Runs.RecordResult(ctxb(), "p1", started.Run.ID, "", AgentResult{Status: "failed"})
	require.NoError(t, err)

	_, err = app.Runs.RecordResult(ctxb(), "p1", started.Run.ID, "", AgentResult{Status: "success"})
	require.ErrorIs(t, err, run.ErrIllegalTransition)
}

func eventTypes(events []event.Event) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
