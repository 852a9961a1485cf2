package agentd

import (
	"testing"

	"github.com/Mtzions/Agentbackend/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_ShallowOverwrite(t *testing.T) {
	app := newTestApp(t)

	snap, err := app.Snapshots.Merge(ctxb(), "p1", map[string]any{"branch": "main", "dirty": false})
	require.NoError(t, err)
	assert.Equal(t, "main", snap.Fields["branch"])
	first := snap.UpdatedAt

	snap, err = app.Snapshots.Merge(ctxb(), "p1", map[string]any{"branch": "feature/x"})
	require.NoError(t, err)
	assert.Equal(t, "feature/x", snap.Fields["branch"], "later keys overwrite")
	assert.Equal(t, false, snap.Fields["dirty"], "untouched keys survive")
	assert.False(t, snap.UpdatedAt.Before(first))
}

func TestRefresh_MergesInspectionData(t *testing.T) {
	app := newTestAppWithPlanner(t, &stubPlanner{fields: map[string]any{"language": "go"}})

	snap, updated, err := app.Snapshots.Refresh(ctxb(), "p1")
	require.NoError(t, err)
	assert.True(t, updated)
	require.NotNil(t, snap)
	assert.Equal(t, "go", snap.Fields["language"])
}

func TestRefresh_UnavailableServiceIsNotFatal(t *testing.T) {
	app := newTestAppWithPlanner(t, &stubPlanner{fields: map[string]any{"language": "go"}})

	_, updated, err := app.Snapshots.Refresh(ctxb(), "p1")
	require.NoError(t, err)
	require.True(t, updated)

	// the service going away later must not clobber what we have
	app.Snapshots.inspector = &stubPlanner{err: planner.ErrUnavailable}
	snap, updated, err := app.Snapshots.Refresh(ctxb(), "p1")
	require.NoError(t, err, "unavailability is recoverable, never an error")
	assert.False(t, updated)
	require.NotNil(t, snap)
	assert.Equal(t, "go", snap.Fields["language"], "existing snapshot is returned untouched")
}

func TestRefresh_NoInspectorConfigured(t *testing.T) {
	app := newTestApp(t)

	snap, updated, err := app.Snapshots.Refresh(ctxb(), "p1")
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Nil(t, snap, "no snapshot exists yet")
}
