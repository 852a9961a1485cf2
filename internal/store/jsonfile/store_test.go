package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mtzions/Agentbackend/internal/core/project"
	"github.com/Mtzions/Agentbackend/internal/core/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"default", "default"},
		{"my-project", "my-project"},
		{"my_project.v2", "my_project.v2"},
		{"weird/name", "weird_name"},
		{"a b:c", "a_b_c"},
		{"../etc/passwd", ".._etc_passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeID(tt.in))
		})
	}
}

func TestProjectStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewProjectStore(t.TempDir())

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := project.New("p1", now)
	p.Tasks = append(p.Tasks, task.New(task.Spec{Title: "Add login"}, "task-1", now))

	require.NoError(t, store.Save(ctx, p))

	got, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.True(t, p.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, "Add login", got.Tasks[0].Title)
}

func TestProjectStore_LoadMissing(t *testing.T) {
	store := NewProjectStore(t.TempDir())

	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestProjectStore_DocumentIsReadable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewProjectStore(dir)

	require.NoError(t, store.Save(ctx, project.New("my/project", time.Now())))

	// sanitized filename, indented JSON
	data, err := os.ReadFile(filepath.Join(dir, "my_project.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"id\": \"my/project\"")

	// no temp file left behind
	_, err = os.Stat(filepath.Join(dir, "my_project.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestProjectStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewProjectStore(t.TempDir())

	now := time.Now()
	p := project.New("p1", now)
	require.NoError(t, store.Save(ctx, p))

	p.Tasks = append(p.Tasks, task.New(task.Spec{Title: "second"}, "task-2", now))
	require.NoError(t, store.Save(ctx, p))

	got, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, got.Tasks, 1)
}

func TestProjectStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewProjectStore(t.TempDir())

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "missing data dir lists as empty")

	require.NoError(t, store.Save(ctx, project.New("p1", time.Now())))
	require.NoError(t, store.Save(ctx, project.New("p2", time.Now())))

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, ids)
}
