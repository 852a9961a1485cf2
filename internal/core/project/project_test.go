package project

import (
	"testing"
	"time"

	"github.com/Mtzions/Agentbackend/internal/core/event"
	"github.com/Mtzions/Agentbackend/internal/core/run"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	p := New("p1", now)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)
	assert.NotNil(t, p.Tasks)
	assert.NotNil(t, p.Runs)
	assert.NotNil(t, p.Messages)
	assert.NotNil(t, p.Events)
	assert.Nil(t, p.Repo)

	assert.Equal(t, DefaultID, New("", now).ID, "empty ID falls back to the sentinel")
}

func TestTouch_Monotonic(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := New("p1", now)

	p.Touch(now.Add(time.Minute))
	assert.Equal(t, now.Add(time.Minute), p.UpdatedAt)

	// an earlier clock reading never moves UpdatedAt backwards
	p.Touch(now)
	assert.Equal(t, now.Add(time.Minute), p.UpdatedAt)
}

func TestFindRun(t *testing.T) {
	p := New("p1", time.Now())
	p.Runs = append(p.Runs, run.TaskRun{ID: "run-1"}, run.TaskRun{ID: "run-2"})

	require.NotNil(t, p.FindRun("run-2"))
	assert.Equal(t, "run-2", p.FindRun("run-2").ID)
	assert.Nil(t, p.FindRun("run-9"))
}

func TestRecentEvents_Window(t *testing.T) {
	p := New("p1", time.Now())
	for i := range 10 {
		p.Events = append(p.Events, event.Event{ID: string(rune('a' + i))})
	}

	recent := p.RecentEvents(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "h", recent[0].ID)
	assert.Equal(t, "j", recent[2].ID)

	assert.Len(t, p.RecentEvents(100), 10, "window larger than backing returns all")
	assert.Len(t, p.Events, 10, "backing sequence is untouched")
}

func TestRepoSnapshot_Merge(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &RepoSnapshot{}

	s.Merge(map[string]any{"branch": "main", "dirty": false}, now)
	s.Merge(map[string]any{"dirty": true}, now.Add(time.Minute))

	assert.Equal(t, "main", s.Fields["branch"], "unspecified fields persist")
	assert.Equal(t, true, s.Fields["dirty"], "new fields overwrite old")
	assert.Equal(t, now.Add(time.Minute), s.UpdatedAt)
}
