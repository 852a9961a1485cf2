package jsonfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change event %q", want)
		}
	}
}

func TestWatcher_ReportsDocumentChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	changes := make(chan string, 16)
	w.OnChange(func(name string) { changes <- name })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "p1.json"), []byte("{}"), 0o644))

	waitFor(t, changes, "p1")
}

func TestWatcher_IgnoresNonJSON(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	changes := make(chan string, 16)
	w.OnChange(func(name string) { changes <- name })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "p1.json.tmp"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case name := <-changes:
		t.Fatalf("unexpected change event %q", name)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	changes := make(chan string, 16)
	w.OnChange(func(name string) { changes <- name })

	path := filepath.Join(dir, "p1.json")
	for range 5 {
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	}

	waitFor(t, changes, "p1")

	// the burst should have collapsed into very few callbacks
	time.Sleep(200 * time.Millisecond)
	assert.LessOrEqual(t, len(changes), 1)
}
