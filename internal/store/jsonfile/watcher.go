package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 50 * time.Millisecond

// Watcher reports out-of-band edits to project documents so callers can
// drop stale cache entries. Events carry the document name (sanitized ID).
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	onChange []func(name string)
	debounce map[string]*time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher for the data directory, creating the
// directory if needed.
func NewWatcher(dir string) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		dir:      dir,
		watcher:  fsw,
		debounce: make(map[string]*time.Timer),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// OnChange registers a callback invoked with the document name after a
// debounced change.
func (w *Watcher) OnChange(fn func(name string)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, fn)
	w.mu.Unlock()
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	for _, timer := range w.debounce {
		timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	filename := filepath.Base(event.Name)

	// Ignore temp files from atomic saves and anything non-JSON
	if !strings.HasSuffix(filename, ".json") {
		return
	}

	name := strings.TrimSuffix(filename, ".json")

	w.mu.Lock()
	if timer, exists := w.debounce[name]; exists {
		timer.Stop()
	}
	w.debounce[name] = time.AfterFunc(debounceDelay, func() {
		w.notify(name)
	})
	w.mu.Unlock()
}

func (w *Watcher) notify(name string) {
	w.mu.Lock()
	fns := make([]func(string), len(w.onChange))
	copy(fns, w.onChange)
	w.mu.Unlock()

	for _, fn := range fns {
		fn(name)
	}
}
