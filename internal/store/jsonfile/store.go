// Package jsonfile persists each project aggregate as a single JSON
// document on disk. Documents are indented and safe to inspect or edit
// out-of-band for debugging.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/Mtzions/Agentbackend/internal/core/project"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeID maps a project ID to a filesystem-safe document name.
// Non-alphanumeric characters other than '.', '_' and '-' are replaced.
func SanitizeID(id string) string {
	return unsafeChars.ReplaceAllString(id, "_")
}

// ProjectStore implements project.Store using one JSON file per project.
type ProjectStore struct {
	dir string
	mu  sync.RWMutex
}

var _ project.Store = (*ProjectStore)(nil)

// NewProjectStore creates a store rooted at dir. The directory is
// created on the first save.
func NewProjectStore(dir string) *ProjectStore {
	return &ProjectStore{dir: dir}
}

// Path returns the document path for a project ID.
func (s *ProjectStore) Path(id string) string {
	return filepath.Join(s.dir, SanitizeID(id)+".json")
}

// Load reads a project document. Returns project.ErrNotFound if no
// document exists for the ID.
func (s *ProjectStore) Load(ctx context.Context, id string) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, project.ErrNotFound
		}
		return nil, fmt.Errorf("read project document: %w", err)
	}

	var p project.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project document %q: %w", s.Path(id), err)
	}

	return &p, nil
}

// Save writes the full aggregate atomically: marshal, write to a temp
// file, then rename over the document. Concurrent saves are serialized,
// so every requested write lands in submission order.
func (s *ProjectStore) Save(ctx context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project %q: %w", p.ID, err)
	}

	path := s.Path(p.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write project document: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace project document: %w", err)
	}

	return nil
}

// List returns the document names of all stored projects. Names are the
// sanitized IDs; the authoritative ID lives inside each document.
func (s *ProjectStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}
