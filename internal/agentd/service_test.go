package agentd

import (
	"context"
	"testing"

	"github.com/Mtzions/Agentbackend/internal/core/config"
	"github.com/Mtzions/Agentbackend/internal/core/eventbus"
	"github.com/Mtzions/Agentbackend/internal/store/jsonfile"
	"github.com/rs/zerolog"
)

// newTestApp builds an App against a throwaway data directory. The bus
// is left unstarted; hooks still fire synchronously on publish.
func newTestApp(t *testing.T) *App {
	t.Helper()
	return newTestAppAt(t, t.TempDir())
}

func newTestAppAt(t *testing.T, dir string) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	return NewApp(jsonfile.NewProjectStore(dir), &cfg, eventbus.New(), nil, zerolog.Nop())
}

func ctxb() context.Context { return context.Background() }
