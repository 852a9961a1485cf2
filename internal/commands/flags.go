package commands

import (
	"os"
	"path/filepath"

	"github.com/Mtzions/Agentbackend/internal/core/config"
	"github.com/urfave/cli/v3"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "agentd", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "agentd")
}

// projectFlag is the shared --project flag. An empty value selects the
// default project.
func projectFlag(dest *string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "project",
		Aliases:     []string{"p"},
		Usage:       "project id (defaults to the default project)",
		Destination: dest,
	}
}
