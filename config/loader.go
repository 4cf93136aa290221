package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "fitagent.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/fitagent"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/fitagent/config.yaml)
// 3. Project config (fitagent.yaml in the working directory)
// 4. Environment variables
func (l *Loader) Load() (*Config, error) {
	return l.load("")
}

// LoadWithOverride behaves like Load but layers an explicit config file on
// top of the user and project layers. Unlike those layers, a missing
// explicit file is an error.
func (l *Loader) LoadWithOverride(path string) (*Config, error) {
	return l.load(path)
}

func (l *Loader) load(explicit string) (*Config, error) {
	config := DefaultConfig()

	if userCfg := l.loadUserConfig(); userCfg != nil {
		config.Merge(userCfg)
	}
	if projectCfg := l.loadProjectConfig(); projectCfg != nil {
		config.Merge(projectCfg)
	}
	if explicit != "" {
		cfg, err := LoadFromFile(explicit)
		if err != nil {
			return nil, err
		}
		config.Merge(cfg)
		l.logger.Debug("Loaded config override", "path", explicit)
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (l *Loader) loadUserConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	path := filepath.Join(home, UserConfigDir, UserConfigFile)
	cfg, err := LoadFromFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.Debug("Skipping user config", "path", path, "error", err)
		}
		return nil
	}
	l.logger.Debug("Loaded user config", "path", path)
	return cfg
}

func (l *Loader) loadProjectConfig() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		return nil
	}
	path := filepath.Join(cwd, ProjectConfigFile)
	cfg, err := LoadFromFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.Debug("Skipping project config", "path", path, "error", err)
		}
		return nil
	}
	l.logger.Debug("Loaded project config", "path", path)
	return cfg
}
