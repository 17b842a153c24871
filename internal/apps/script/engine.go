package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/registry"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/sandbox"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

// ErrNoEntry is returned for manifests that declare no entry script
var ErrNoEntry = errors.New("script: manifest has no entry")

var (
	errStopped = errors.New("script: app stopped")
	errTimeout = errors.New("script: execution timeout")
)

// Config tunes script execution
type Config struct {
	// Timeout bounds the entry's top-level run and each hook or
	// scheduled callback. Zero selects the default.
	Timeout time.Duration
	// MaxCallStack guards against runaway recursion. Zero selects
	// the default.
	MaxCallStack int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxCallStack <= 0 {
		c.MaxCallStack = 1024
	}
	return c
}

// Engine builds application factories for script-backed manifests
type Engine struct {
	fs     *vfs.VFS
	cfg    Config
	logger *logging.Logger
}

// NewEngine creates an Engine reading entry scripts from fs
func NewEngine(fs *vfs.VFS, cfg Config, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{
		fs:     fs,
		cfg:    cfg.withDefaults(),
		logger: logger.Named("script"),
	}
}

// Factory returns the registry factory for a manifest's entry script.
// The source is read and compiled at launch, so an updated script
// takes effect on the next launch without re-registering.
func (e *Engine) Factory(m types.Manifest) (registry.Factory, error) {
	if m.Entry == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoEntry, m.ID)
	}
	entry := m.Entry
	return func(sb *sandbox.Context) (registry.Instance, error) {
		src, err := e.fs.ReadFile(context.Background(), entry)
		if err != nil {
			return nil, fmt.Errorf("script: load %s: %w", entry, err)
		}
		prog, err := goja.Compile(entry, string(src), false)
		if err != nil {
			return nil, fmt.Errorf("script: compile %s: %w", entry, err)
		}
		return newApp(sb, prog, e.cfg, e.logger)
	}, nil
}
