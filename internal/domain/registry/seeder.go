package registry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
)

// Seeder imports app bundles from a host directory. A bundle is any
// directory holding a manifest.json/.yaml/.yml/.toml; the manifest's
// entry, when declared, names a script file next to it.
type Seeder struct {
	installer *Installer
	logger    *logging.Logger
}

// NewSeeder creates a seeder that installs through installer
func NewSeeder(installer *Installer, logger *logging.Logger) *Seeder {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Seeder{installer: installer, logger: logger.Named("seeder")}
}

// SeedFrom walks hostDir and installs every bundle found. Malformed
// bundles are logged and skipped; only the walk itself can fail.
// Returns the number of bundles installed.
func (s *Seeder) SeedFrom(ctx context.Context, hostDir string) (int, error) {
	if _, err := os.Stat(hostDir); os.IsNotExist(err) {
		s.logger.Warn("bundle directory missing, nothing to seed", zap.String("dir", hostDir))
		return 0, nil
	}

	var installed, failed atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, hostDir, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			s.logger.Warn("walk error, skipping", zap.String("path", path), zap.Error(err))
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != hostDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !isManifestName(name) {
			return nil
		}
		if err := s.loadBundle(ctx, path); err != nil {
			failed.Add(1)
			s.logger.Warn("bundle skipped", zap.String("manifest", path), zap.Error(err))
			return nil
		}
		installed.Add(1)
		return nil
	})
	if err != nil {
		return int(installed.Load()), fmt.Errorf("registry: seed %s: %w", hostDir, err)
	}

	s.logger.Info("seeding complete",
		zap.String("dir", hostDir),
		zap.Int64("installed", installed.Load()),
		zap.Int64("failed", failed.Load()))
	return int(installed.Load()), nil
}

func (s *Seeder) loadBundle(ctx context.Context, manifestPath string) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return err
	}
	m, err := ParseManifest(filepath.Base(manifestPath), data)
	if err != nil {
		return err
	}

	var entry []byte
	if m.Entry != "" {
		scriptPath := filepath.Join(filepath.Dir(manifestPath), filepath.FromSlash(m.Entry))
		entry, err = os.ReadFile(scriptPath)
		if err != nil {
			return fmt.Errorf("entry script: %w", err)
		}
	}

	_, err = s.installer.Install(ctx, Bundle{Manifest: m, Entry: entry})
	return err
}

func isManifestName(name string) bool {
	for _, n := range manifestNames {
		if name == n {
			return true
		}
	}
	return false
}
