package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/resilience"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/paths"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

// BuildFactory turns a stored manifest into the factory that will
// instantiate the app. Script apps compile their VFS entry script;
// builtin apps map by ID.
type BuildFactory func(m types.Manifest) (Factory, error)

// Bundle is an app ready to install: a manifest plus the entry script
// body when the manifest declares one
type Bundle struct {
	Manifest types.Manifest
	Entry    []byte
}

const maxBundleFileSize = 4 << 20 // manifest or entry script, bytes

// Installer writes app bundles under /Applications and registers them
type Installer struct {
	reg     *Registry
	fs      *vfs.VFS
	build   BuildFactory
	client  *http.Client
	breaker *resilience.Breaker
	logger  *logging.Logger
}

// NewInstaller creates an installer. Remote fetches retry transient
// failures and trip a circuit breaker on a persistently failing origin.
func NewInstaller(reg *Registry, fs *vfs.VFS, build BuildFactory, logger *logging.Logger) *Installer {
	if logger == nil {
		logger = logging.Nop()
	}
	log := logger.Named("installer")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = nil // Disable logging

	breaker := resilience.New("app-install", resilience.Config{
		MaxProbes:  2,
		ResetAfter: 30 * time.Second,
		TripWhen: func(s resilience.Stats) bool {
			return s.ConsecutiveFailures >= 5
		},
		OnChange: func(name string, from, to resilience.State) {
			log.Warn("install circuit state changed",
				zap.String("breaker", name),
				zap.String("from", string(from)),
				zap.String("to", string(to)))
		},
	})

	return &Installer{
		reg:     reg,
		fs:      fs,
		build:   build,
		client:  retryClient.StandardClient(),
		breaker: breaker,
		logger:  log,
	}
}

// Install writes a bundle into the VFS and registers the app. The
// stored manifest's Entry is rewritten to the script's VFS path.
func (i *Installer) Install(ctx context.Context, b Bundle) (types.Manifest, error) {
	m := b.Manifest
	if err := ValidateManifest(m); err != nil {
		return types.Manifest{}, err
	}
	if m.Entry != "" && len(b.Entry) == 0 {
		return types.Manifest{}, fmt.Errorf("registry: bundle %s declares entry %q but carries no script", m.ID, m.Entry)
	}

	bundleDir := paths.AppPath(m.ID).BundleDir()
	if err := i.fs.Mkdir(ctx, bundleDir); err != nil {
		return types.Manifest{}, fmt.Errorf("registry: create bundle dir: %w", err)
	}
	if m.Entry != "" {
		entryPath := paths.Join(bundleDir, filepath.Base(m.Entry))
		if _, err := i.fs.WriteFile(ctx, entryPath, b.Entry); err != nil {
			return types.Manifest{}, fmt.Errorf("registry: write entry script: %w", err)
		}
		m.Entry = entryPath
	}

	encoded, err := EncodeManifest(m)
	if err != nil {
		return types.Manifest{}, err
	}
	if _, err := i.fs.WriteFile(ctx, paths.Join(bundleDir, "manifest.json"), encoded); err != nil {
		return types.Manifest{}, fmt.Errorf("registry: write manifest: %w", err)
	}

	factory, err := i.build(m)
	if err != nil {
		return types.Manifest{}, fmt.Errorf("registry: build factory for %s: %w", m.ID, err)
	}
	if err := i.reg.Register(m, factory); err != nil {
		return types.Manifest{}, err
	}

	i.logger.Info("bundle installed",
		zap.String("app_id", m.ID),
		zap.String("dir", bundleDir),
		zap.Bool("scripted", m.Entry != ""))
	return m, nil
}

// InstallFromURL fetches a manifest (and its entry script, resolved
// relative to the manifest URL) and installs the bundle
func (i *Installer) InstallFromURL(ctx context.Context, rawURL string) (types.Manifest, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return types.Manifest{}, fmt.Errorf("registry: bad bundle url: %w", err)
	}

	data, err := i.fetch(ctx, base.String())
	if err != nil {
		return types.Manifest{}, err
	}
	name := filepath.Base(base.Path)
	if filepath.Ext(name) == "" {
		name = "manifest.json"
	}
	m, err := ParseManifest(name, data)
	if err != nil {
		return types.Manifest{}, err
	}

	var entry []byte
	if m.Entry != "" {
		ref, err := url.Parse(m.Entry)
		if err != nil {
			return types.Manifest{}, fmt.Errorf("registry: bundle %s entry %q: %w", m.ID, m.Entry, err)
		}
		entry, err = i.fetch(ctx, base.ResolveReference(ref).String())
		if err != nil {
			return types.Manifest{}, fmt.Errorf("registry: fetch entry for %s: %w", m.ID, err)
		}
	}

	return i.Install(ctx, Bundle{Manifest: m, Entry: entry})
}

func (i *Installer) fetch(ctx context.Context, u string) ([]byte, error) {
	body, err := i.breaker.Do(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := i.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxBundleFileSize))
	})
	if err != nil {
		return nil, fmt.Errorf("registry: fetch %s: %w", u, err)
	}
	return body.([]byte), nil
}
