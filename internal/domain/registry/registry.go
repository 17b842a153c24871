package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/sandbox"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/monitoring"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/paths"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

// ErrNotRegistered is returned when an app ID is not in the catalog
var ErrNotRegistered = errors.New("registry: app not registered")

// Instance is a running application's object. Concrete instances opt
// into lifecycle behavior by implementing the narrow interfaces below;
// the runtime probes with type assertions.
type Instance interface{}

// Launcher runs once right after the instance is built. A failing
// OnLaunch aborts the launch.
type Launcher interface {
	OnLaunch(ctx context.Context) error
}

// Activator is notified when the app becomes foreground
type Activator interface {
	OnActivate() error
}

// Deactivator is notified when the app leaves foreground
type Deactivator interface {
	OnDeactivate() error
}

// Terminator runs before the app's context is disposed
type Terminator interface {
	OnTerminate() error
}

// MenuHandler receives menu action identifiers
type MenuHandler interface {
	OnMenuAction(action string) error
}

// FileOpener receives a path when the app is asked to open a file
type FileOpener interface {
	OpenFile(ctx context.Context, path string) error
}

// Factory builds an application instance bound to its capability
// context
type Factory func(sb *sandbox.Context) (Instance, error)

// App is one catalog entry
type App struct {
	Manifest     types.Manifest
	Factory      Factory `json:"-"`
	RegisteredAt time.Time
}

// Registry is the app catalog. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	apps    map[string]App
	bus     *events.Bus
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates an empty catalog. The bus may be nil; registration
// events are then skipped.
func New(bus *events.Bus, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{
		apps:   make(map[string]App),
		bus:    bus,
		logger: logger.Named("registry"),
	}
}

// WithMetrics attaches metrics recording
func (r *Registry) WithMetrics(metrics *monitoring.Metrics) *Registry {
	r.metrics = metrics
	return r
}

// Register adds an app to the catalog, replacing any entry with the
// same ID. Re-registering is how development reloads work.
func (r *Registry) Register(m types.Manifest, f Factory) error {
	if err := ValidateManifest(m); err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("registry: app %s has no factory", m.ID)
	}

	r.mu.Lock()
	_, replaced := r.apps[m.ID]
	r.apps[m.ID] = App{Manifest: m, Factory: f, RegisteredAt: time.Now()}
	count := len(r.apps)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SetRegistryApps(count)
	}
	r.logger.Info("app registered",
		zap.String("app_id", m.ID),
		zap.String("version", m.Version),
		zap.Bool("replaced", replaced))
	if r.bus != nil {
		r.bus.Publish(types.EventAppRegistered, types.AppEvent{AppID: m.ID})
	}
	return nil
}

// Unregister removes an app from the catalog. Returns false if the ID
// was not registered.
func (r *Registry) Unregister(appID string) bool {
	r.mu.Lock()
	_, ok := r.apps[appID]
	if ok {
		delete(r.apps, appID)
	}
	count := len(r.apps)
	r.mu.Unlock()

	if !ok {
		return false
	}
	if r.metrics != nil {
		r.metrics.SetRegistryApps(count)
	}
	r.logger.Info("app unregistered", zap.String("app_id", appID))
	if r.bus != nil {
		r.bus.Publish(types.EventAppUnregistered, types.AppEvent{AppID: appID})
	}
	return true
}

// Get returns a catalog entry
func (r *Registry) Get(appID string) (App, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.apps[appID]
	return a, ok
}

// IsRegistered reports whether an app ID is in the catalog
func (r *Registry) IsRegistered(appID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.apps[appID]
	return ok
}

// List returns all entries sorted by app ID
func (r *Registry) List() []App {
	r.mu.RLock()
	apps := make([]App, 0, len(r.apps))
	for _, a := range r.apps {
		apps = append(apps, a)
	}
	r.mu.RUnlock()

	sort.Slice(apps, func(i, j int) bool { return apps[i].Manifest.ID < apps[j].Manifest.ID })
	return apps
}

// Manifests returns all manifests sorted by app ID
func (r *Registry) Manifests() []types.Manifest {
	apps := r.List()
	ms := make([]types.Manifest, len(apps))
	for i, a := range apps {
		ms[i] = a.Manifest
	}
	return ms
}

// Count returns the catalog size
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.apps)
}

// ByExtension returns the apps associated with a file extension,
// editors before viewers, ties broken by app ID
func (r *Registry) ByExtension(ext string) []App {
	return r.matches(func(a types.FileAssociation) bool { return a.MatchesExtension(ext) })
}

// ByMime returns the apps associated with a MIME type, editors before
// viewers, ties broken by app ID
func (r *Registry) ByMime(mime string) []App {
	return r.matches(func(a types.FileAssociation) bool { return a.MatchesMime(mime) })
}

// ForPath returns the preferred app for a file path, matching its
// extension
func (r *Registry) ForPath(p string) (App, bool) {
	ext := extOf(paths.Base(p))
	if ext == "" {
		return App{}, false
	}
	apps := r.ByExtension(ext)
	if len(apps) == 0 {
		return App{}, false
	}
	return apps[0], true
}

func (r *Registry) matches(match func(types.FileAssociation) bool) []App {
	type ranked struct {
		app    App
		editor bool
	}
	r.mu.RLock()
	var hits []ranked
	for _, a := range r.apps {
		for _, assoc := range a.Manifest.Associations {
			if match(assoc) {
				hits = append(hits, ranked{app: a, editor: assoc.Role == types.RoleEditor})
				break
			}
		}
	}
	r.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].editor != hits[j].editor {
			return hits[i].editor
		}
		return hits[i].app.Manifest.ID < hits[j].app.Manifest.ID
	})
	apps := make([]App, len(hits))
	for i, h := range hits {
		apps[i] = h.app
	}
	return apps
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return ""
}

// ValidateManifest applies the structural checks plus catalog policy:
// the ID doubles as a path segment under /Applications, so it must be
// path-safe.
func ValidateManifest(m types.Manifest) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := paths.ValidateAppID(m.ID); err != nil {
		return fmt.Errorf("registry: manifest id: %w", err)
	}
	for _, assoc := range m.Associations {
		if assoc.Role != types.RoleEditor && assoc.Role != types.RoleViewer {
			return fmt.Errorf("registry: manifest %s association: unknown role %q", m.ID, assoc.Role)
		}
	}
	if w := m.Window; w != nil && (w.Width < 0 || w.Height < 0) {
		return fmt.Errorf("registry: manifest %s window hint has negative size", m.ID)
	}
	return nil
}
