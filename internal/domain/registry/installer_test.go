package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/store"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

func newInstallFixture(t *testing.T) (*Registry, *vfs.VFS, *Installer) {
	t.Helper()
	db, err := store.OpenMemory("desktop", vfs.SchemaVersion, vfs.Schema)
	require.NoError(t, err)
	fs, err := vfs.New(context.Background(), vfs.Config{DB: db})
	require.NoError(t, err)
	t.Cleanup(fs.Close)

	reg := New(nil, nil)
	build := func(m types.Manifest) (Factory, error) { return noopFactory, nil }
	return reg, fs, NewInstaller(reg, fs, build, nil)
}

// TestInstallWritesBundle tests VFS layout and entry rewriting
func TestInstallWritesBundle(t *testing.T) {
	reg, fs, inst := newInstallFixture(t)
	bg := context.Background()

	m := manifest("notes")
	m.Entry = "main.js"
	installed, err := inst.Install(bg, Bundle{Manifest: m, Entry: []byte("exports.onLaunch = () => {};")})
	require.NoError(t, err)
	assert.Equal(t, "/Applications/notes/main.js", installed.Entry)

	script, err := fs.ReadTextFile(bg, "/Applications/notes/main.js")
	require.NoError(t, err)
	assert.Contains(t, script, "onLaunch")

	stored, err := fs.ReadFile(bg, "/Applications/notes/manifest.json")
	require.NoError(t, err)
	parsed, err := ParseManifest("manifest.json", stored)
	require.NoError(t, err)
	assert.Equal(t, installed.Entry, parsed.Entry, "stored manifest carries the VFS entry path")

	assert.True(t, reg.IsRegistered("notes"))
}

// TestInstallWithoutEntry tests a script-free bundle
func TestInstallWithoutEntry(t *testing.T) {
	reg, fs, inst := newInstallFixture(t)
	bg := context.Background()

	_, err := inst.Install(bg, Bundle{Manifest: manifest("plain")})
	require.NoError(t, err)
	assert.True(t, reg.IsRegistered("plain"))

	ok, err := fs.Exists(bg, "/Applications/plain/manifest.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestInstallMissingScript tests the declared-entry-without-body error
func TestInstallMissingScript(t *testing.T) {
	_, _, inst := newInstallFixture(t)

	m := manifest("broken")
	m.Entry = "main.js"
	_, err := inst.Install(context.Background(), Bundle{Manifest: m})
	assert.Error(t, err)
}

// TestInstallFromURL tests fetching a manifest and its sibling script
func TestInstallFromURL(t *testing.T) {
	reg, fs, inst := newInstallFixture(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/bundles/notes/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "notes", "name": "Notes", "version": "2.0.0", "entry": "main.js"}`))
	})
	mux.HandleFunc("/bundles/notes/main.js", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("exports.onLaunch = () => {};"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m, err := inst.InstallFromURL(context.Background(), srv.URL+"/bundles/notes/manifest.json")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", m.Version)
	assert.Equal(t, "/Applications/notes/main.js", m.Entry)
	assert.True(t, reg.IsRegistered("notes"))

	script, err := fs.ReadTextFile(context.Background(), "/Applications/notes/main.js")
	require.NoError(t, err)
	assert.Contains(t, script, "onLaunch")
}

// TestInstallFromURLNotFound tests a missing bundle
func TestInstallFromURLNotFound(t *testing.T) {
	_, _, inst := newInstallFixture(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := inst.InstallFromURL(context.Background(), srv.URL+"/missing.json")
	assert.Error(t, err)
}

// TestSeedFrom tests host-directory seeding with mixed bundles
func TestSeedFrom(t *testing.T) {
	reg, fs, inst := newInstallFixture(t)
	seeder := NewSeeder(inst, nil)

	dir := t.TempDir()
	good := filepath.Join(dir, "notes")
	require.NoError(t, os.MkdirAll(good, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(good, "manifest.json"),
		[]byte(`{"id": "notes", "name": "Notes", "version": "1.0.0", "entry": "main.js"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(good, "main.js"),
		[]byte("exports.onLaunch = () => {};"), 0o644))

	yamlApp := filepath.Join(dir, "clock")
	require.NoError(t, os.MkdirAll(yamlApp, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(yamlApp, "manifest.yaml"),
		[]byte("id: clock\nname: Clock\nversion: 1.0.0\n"), 0o644))

	broken := filepath.Join(dir, "broken")
	require.NoError(t, os.MkdirAll(broken, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, "manifest.json"),
		[]byte(`{"name": "no id"}`), 0o644))

	installed, err := seeder.SeedFrom(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, installed)
	assert.True(t, reg.IsRegistered("notes"))
	assert.True(t, reg.IsRegistered("clock"))
	assert.False(t, reg.IsRegistered("broken"))

	ok, err := fs.Exists(context.Background(), "/Applications/notes/main.js")
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestSeedFromMissingDir tests that an absent directory is not fatal
func TestSeedFromMissingDir(t *testing.T) {
	_, _, inst := newInstallFixture(t)
	seeder := NewSeeder(inst, nil)

	installed, err := seeder.SeedFrom(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Zero(t, installed)
}
