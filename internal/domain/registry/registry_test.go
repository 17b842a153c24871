package registry

import (
	"testing"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/sandbox"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

func noopFactory(sb *sandbox.Context) (Instance, error) {
	return struct{}{}, nil
}

func manifest(id string) types.Manifest {
	return types.Manifest{ID: id, Name: "App " + id, Version: "1.0.0"}
}

// TestRegisterAndGet tests catalog insertion and lookup
func TestRegisterAndGet(t *testing.T) {
	r := New(nil, nil)
	if err := r.Register(manifest("notes"), noopFactory); err != nil {
		t.Fatalf("Register: %v", err)
	}
	a, ok := r.Get("notes")
	if !ok || a.Manifest.Name != "App notes" {
		t.Fatalf("Get = %+v, %v", a, ok)
	}
	if !r.IsRegistered("notes") || r.IsRegistered("nope") {
		t.Fatal("IsRegistered wrong")
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d", r.Count())
	}
}

// TestRegisterPublishes tests the bus events on register/unregister
func TestRegisterPublishes(t *testing.T) {
	bus := events.New()
	var topics []string
	bus.Subscribe(types.EventAppRegistered, func(e events.Event) { topics = append(topics, e.Topic) })
	bus.Subscribe(types.EventAppUnregistered, func(e events.Event) { topics = append(topics, e.Topic) })

	r := New(bus, nil)
	if err := r.Register(manifest("notes"), noopFactory); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !r.Unregister("notes") {
		t.Fatal("Unregister returned false")
	}
	if r.Unregister("notes") {
		t.Fatal("second Unregister returned true")
	}
	if len(topics) != 2 || topics[0] != types.EventAppRegistered || topics[1] != types.EventAppUnregistered {
		t.Fatalf("topics = %v", topics)
	}
}

// TestRegisterReplaces tests that re-registering updates in place
func TestRegisterReplaces(t *testing.T) {
	r := New(nil, nil)
	m := manifest("notes")
	if err := r.Register(m, noopFactory); err != nil {
		t.Fatalf("Register: %v", err)
	}
	m.Version = "2.0.0"
	if err := r.Register(m, noopFactory); err != nil {
		t.Fatalf("re-Register: %v", err)
	}
	a, _ := r.Get("notes")
	if a.Manifest.Version != "2.0.0" {
		t.Fatalf("version = %s", a.Manifest.Version)
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d", r.Count())
	}
}

// TestRegisterRejectsInvalid tests manifest validation on the way in
func TestRegisterRejectsInvalid(t *testing.T) {
	r := New(nil, nil)
	cases := []types.Manifest{
		{},
		{ID: "x"},
		{ID: "x", Name: "X"},
		{ID: "a/b", Name: "X", Version: "1"},
		{ID: "..", Name: "X", Version: "1"},
		{ID: "x", Name: "X", Version: "1", Permissions: types.Permissions{
			FS: []types.FSGrant{{Path: "/ok", Mode: "execute"}},
		}},
		{ID: "x", Name: "X", Version: "1", Associations: []types.FileAssociation{
			{Extensions: []string{"txt"}, Role: "owner"},
		}},
		{ID: "x", Name: "X", Version: "1", Window: &types.WindowHint{Width: -1}},
	}
	for i, m := range cases {
		if err := r.Register(m, noopFactory); err == nil {
			t.Errorf("case %d: invalid manifest accepted: %+v", i, m)
		}
	}
	if err := r.Register(manifest("ok"), nil); err == nil {
		t.Error("nil factory accepted")
	}
}

// TestListSorted tests deterministic listing order
func TestListSorted(t *testing.T) {
	r := New(nil, nil)
	for _, id := range []string{"zed", "ant", "mid"} {
		if err := r.Register(manifest(id), noopFactory); err != nil {
			t.Fatalf("Register %s: %v", id, err)
		}
	}
	apps := r.List()
	if len(apps) != 3 || apps[0].Manifest.ID != "ant" || apps[1].Manifest.ID != "mid" || apps[2].Manifest.ID != "zed" {
		t.Fatalf("List order wrong: %+v", apps)
	}
	ms := r.Manifests()
	if len(ms) != 3 || ms[0].ID != "ant" {
		t.Fatalf("Manifests wrong: %+v", ms)
	}
}

// TestAssociations tests extension lookup with editor preference
func TestAssociations(t *testing.T) {
	r := New(nil, nil)

	viewer := manifest("previewer")
	viewer.Associations = []types.FileAssociation{
		{Extensions: []string{"txt", "md"}, Role: types.RoleViewer},
	}
	editor := manifest("notepad")
	editor.Associations = []types.FileAssociation{
		{Extensions: []string{".TXT"}, MimeTypes: []string{"text/plain"}, Role: types.RoleEditor},
	}
	for _, m := range []types.Manifest{viewer, editor} {
		if err := r.Register(m, noopFactory); err != nil {
			t.Fatalf("Register %s: %v", m.ID, err)
		}
	}

	apps := r.ByExtension("txt")
	if len(apps) != 2 {
		t.Fatalf("ByExtension(txt) = %d apps", len(apps))
	}
	if apps[0].Manifest.ID != "notepad" {
		t.Errorf("editor not preferred: %s first", apps[0].Manifest.ID)
	}

	if apps := r.ByExtension("md"); len(apps) != 1 || apps[0].Manifest.ID != "previewer" {
		t.Errorf("ByExtension(md) = %+v", apps)
	}
	if apps := r.ByMime("text/plain; charset=utf-8"); len(apps) != 1 || apps[0].Manifest.ID != "notepad" {
		t.Errorf("ByMime = %+v", apps)
	}

	app, ok := r.ForPath("/Documents/readme.txt")
	if !ok || app.Manifest.ID != "notepad" {
		t.Fatalf("ForPath = %+v, %v", app, ok)
	}
	if _, ok := r.ForPath("/Documents/none.xyz"); ok {
		t.Error("ForPath matched unknown extension")
	}
	if _, ok := r.ForPath("/Documents/noext"); ok {
		t.Error("ForPath matched extensionless file")
	}
}

// TestParseManifestFormats tests the JSON, YAML, and TOML decoders
func TestParseManifestFormats(t *testing.T) {
	jsonSrc := []byte(`{
	  "id": "notes", "name": "Notes", "version": "1.0.0",
	  "permissions": {"fs": [{"path": "/Documents", "mode": "readwrite"}], "services": ["storage"]},
	  "file_associations": [{"extensions": ["txt"], "role": "editor"}]
	}`)
	yamlSrc := []byte(`
id: notes
name: Notes
version: 1.0.0
permissions:
  fs:
    - path: /Documents
      mode: readwrite
  services:
    - storage
file_associations:
  - extensions: [txt]
    role: editor
`)
	tomlSrc := []byte(`
id = "notes"
name = "Notes"
version = "1.0.0"

[permissions]
services = ["storage"]

[[permissions.fs]]
path = "/Documents"
mode = "readwrite"

[[file_associations]]
extensions = ["txt"]
role = "editor"
`)

	cases := []struct {
		name string
		src  []byte
	}{
		{"manifest.json", jsonSrc},
		{"manifest.yaml", yamlSrc},
		{"manifest.toml", tomlSrc},
	}
	for _, tc := range cases {
		m, err := ParseManifest(tc.name, tc.src)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if m.ID != "notes" || m.Version != "1.0.0" {
			t.Errorf("%s: identity = %s/%s", tc.name, m.ID, m.Version)
		}
		if len(m.Permissions.FS) != 1 || m.Permissions.FS[0].Path != "/Documents" || !m.Permissions.FS[0].Mode.CanWrite() {
			t.Errorf("%s: fs grants = %+v", tc.name, m.Permissions.FS)
		}
		if !m.Permissions.AllowsService("storage") {
			t.Errorf("%s: services = %+v", tc.name, m.Permissions.Services)
		}
		if len(m.Associations) != 1 || !m.Associations[0].MatchesExtension("txt") {
			t.Errorf("%s: associations = %+v", tc.name, m.Associations)
		}
	}
}

// TestParseManifestRejects tests format and validation failures
func TestParseManifestRejects(t *testing.T) {
	if _, err := ParseManifest("manifest.ini", []byte("id=x")); err == nil {
		t.Error("unsupported format accepted")
	}
	if _, err := ParseManifest("manifest.json", []byte(`{"id":`)); err == nil {
		t.Error("broken JSON accepted")
	}
	if _, err := ParseManifest("manifest.json", []byte(`{"id": "x"}`)); err == nil {
		t.Error("incomplete manifest accepted")
	}
}
