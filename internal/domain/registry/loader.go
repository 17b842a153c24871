package registry

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

// manifestNames are the bundle file names the seeder recognizes, in
// preference order
var manifestNames = []string{"manifest.json", "manifest.yaml", "manifest.yml", "manifest.toml"}

// ParseManifest decodes and validates manifest bytes. The format comes
// from the file name's extension: .json, .yaml/.yml, or .toml.
func ParseManifest(name string, data []byte) (types.Manifest, error) {
	var m types.Manifest
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		err = sonic.Unmarshal(data, &m)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	case ".toml":
		err = toml.Unmarshal(data, &m)
	default:
		return types.Manifest{}, fmt.Errorf("registry: unsupported manifest format %q", name)
	}
	if err != nil {
		return types.Manifest{}, fmt.Errorf("registry: parse %s: %w", name, err)
	}
	if err := ValidateManifest(m); err != nil {
		return types.Manifest{}, err
	}
	return m, nil
}

// EncodeManifest renders a manifest in its canonical stored form
// (JSON, indented)
func EncodeManifest(m types.Manifest) ([]byte, error) {
	data, err := sonic.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("registry: encode manifest %s: %w", m.ID, err)
	}
	return data, nil
}
