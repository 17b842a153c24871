// Package registry maintains the catalog of installable applications.
//
// A catalog entry pairs a validated manifest with the factory that
// builds a running instance. The registry also answers file-association
// queries (which app opens ".txt"?) and publishes app.registered /
// app.unregistered on the global bus.
//
// Features:
//   - Register/Unregister with manifest validation
//   - Manifest loading from JSON, YAML, and TOML
//   - Bundle seeding from a host directory (development)
//   - Bundle installation from a URL with retrying HTTP
//   - Extension and MIME association lookup
//
// Example Usage:
//
//	reg := registry.New(bus, logger)
//	err := reg.Register(manifest, func(sb *sandbox.Context) (registry.Instance, error) {
//	    return &notepad{sb: sb}, nil
//	})
//	app, ok := reg.ForPath("/Documents/readme.txt")
package registry
