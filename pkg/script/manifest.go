package script

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest declares, in one YAML document, which host modules a Context
// should register before a Script runs against it — the batch
// registration step funvibe-funxy's cmd/funxy drives from its own
// embed/build-time configuration (internal/config, pkg/cli/entry.go's
// "build" subcommand reading a config path), generalized here to a
// plain declarative module list rather than a Go-source codegen step.
type Manifest struct {
	// Modules lists the names of registered module constructors (see
	// Registry) that should be wired into the Context, in order.
	Modules []string `yaml:"modules"`
}

// ModuleConstructor installs one module's host functions into ctx,
// the same shape RegisterFunc/RegisterMethod already take calls
// through.
type ModuleConstructor func(ctx *Context) error

// Registry maps a module name (as it appears in a Manifest's modules
// list) to the Go constructor that wires it into a Context. A host
// embedding this package builds one Registry ahead of time out of its
// own ModuleConstructors, then lets a YAML manifest pick which subset
// a given Script needs.
type Registry map[string]ModuleConstructor

// LoadManifest parses a YAML manifest from path and applies every
// listed module, in order, to a fresh Context via registry.
func LoadManifest(path string, registry Registry) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: reading manifest %s: %w", path, err)
	}
	return ParseManifest(data, registry)
}

// ParseManifest is LoadManifest over an already-read YAML document,
// for hosts that embed the manifest rather than reading it from disk.
func ParseManifest(data []byte, registry Registry) (*Context, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("script: parsing manifest: %w", err)
	}

	ctx := NewContext()
	for _, name := range m.Modules {
		ctor, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("script: manifest references unknown module %q", name)
		}
		if err := ctor(ctx); err != nil {
			return nil, fmt.Errorf("script: registering module %q: %w", name, err)
		}
	}
	return ctx, nil
}
