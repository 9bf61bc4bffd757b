package parts

import (
	"context"
	"fmt"
	"sort"
)

// Executes shell scripts for plugin build steps and overrides.
//
// The build environment provisioner supplies the implementation: inside a
// provisioned environment scripts run in the build container, in
// destructive mode they run directly on the host.
type Runner interface {

	// Run executes a shell script in the given working directory and
	// returns its combined output.
	Run(ctx context.Context, script, workdir string, env []string) (string, error)
}

// Everything a plugin needs to process one part.
type Context struct {
	Part       *Part
	ProjectDir string // Project root, for resolving the part's source.
	SourceDir  string // Where pull places the part's source.
	BuildDir   string // Working directory for the build step.
	InstallDir string // Where build installs its output.
	Runner     Runner
}

// The uniform contract every plugin implements.
//
// Adding a plugin kind means registering a new implementation; the engine
// drives every plugin identically.
type Plugin interface {

	// Pull acquires the part's source into the source directory.
	Pull(ctx context.Context, pc *Context) error

	// Build transforms the pulled source and installs the result into the
	// install directory.
	Build(ctx context.Context, pc *Context) error
}

// All registered plugins, keyed by the identifier used in descriptors.
var plugins = map[string]Plugin{}

// Adds a plugin to the registry. Registering a duplicate name panics, as
// it is a programming error.
func registerPlugin(name string, p Plugin) {
	if _, ok := plugins[name]; ok {
		panic(fmt.Sprintf("plugin %q registered twice", name))
	}
	plugins[name] = p
}

// Looks up a plugin by its descriptor identifier.
func lookupPlugin(name string) (Plugin, error) {
	p, ok := plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownPlugin, name, PluginNames())
	}
	return p, nil
}

// Returns the registered plugin identifiers, sorted.
func PluginNames() []string {
	names := make([]string, 0, len(plugins))
	for name := range plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
