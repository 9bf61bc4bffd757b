package extension

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/crateforge/crate/internal/descriptor"
)

// Environment variable gating experimental extensions.
const ExperimentalEnv = "CRATE_EXPERIMENTAL"

// Descriptor defaults contributed by one extension.
//
// Every field is a default: user-declared keys with the same name win
// during expansion.
type Fragment struct {
	Config     map[string]any
	Endpoints  map[string]descriptor.Endpoint
	Parts      map[string]descriptor.Part
	Containers map[string]descriptor.Container
	Resources  map[string]descriptor.Resource
}

// A named bundle of descriptor defaults.
type Extension interface {

	// Name returns the identifier used in the descriptor's extensions
	// list.
	Name() string

	// Bases returns the runtime bases the extension supports.
	Bases() []descriptor.Base

	// Experimental reports whether the extension is gated behind the
	// experimental-features toggle.
	Experimental() bool

	// Defaults returns the descriptor fragment the extension contributes.
	Defaults() Fragment
}

// All registered extensions, keyed by name.
var registry = map[string]Extension{}

// Adds an extension to the registry.
//
// Called from init functions of extension implementations. Registering a
// duplicate name panics, as it is a programming error.
func Register(ext Extension) {
	if _, ok := registry[ext.Name()]; ok {
		panic(fmt.Sprintf("extension %q registered twice", ext.Name()))
	}
	registry[ext.Name()] = ext
}

// Looks up a registered extension by name.
//
// Experimental extensions are only returned when the experimental toggle
// is enabled.
func Lookup(name string) (Extension, error) {
	ext, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, name)
	}
	if ext.Experimental() && !experimentalEnabled() {
		return nil, fmt.Errorf("%w: %q requires %s=1", ErrExperimentalExtension, name, ExperimentalEnv)
	}
	return ext, nil
}

// Returns all visible extensions sorted by name.
//
// Experimental extensions are included only when the experimental toggle
// is enabled.
func List() []Extension {
	names := make([]string, 0, len(registry))
	for name, ext := range registry {
		if ext.Experimental() && !experimentalEnabled() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	exts := make([]Extension, 0, len(names))
	for _, name := range names {
		exts = append(exts, registry[name])
	}
	return exts
}

// Reports whether the experimental-features toggle is on.
func experimentalEnabled() bool {
	v, err := strconv.ParseBool(os.Getenv(ExperimentalEnv))
	return err == nil && v
}
