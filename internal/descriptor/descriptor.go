package descriptor

import (
	"fmt"
	"regexp"
	"strings"
)

// Matches valid descriptor and part names.
var nameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$`)

// Reports whether a part name is valid.
//
// Extension-contributed parts are slash-qualified by their extension
// ("web-service/app"); each segment must be a valid name on its own.
func validPartName(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if !nameRe.MatchString(seg) {
			return false
		}
	}
	return true
}

// The project descriptor: the typed form of crate.yaml.
//
// Base and BuildBase are the legacy single-base declarations; descriptors
// in multi-base mode carry the base inside each platform token instead,
// and the two modes are mutually exclusive.
type Descriptor struct {
	Name        string `yaml:"name"`
	Summary     string `yaml:"summary"`
	Description string `yaml:"description"`

	Base      string    `yaml:"base,omitempty"`
	BuildBase string    `yaml:"build-base,omitempty"`
	Platforms Platforms `yaml:"platforms,omitempty"`

	Parts      map[string]Part `yaml:"parts"`
	Extensions []string        `yaml:"extensions,omitempty"`

	Config     map[string]any       `yaml:"config,omitempty"`
	Endpoints  map[string]Endpoint  `yaml:"endpoints,omitempty"`
	Containers map[string]Container `yaml:"containers,omitempty"`
	Resources  map[string]Resource  `yaml:"resources,omitempty"`

	// Keys not modeled above pass through expansion and packaging
	// untouched.
	Passthrough map[string]any `yaml:",inline"`
}

// A named unit of the build pipeline.
type Part struct {
	Plugin        string         `yaml:"plugin"`
	Source        string         `yaml:"source,omitempty"`
	After         []string       `yaml:"after,omitempty"`
	OverrideBuild string         `yaml:"override-build,omitempty"`
	Stage         []string       `yaml:"stage,omitempty"`
	Prime         []string       `yaml:"prime,omitempty"`
	Options       map[string]any `yaml:",inline"`
}

// A relation endpoint declaration.
type Endpoint struct {
	Interface string `yaml:"interface"`
	Role      string `yaml:"role,omitempty"`
	Optional  bool   `yaml:"optional,omitempty"`
}

// A workload container declaration.
type Container struct {
	Resource string   `yaml:"resource,omitempty"`
	Mounts   []string `yaml:"mounts,omitempty"`
}

// A resource declaration attached to the artifact.
type Resource struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`
}

// Validates the descriptor's structural invariants.
//
// Platform semantics beyond token syntax (base resolution, host filtering)
// are the plan resolver's concern; this catches everything that can be
// rejected before resolution starts.
func (d *Descriptor) Validate() error {
	if !nameRe.MatchString(d.Name) {
		return fmt.Errorf("%w: invalid name %q", ErrInvalidDescriptor, d.Name)
	}

	if d.Base != "" {
		base, err := ParseBase(d.Base)
		if err != nil {
			return fmt.Errorf("%w: base: %v", ErrInvalidDescriptor, err)
		}
		if !base.Known() {
			return fmt.Errorf("%w: base: unknown base %s", ErrInvalidDescriptor, base)
		}
	}
	if d.BuildBase != "" {
		if d.Base == "" {
			return fmt.Errorf("%w: build-base requires base", ErrInvalidDescriptor)
		}
		base, err := ParseBase(d.BuildBase)
		if err != nil {
			return fmt.Errorf("%w: build-base: %v", ErrInvalidDescriptor, err)
		}
		if !base.Known() {
			return fmt.Errorf("%w: build-base: unknown base %s", ErrInvalidDescriptor, base)
		}
	}

	multiBase := false
	for _, pl := range d.Platforms {
		base, err := pl.validate()
		if err != nil {
			return err
		}
		if !base.IsZero() {
			multiBase = true
		}
	}

	switch {
	case multiBase && d.Base != "":
		return fmt.Errorf("%w: both base %q and per-platform bases are declared", ErrConflictingBases, d.Base)
	case multiBase && d.BuildBase != "":
		return fmt.Errorf("%w: both build-base %q and per-platform bases are declared", ErrConflictingBases, d.BuildBase)
	case !multiBase && d.Base == "":
		return fmt.Errorf("%w: declare base or per-platform bases", ErrMissingBase)
	}

	return d.validateParts()
}

// Validates part names and after-references.
//
// Cycle detection over the after-graph belongs to the parts engine; here
// only dangling references are rejected.
func (d *Descriptor) validateParts() error {
	for name, part := range d.Parts {
		if !validPartName(name) {
			return fmt.Errorf("%w: invalid part name %q", ErrInvalidDescriptor, name)
		}
		if part.Plugin == "" {
			return fmt.Errorf("%w: part %q: plugin is required", ErrInvalidDescriptor, name)
		}
		for _, dep := range part.After {
			if _, ok := d.Parts[dep]; !ok {
				return fmt.Errorf("%w: part %q: after references unknown part %q", ErrInvalidDescriptor, name, dep)
			}
			if dep == name {
				return fmt.Errorf("%w: part %q: after references itself", ErrInvalidDescriptor, name)
			}
		}
	}
	return nil
}

// Returns the platform's inline base, already resolved, or the zero base
// for single-base descriptors. The platform must have passed validation.
func (d *Descriptor) PlatformBase(pl Platform) Base {
	base, err := pl.validate()
	if err != nil {
		return Base{}
	}
	return base
}
