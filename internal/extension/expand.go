package extension

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/crateforge/crate/internal/descriptor"
)

// Expands a descriptor by merging in the defaults of every extension it
// names.
//
// The input descriptor is not modified; a deep-enough copy carrying the
// merged keys is returned. Merge policy: user-declared keys always win;
// map-valued keys (endpoints, parts, containers, resources, config) are
// unioned by name, with the user's entry replacing an extension's entry of
// the same name entirely. Two extensions contributing different values
// under the same key is a fatal conflict naming both extensions.
//
// Expansion is keyed off the extensions list, so expanding an expanded
// descriptor is a no-op beyond re-verifying the same merges.
func Expand(d *descriptor.Descriptor) (*descriptor.Descriptor, error) {
	if len(d.Extensions) == 0 {
		return d, nil
	}

	out := *d
	out.Config = maps.Clone(d.Config)
	out.Endpoints = maps.Clone(d.Endpoints)
	out.Parts = maps.Clone(d.Parts)
	out.Containers = maps.Clone(d.Containers)
	out.Resources = maps.Clone(d.Resources)

	// Tracks which extension contributed each key, so a conflict can name
	// both sources.
	sources := map[string]string{}

	for _, name := range d.Extensions {
		ext, err := Lookup(name)
		if err != nil {
			return nil, err
		}

		frag := ext.Defaults()
		if err := mergeAll(&out, frag, name, sources); err != nil {
			return nil, err
		}
	}

	return &out, nil
}

// Merges one extension's fragment into the descriptor.
func mergeAll(d *descriptor.Descriptor, frag Fragment, ext string, sources map[string]string) error {
	var err error
	if d.Config, err = merge(d.Config, frag.Config, "config", ext, sources); err != nil {
		return err
	}
	if d.Endpoints, err = merge(d.Endpoints, frag.Endpoints, "endpoints", ext, sources); err != nil {
		return err
	}
	if d.Parts, err = merge(d.Parts, frag.Parts, "parts", ext, sources); err != nil {
		return err
	}
	if d.Containers, err = merge(d.Containers, frag.Containers, "containers", ext, sources); err != nil {
		return err
	}
	if d.Resources, err = merge(d.Resources, frag.Resources, "resources", ext, sources); err != nil {
		return err
	}
	return nil
}

// Unions extension defaults into a descriptor map by key name.
//
// A key already present in the descriptor (declared by the user, or merged
// identically by an earlier pass) is left untouched. A key contributed by
// two extensions with differing values is a conflict.
func merge[V any](dst, defaults map[string]V, section, ext string, sources map[string]string) (map[string]V, error) {
	if len(defaults) == 0 {
		return dst, nil
	}
	if dst == nil {
		dst = make(map[string]V, len(defaults))
	}

	for key, val := range defaults {
		qualified := section + "." + key

		if existing, ok := dst[key]; ok {
			prev, contributed := sources[qualified]
			if !contributed {
				// User-declared key wins over any extension default.
				continue
			}
			if reflect.DeepEqual(existing, val) {
				continue
			}
			return nil, fmt.Errorf("%w: %s declared by both %q and %q with different values",
				ErrConflictingExtensions, qualified, prev, ext)
		}

		dst[key] = val
		sources[qualified] = ext
	}

	return dst, nil
}
